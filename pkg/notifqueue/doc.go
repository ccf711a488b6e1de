// Package notifqueue provides the durable, prioritized, idempotent queue at
// the heart of notification delivery.
//
// Producers call Enqueue; a worker polls Pending, claims entries with
// MarkProcessing, attempts delivery through external channel senders, and
// reports back via MarkDelivered, MarkPartial, or MarkFailed. The entry
// state machine:
//
//	PENDING → PROCESSING → DELIVERED | PARTIAL
//	PROCESSING → PENDING (retry with 3^attempts-minute backoff)
//	PROCESSING → FAILED  (attempt budget exhausted)
//	PENDING → CANCELLED  (explicit cancel, or no channels at enqueue)
//
// Persistence sits behind the Storage interface; the queue itself keeps no
// state between calls, so any number of producers and workers can share one
// store. MemoryStorage serves tests and local development, PostgresStorage
// production. Both enforce the two concurrency guarantees the design leans
// on: idempotency-key uniqueness resolved at insert time, and claim-once
// semantics through an atomic conditional update.
//
// # Usage
//
//	prefSvc, _ := prefs.NewService(prefs.NewMemoryStorage())
//	q, _ := notifqueue.NewQueue(notifqueue.NewMemoryStorage(), prefSvc)
//
//	entry, err := q.Enqueue(ctx, userID, prefs.TypeMessageNew,
//	    "New message", "Sam sent you a message",
//	    notifqueue.WithPriority(notifqueue.PriorityHigh),
//	    notifqueue.WithIdempotencyKey("message:42"),
//	)
//
// Quiet hours are resolved once, at enqueue time: non-critical entries
// scheduled inside the user's window are deferred to its end, while
// CRITICAL entries go out immediately.
package notifqueue
