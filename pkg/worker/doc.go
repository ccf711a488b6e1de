// Package worker drives notification delivery: it polls the queue for due
// entries, claims them, fans each entry out to its channel senders, records
// per-channel attempts through the delivery tracker, and reports the
// aggregate outcome back to the queue.
//
// The worker is stateless between polls and safe to run in multiple process
// instances; the queue's atomic claim prevents double delivery. Senders are
// an interface — the actual push/email/SMS provider integrations live
// outside this module.
//
//	w, err := worker.NewWorker(queue, tracker, []worker.Sender{pushSender, emailSender})
//	if err != nil {
//	    return err
//	}
//	if err := w.Start(ctx); err != nil {
//	    return err
//	}
//	defer w.Stop()
package worker
