// Package delivery tracks per-channel delivery attempts against queue
// entries. Each attempt runs its own forward-only state machine
// (pending → sent → delivered → read, with failed/bounced terminal from any
// pre-terminal state), independent of the parent entry's lifecycle.
//
// Channel senders call Tracker.Record when a send begins and UpdateStatus as
// the provider reports progress. The tracker never touches the queue entry;
// aggregating attempt outcomes into an entry-level verdict is the worker's
// job.
package delivery
