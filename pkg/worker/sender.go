package worker

import (
	"context"

	"github.com/dmitrymomot/notifykit/pkg/notifqueue"
	"github.com/dmitrymomot/notifykit/pkg/prefs"
)

// Sender performs the actual transmission for one channel. Implementations
// wrap a push provider, an email provider, an SMS gateway, or the in-app
// inbox; none of that lives in this module.
type Sender interface {
	// Channel identifies which delivery medium this sender serves.
	Channel() prefs.Channel

	// Provider names the upstream service, recorded on every attempt.
	Provider() string

	// Send transmits the notification and returns the provider message id,
	// when the provider issues one. A non-nil error marks the channel as
	// failed for this pass.
	Send(ctx context.Context, entry *notifqueue.Entry) (string, error)
}
