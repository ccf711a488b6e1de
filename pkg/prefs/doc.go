// Package prefs resolves per-user, per-type notification channel preferences.
//
// A Preference row holds the channel switches (push, email, in-app, sms), an
// optional quiet-hours window evaluated in the user's IANA timezone, and
// digest settings. Rows are created lazily on first access using type-class
// defaults: security-critical types start (and stay) with push/email/in-app
// pinned on, marketing types start fully opted out, payment types start with
// the important channels on but user-changeable, and everything else gets
// push + in-app.
//
// The Service talks to persistence only through the Storage interface, so the
// package can be backed by any engine. MemoryStorage covers tests and local
// development; PostgresStorage is the production implementation.
//
// # Usage
//
//	storage := prefs.NewMemoryStorage()
//	svc, _ := prefs.NewService(storage)
//
//	channels, err := svc.EnabledChannels(ctx, userID, prefs.TypeMessageNew)
//	if err != nil {
//	    return err
//	}
//
// Quiet-hours windows may wrap past midnight: a 22:00-08:00 window is active
// at 23:30 and at 05:00 local time.
package prefs
