// Package retry re-runs operations that fail for transient reasons, with
// exponential backoff and context cancellation.
//
// The scraper uses it around browser launch:
//
//	b, err := retry.DoWithResult(ctx, launcher.Launch, retry.Config{
//		MaxAttempts: 2,
//		Backoff:     retry.NewExponentialBackoff(2 * time.Second),
//		Logger:      log,
//	})
//
// DefaultRetryIf decides from the pkg/errors type: session, navigation and
// timeout failures are retried, cancellation and content errors are not.
package retry
