// Package retry provides exponential backoff for transient failures.
//
// Do stops early when fn returns an error classified as invalid or fatal by the
// errors package, so configuration mistakes surface on the first attempt:
//
//	cfg := retry.Connect()
//	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
//		logger.Warn("broker connect failed", "attempt", attempt, "retry_in", delay, "error", err)
//	}
//	err := retry.Do(ctx, cfg, func() error {
//		return client.Connect(ctx)
//	})
package retry
