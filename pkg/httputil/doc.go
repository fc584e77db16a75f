// Package httputil provides HTTP client helpers shared by the remote fit
// store and the texture fetcher.
//
// # Overview
//
//   - [Do]: send a request, classify failures, report hooks
//   - [Retry]: automatic retry with exponential backoff
//
// # Failure classification
//
// [Do] wraps transient failures in [RetryableError]:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// Other non-2xx responses are returned as [*StatusError] and are not
// retried. Callers decide whether to retry at all: fetching fits retries,
// saving a fit never does.
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    body, err = httputil.Do(ctx, client, req)
//	    return err
//	})
//
// A 429 or 503 response carrying Retry-After in seconds waits that long
// instead of the backoff delay. No wait exceeds [MaxDelay].
package httputil
