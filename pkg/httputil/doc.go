// Package httputil provides retry support for backend HTTP calls.
//
// [Retry] re-runs an operation with exponential backoff while it fails with
// a [RetryableError]. Callers decide what is transient: the backend client
// marks connection failures and 5xx/429 responses as retryable (see
// [RetryableStatus]) and leaves 4xx responses alone.
//
//	err := httputil.Retry(ctx, httputil.DefaultPolicy, func() error {
//	    resp, err := http.Get(url)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    ...
//	})
//
// Only idempotent requests should be retried. Starting a run or submitting
// input is never retried.
package httputil
