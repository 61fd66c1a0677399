// Package httputil provides HTTP helpers for the simulation backend client.
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff, but only when the
// returned error is wrapped in [RetryableError]. Callers decide what is
// transient; [StatusError] does this for HTTP responses:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    defer resp.Body.Close()
//	    return httputil.StatusError(resp)
//	})
//
// 5xx and 429 responses are retried. Other 4xx responses are returned at
// once.
package httputil
