// Package httputil provides the HTTP client used to talk to the collector.
//
// # Client
//
// [Client] sends and receives JSON. Connection failures and 5xx responses
// are marked retryable; 404 maps to an ErrCodeNotFound error and other 4xx
// responses to ErrCodeInvalidInput. Requests are reported to
// observability.HTTPHooks when configured.
//
//	c := httputil.NewClient(httputil.WithHeader("Authorization", "Bearer "+token))
//	var rec store.Record
//	err := c.GetJSON(ctx, base+"/api/v1/codelocations/"+id, &rec)
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff as long as it keeps
// failing with a [RetryableError]:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    return c.PostJSON(ctx, url, body, &out)
//	})
package httputil
