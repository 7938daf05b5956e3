// Package retry re-runs failing functions under a bounded, fixed-delay
// budget.
//
// A Policy is built from a Config: a Matcher selecting the errors worth
// retrying, the number of attempts, the wait between them, whether the last
// error is returned once attempts run out and an optional exhaustion
// callback.
//
//	policy, err := retry.New(retry.Config{
//		Matcher: retry.Match(
//			retry.Exact[*net.OpError](),
//			retry.IsWithCallback(io.ErrUnexpectedEOF, func(error) { conn.Reset() }),
//		),
//		Retries:        4,
//		WaitTime:       500 * time.Millisecond,
//		RaiseException: true,
//	})
//
//	body, ok, err := retry.Do(ctx, policy, func(ctx context.Context) ([]byte, error) {
//		return download(ctx, url)
//	})
//
// Errors the matcher does not select are returned on the first occurrence.
// With RaiseException false an exhausted run returns ok == false and a nil
// error, so callers must check ok before using the value.
//
// OnStaleElement and OnRequestFailure are preset policies for browser
// automation and network requests.
package retry
