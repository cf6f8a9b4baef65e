package generate

import "fmt"

// withRetry runs attempt up to maxAttempts times. attempt returns a value,
// whether it is acceptable, and an error; both errors and unacceptable
// results trigger another attempt. Question and answer generation share
// this single combinator instead of carrying their own attempt counters.
func withRetry[T any](maxAttempts int, attempt func(n int) (T, bool, error)) (T, error) {
	var zero T
	var lastErr error
	for n := 1; n <= maxAttempts; n++ {
		v, ok, err := attempt(n)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return v, nil
		}
		lastErr = fmt.Errorf("attempt %d rejected", n)
	}
	return zero, fmt.Errorf("exhausted %d attempts: %w", maxAttempts, lastErr)
}
