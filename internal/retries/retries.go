package retries

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 100 * time.Millisecond

	HealthAttempts  = 2
	HealthBaseDelay = 50 * time.Millisecond
)

// Retry runs fn up to attempts times, backing off exponentially from
// baseDelay with jitter. Non-retriable errors (per isRetriable) abort
// immediately, as does context cancellation.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error, isRetriable func(error) bool) error {
	var err error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := baseDelay << (attempt - 1)
			delay += time.Duration(rand.Int63n(int64(baseDelay)))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
		if isRetriable != nil && !isRetriable(err) {
			return err
		}
	}

	return err
}

// IsRetriableDbError classifies DynamoDB failures worth retrying: throttling
// and server-side errors. Conditional check failures and plain not-found
// results are terminal.
func IsRetriableDbError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ProvisionedThroughputExceededException",
			"ThrottlingException",
			"RequestLimitExceeded",
			"InternalServerError",
			"ServiceUnavailable":
			return true
		}
		return false
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() >= 500
	}

	return false
}
