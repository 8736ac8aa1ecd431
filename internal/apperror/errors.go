package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the upload lifecycle. Stores return these so services
// and handlers can branch without knowing about DynamoDB or S3 error shapes.
var (
	ErrCaseNotFound   = errors.New("case not found")
	ErrFileNotFound   = errors.New("file not found")
	ErrSessionExpired = errors.New("upload session expired")
	ErrObjectMissing  = errors.New("object not found in storage")
	ErrDuplicateFile  = errors.New("file already exists")
	ErrInvalidState   = errors.New("record is not in the expected state")
)

// ValidationError marks caller mistakes: disallowed MIME type, oversized
// declared size, malformed parameters. Handlers map it to 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
