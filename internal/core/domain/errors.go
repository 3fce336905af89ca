package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrJobNotFound       = errors.New("processing job not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrPreprocessing     = errors.New("preprocessing failed")
	ErrNoContent         = errors.New("no content extracted")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ErrorType maps an error to the failure-log taxonomy label.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrPreprocessing):
		return "preprocessing_error"
	case errors.Is(err, ErrNoContent):
		return "no_content_extracted"
	default:
		return "pipeline_error"
	}
}
