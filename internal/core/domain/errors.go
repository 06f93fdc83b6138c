package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrChunkNotFound       = errors.New("chunk not found")
	ErrTemporary           = errors.New("temporary failure")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrAlignmentViolation  = errors.New("index alignment violation")
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
