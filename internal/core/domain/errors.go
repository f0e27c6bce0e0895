package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateRequest        = errors.New("duplicate request")
	ErrRecordNotFound          = errors.New("record not found")
	ErrCustomerNotFound        = errors.New("customer not found")
	ErrExtractionUnavailable   = errors.New("extraction service unavailable")
	ErrAssemblyInvariant       = errors.New("assembly invariant violation")
	ErrInvalidInput            = errors.New("invalid input")
	ErrIllegalStatusTransition = errors.New("illegal status transition")
	ErrTemporary               = errors.New("temporary failure")
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
