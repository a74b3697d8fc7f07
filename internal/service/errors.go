package service

import "errors"

// ValidationError rejects bad input before any write happens. Handlers map
// it to a 400; everything else surfaces as a storage/internal failure.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var ErrTenantNotConfigured = errors.New("tenant is not configured")
