// Package channel defines the delivery-channel boundary. The pipeline treats
// a channel as a black box that either succeeds or fails with an explicit
// recoverable/hard classification; it never inspects channel-specific error
// types.
package channel

import (
	"context"
	"errors"

	"github.com/dkrasov/postline/internal/models"
)

type Channel interface {
	Name() string
	Deliver(ctx context.Context, media *models.MediaItem, tenant *models.TenantConfig) error
}

// Class is the delivery outcome classification a channel attaches to its
// errors. Unclassified errors are treated as hard (fail closed).
type Class int

const (
	ClassHard Class = iota
	ClassRecoverable
)

type classifiedError struct {
	class Class
	err   error
}

func (e *classifiedError) Error() string { return e.err.Error() }
func (e *classifiedError) Unwrap() error { return e.err }

// Recoverable marks an error as retryable: rate limits, expired credentials,
// transient network faults.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{class: ClassRecoverable, err: err}
}

// Hard marks an error as terminal for the current attempt path.
func Hard(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{class: ClassHard, err: err}
}

func Classify(err error) Class {
	var ce *classifiedError
	if errors.As(err, &ce) {
		return ce.class
	}
	return ClassHard
}
