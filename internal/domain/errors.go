package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function;
// workers classify them with errors.Is.
var (
	// ErrValidation is wrapped by every intake validation failure.
	ErrValidation = errors.New("validation error")

	ErrMissingUserID   = validation("userId is required")
	ErrMissingType     = validation("type is required")
	ErrInvalidChannel  = validation("invalid channel: must be email, sms, push, or in_app")
	ErrInvalidPriority = validation("invalid priority: must be urgent, high, or normal")
	ErrInvalidPayload  = validation("data does not satisfy the schema for this type")
	ErrBulkEmpty       = validation("userIds must contain at least one recipient")
	ErrBulkTooLarge    = validation("userIds exceeds maximum of 1000 recipients")

	ErrNotFound       = errors.New("not found")
	ErrAlreadySettled = errors.New("notification already reached a terminal status")

	// ErrTemplateNotFound means the email registry has no template for the type.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrRender means the payload could not fill the template for its type.
	ErrRender = errors.New("render failed")
	// ErrTransport wraps any rejection or timeout from an external transport.
	ErrTransport = errors.New("transport error")
	// ErrUndeliverable means the recipient has no address for the channel.
	// It is terminal: retrying cannot succeed.
	ErrUndeliverable = errors.New("undeliverable")

	ErrQueueFull   = errors.New("queue is at capacity, try again later")
	ErrQueueClosed = errors.New("queue is closed")
)

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Is(target error) bool { return target == ErrValidation }

func validation(msg string) error { return &validationError{msg: msg} }
