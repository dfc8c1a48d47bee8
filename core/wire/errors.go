package wire

import (
	"errors"
	"fmt"
)

// Codec error kinds. Use errors.Is to test for them.
var (
	// ErrMalformedMessage reports truncated or invalid wire bytes.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrFieldRange reports an integer that does not fit the field's width.
	ErrFieldRange = errors.New("field value out of range")

	// ErrFieldType reports a value whose Go type cannot represent the field kind.
	ErrFieldType = errors.New("field value has wrong type")

	// ErrUnknownField reports a value key that the schema does not declare.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidSchema reports a schema definition that cannot be used.
	ErrInvalidSchema = errors.New("invalid schema")
)

// FieldError attaches the message and field name to a value error.
type FieldError struct {
	Message string
	Field   string
	Err     error
	Detail  string
}

func (e *FieldError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s.%s: %v: %s", e.Message, e.Field, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s.%s: %v", e.Message, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// DecodeError reports where in the input decoding failed.
type DecodeError struct {
	Message string
	Offset  int
	Reason  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at offset %d: %v: %s", e.Message, e.Offset, ErrMalformedMessage, e.Reason)
}

// Unwrap makes every DecodeError match ErrMalformedMessage.
func (e *DecodeError) Unwrap() error { return ErrMalformedMessage }
