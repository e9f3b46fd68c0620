package payload

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated indicates the frame ends in the middle of a field.
	ErrTruncated = errors.New("truncated frame")
	// ErrBadTag indicates an invalid field tag.
	ErrBadTag = errors.New("invalid tag")
	// ErrWireType indicates an unexpected or unsupported wire type.
	ErrWireType = errors.New("unexpected wire type")
	// ErrOutOfRange indicates the timestamp doesn't fit uint32.
	ErrOutOfRange = errors.New("timestamp out of range")
	// ErrDataTooLong indicates data exceeds MaxDataLen.
	ErrDataTooLong = errors.New("data too long")
	// ErrInvalidUTF8 indicates data isn't valid UTF-8.
	ErrInvalidUTF8 = errors.New("data is not valid UTF-8")
	// ErrMissingField indicates a required field wasn't present.
	ErrMissingField = errors.New("missing field")
)

// DecodeError is returned when a frame can't be decoded.
type DecodeError struct {
	// Offset is where in the frame decoding failed.
	Offset int
	// Field is the field number being decoded, 0 if unknown.
	Field int
	Err   error
}

// Error implements error.
func (e *DecodeError) Error() string {
	if e.Field != 0 {
		return fmt.Sprintf("decode field %d at offset %d: %v", e.Field, e.Offset, e.Err)
	}
	return fmt.Sprintf("decode at offset %d: %v", e.Offset, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError is returned when JSON can't be produced.
type EncodeError struct {
	Err error
}

// Error implements error.
func (e *EncodeError) Error() string {
	return "encode JSON: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *EncodeError) Unwrap() error {
	return e.Err
}
