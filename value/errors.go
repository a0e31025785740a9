package value

import "fmt"

// UnsupportedTypeError is returned when a column's declared type has no decoder.
type UnsupportedTypeError struct {
	Name string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported column type %q", e.Name)
}

// DecodeError is returned when a raw cell cannot be read as its declared type.
type DecodeError struct {
	Type string
	Raw  any
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %T as %s: %v", e.Raw, e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
