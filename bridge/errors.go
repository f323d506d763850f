package bridge

import "errors"

// V8Error represents an engine-level failure: script compile, script run,
// missing handles, execution timeout, or execution incomplete (the
// completion channel disconnected before settlement). The name keeps the
// conventional engine-error vocabulary even though the runtime
// underneath is goja, not V8.
type V8Error struct {
	err error
}

func (e *V8Error) Error() string { return e.err.Error() }
func (e *V8Error) Unwrap() error { return e.err }

// NewV8Error wraps msg as an engine-level error.
func NewV8Error(msg string) error { return &V8Error{err: errors.New(msg)} }

// WrapV8Error wraps an existing error as engine-level.
func WrapV8Error(err error) error {
	if err == nil {
		return nil
	}
	return &V8Error{err: err}
}

// IsV8Error reports whether err is (or wraps) a V8Error.
func IsV8Error(err error) bool {
	var v *V8Error
	return errors.As(err, &v)
}

// ToolError represents a script-observable rejection: either a tool
// callback rejected (message from the provider) or the top-level promise
// rejected (message is the stringified rejection value).
type ToolError struct {
	err error
}

func (e *ToolError) Error() string { return e.err.Error() }
func (e *ToolError) Unwrap() error { return e.err }

// NewToolError wraps msg as a tool-level error.
func NewToolError(msg string) error { return &ToolError{err: errors.New(msg)} }

// WrapToolError wraps an existing error as tool-level.
func WrapToolError(err error) error {
	if err == nil {
		return nil
	}
	return &ToolError{err: err}
}

// IsToolError reports whether err is (or wraps) a ToolError.
func IsToolError(err error) bool {
	var t *ToolError
	return errors.As(err, &t)
}

// SerializationError represents a JSON <-> engine-value conversion
// failure at the bridge.
type SerializationError struct {
	err error
}

func (e *SerializationError) Error() string { return e.err.Error() }
func (e *SerializationError) Unwrap() error { return e.err }

// NewSerializationError wraps msg as a serialization error.
func NewSerializationError(msg string) error { return &SerializationError{err: errors.New(msg)} }

// WrapSerializationError wraps an existing error as a serialization error.
func WrapSerializationError(err error) error {
	if err == nil {
		return nil
	}
	return &SerializationError{err: err}
}

// IsSerializationError reports whether err is (or wraps) a SerializationError.
func IsSerializationError(err error) bool {
	var s *SerializationError
	return errors.As(err, &s)
}
