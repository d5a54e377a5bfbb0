package errors

import (
	"errors"
	"io/fs"
	"testing"
	"time"
)

func TestNameError(t *testing.T) {
	err := NewNameError("List<String", "does not end with '>'")

	if err.Type != ErrorTypeMalformedName {
		t.Errorf("Expected Type to be ErrorTypeMalformedName, got %v", err.Type)
	}

	if !errors.Is(err, ErrMalformedName) {
		t.Errorf("Expected error to match ErrMalformedName")
	}

	if errors.Is(err, ErrValidationRejected) {
		t.Errorf("Did not expect error to match ErrValidationRejected")
	}

	expectedMsg := `malformed name "List<String": does not end with '>'`
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("a.b-c.D", "b-c")

	if err.Type != ErrorTypeValidation {
		t.Errorf("Expected Type to be ErrorTypeValidation, got %v", err.Type)
	}

	if !errors.Is(err, ErrValidationRejected) {
		t.Errorf("Expected error to match ErrValidationRejected")
	}

	var target *ValidationError
	if !errors.As(err, &target) || target.Segment != "b-c" {
		t.Errorf("Expected errors.As to expose the rejected segment")
	}
}

func TestIndexingError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := NewIndexingError("scan", underlying).
		WithRoot("/src", "com.acme").
		WithRecoverable(true)

	if err.Type != ErrorTypeIndexing {
		t.Errorf("Expected Type to be ErrorTypeIndexing, got %v", err.Type)
	}

	if err.Package != "com.acme" {
		t.Errorf("Expected Package to be 'com.acme', got %s", err.Package)
	}

	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	if !err.IsRecoverable() {
		t.Errorf("Expected error to be marked as recoverable")
	}

	expectedMsg := "indexing scan failed for /src: underlying error"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestEventError(t *testing.T) {
	underlying := errors.New("unknown kind")
	err := NewEventError("refresh", "a/B.json", underlying)

	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	expectedMsg := "refresh event for a/B.json failed: unknown kind"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestFileError(t *testing.T) {
	underlying := errors.New("permission denied")
	err := NewFileError("read", "/path/to/file", underlying)

	if err.Type != ErrorTypePermission {
		t.Errorf("Expected Type to be ErrorTypePermission, got %v", err.Type)
	}

	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	expectedMsg := "file read failed for /path/to/file: permission denied"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestFileErrorWrappedPermission(t *testing.T) {
	underlying := &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}
	err := NewFileError("list", "/x", underlying)

	if err.Type != ErrorTypePermission {
		t.Errorf("Expected Type to be ErrorTypePermission, got %v", err.Type)
	}
}

func TestFileErrorWithNotFound(t *testing.T) {
	underlying := errors.New("no such file or directory")
	err := NewFileError("stat", "/missing/file", underlying)

	if err.Type != ErrorTypeFileNotFound {
		t.Errorf("Expected Type to be ErrorTypeFileNotFound, got %v", err.Type)
	}
}

func TestConfigError(t *testing.T) {
	underlying := errors.New("invalid value")
	err := NewConfigError("field_name", "invalid_value", underlying)

	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	expectedMsg := `config error for field field_name (value invalid_value): invalid value`
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestMultiError(t *testing.T) {
	err1 := errors.New("error 1")
	err2 := errors.New("error 2")
	err3 := errors.New("error 3")

	multiErr := NewMultiError([]error{err1, err2, err3})

	if len(multiErr.Errors) != 3 {
		t.Errorf("Expected 3 errors, got %d", len(multiErr.Errors))
	}

	errMsg := multiErr.Error()
	if len(errMsg) < 10 || errMsg[:10] != "3 errors: " {
		t.Errorf("Expected message to start with '3 errors: ', got %q", errMsg)
	}

	if !errors.Is(multiErr, err2) {
		t.Errorf("Expected errors.Is to find a wrapped error")
	}

	singleErr := NewMultiError([]error{err1})
	if singleErr.Error() != "error 1" {
		t.Errorf("Expected 'error 1', got %q", singleErr.Error())
	}

	emptyErr := NewMultiError([]error{nil, nil})
	if emptyErr.Error() != "no errors" {
		t.Errorf("Expected 'no errors', got %q", emptyErr.Error())
	}
	if emptyErr.ErrorOrNil() != nil {
		t.Errorf("Expected ErrorOrNil to return nil for an empty MultiError")
	}
	if multiErr.ErrorOrNil() == nil {
		t.Errorf("Expected ErrorOrNil to return the MultiError")
	}
}

func TestTimestamp(t *testing.T) {
	err := NewIndexingError("test", errors.New("test"))
	if err.Timestamp.IsZero() {
		t.Errorf("Expected non-zero timestamp")
	}

	now := time.Now()
	if err.Timestamp.After(now) || now.Sub(err.Timestamp) > time.Second {
		t.Errorf("Timestamp seems incorrect: %v", err.Timestamp)
	}
}

func BenchmarkNameError(b *testing.B) {
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		err := NewNameError("List<String", "does not end with '>'")
		_ = err.Error()
	}
}
