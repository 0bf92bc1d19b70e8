package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"unsupported type", ErrUnsupportedType, true},
		{"duplicate field", ErrDuplicateField, true},
		{"accessor invocation", ErrAccessorInvocation, true},
		{"record type mismatch", ErrRecordTypeMismatch, true},
		{"store exists", ErrStoreExists, true},
		{"invalid config", ErrInvalidConfig, true},
		{"type not registered", ErrTypeNotRegistered, false},
		{"plain error", fmt.Errorf("something else"), false},
		{"wrapped unsupported", fmt.Errorf("derive: %w", ErrUnsupportedType), true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsInvalid(test.err); got != test.expected {
				t.Errorf("IsInvalid(%v) = %v, want %v", test.err, got, test.expected)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"type not registered", ErrTypeNotRegistered, true},
		{"shape mismatch", ErrShapeMismatch, true},
		{"store corrupted", ErrStoreCorrupted, true},
		{"unsupported type", ErrUnsupportedType, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsFatal(test.err); got != test.expected {
				t.Errorf("IsFatal(%v) = %v, want %v", test.err, got, test.expected)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(base, "Materializer", "Materialize", "accessor invocation")

	if err == nil {
		t.Fatal("expected non-nil error")
	}
	expected := "Materializer.Materialize: accessor invocation failed: boom"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("wrapped error should match base with errors.Is")
	}
	if Wrap(nil, "a", "b", "c") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrapClassified(t *testing.T) {
	base := ErrTypeNotRegistered

	fatal := WrapFatal(base, "Runner", "Run", "type resolution")
	if !IsFatal(fatal) {
		t.Error("WrapFatal result should classify as fatal")
	}
	if !errors.Is(fatal, ErrTypeNotRegistered) {
		t.Error("classified error should unwrap to sentinel")
	}

	invalid := WrapInvalid(errors.New("bad delimiter"), "Infer", "Delimited", "option validation")
	if !IsInvalid(invalid) {
		t.Error("WrapInvalid result should classify as invalid")
	}

	transient := WrapTransient(errors.New("bucket busy"), "Store", "CreateEmpty", "bucket creation")
	if !IsTransient(transient) {
		t.Error("WrapTransient result should classify as transient")
	}

	var ce *ClassifiedError
	if !errors.As(fatal, &ce) {
		t.Fatal("expected ClassifiedError in chain")
	}
	if ce.Component != "Runner" || ce.Operation != "Run" {
		t.Errorf("unexpected context: %+v", ce)
	}
}

func TestClassify(t *testing.T) {
	if Classify(ErrShapeMismatch) != ErrorFatal {
		t.Error("shape mismatch should classify fatal")
	}
	if Classify(ErrUnsupportedType) != ErrorInvalid {
		t.Error("unsupported type should classify invalid")
	}
	if Classify(errors.New("unknown")) != ErrorTransient {
		t.Error("unknown errors default to transient")
	}
}
