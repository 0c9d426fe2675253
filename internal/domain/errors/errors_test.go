package errors

import (
	"errors"
	"testing"
)

func TestErrorFormatsWithAndWithoutCause(t *testing.T) {
	plain := New(CodeNotFound, "missing")
	if plain.Error() != "NOT_FOUND: missing" {
		t.Fatalf("unexpected message: %s", plain.Error())
	}

	wrapped := Wrap(CodeStorage, "save failed", errors.New("disk full"))
	if wrapped.Error() != "STORAGE_ERROR: save failed: disk full" {
		t.Fatalf("unexpected message: %s", wrapped.Error())
	}
}

func TestErrorUnwrapAndIs(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Wrap(CodeTimeout, "deadline", cause)

	if !errors.Is(wrapped, cause) {
		t.Fatal("expected Unwrap to expose cause")
	}

	same := New(CodeTimeout, "deadline")
	if !errors.Is(wrapped, same) {
		t.Fatal("expected Is to match by code+message")
	}

	different := New(CodeTimeout, "other message")
	if errors.Is(wrapped, different) {
		t.Fatal("did not expect match on differing message")
	}
}

func TestWithContextMerges(t *testing.T) {
	base := New(CodeValidationFailed, "bad field").WithContext(map[string]interface{}{"a": 1})
	derived := base.WithContext(map[string]interface{}{"b": 2})

	if len(base.Context) != 1 {
		t.Fatalf("expected base context untouched, got %v", base.Context)
	}
	if len(derived.Context) != 2 {
		t.Fatalf("expected merged context, got %v", derived.Context)
	}
}

func TestIsHelper(t *testing.T) {
	err := NewStorage("write failed", errors.New("io"))
	if !Is(err, CodeStorage) {
		t.Fatal("expected Is helper to detect code")
	}
	if Is(err, CodeTimeout) {
		t.Fatal("did not expect Is helper to match unrelated code")
	}
}
