package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Accumulates(t *testing.T) {
	t.Parallel()

	vErr := &ValidationError{}
	if vErr.HasErrors() {
		t.Fatal("expected a fresh validation error to be empty")
	}

	vErr.add("title", "title is required")
	vErr.add("date", "date is required")

	if !vErr.HasErrors() {
		t.Fatal("expected recorded issues")
	}
	if len(vErr.FieldErrors) != 2 {
		t.Fatalf("expected 2 field errors, got %v", vErr.FieldErrors)
	}
	if vErr.Error() != "validation failed" {
		t.Fatalf("unexpected message %q", vErr.Error())
	}
}

func TestPersistenceError_Unwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := fmt.Errorf("saving agenda: %w", &PersistenceError{Op: "create", Err: cause})

	var pErr *PersistenceError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected PersistenceError in chain, got %v", err)
	}
	if pErr.Op != "create" {
		t.Fatalf("unexpected op %q", pErr.Op)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected the cause to survive unwrapping")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "not found", err: ErrNotFound, want: "not_found"},
		{name: "wrapped not found", err: fmt.Errorf("lookup: %w", ErrNotFound), want: "not_found"},
		{name: "validation", err: &ValidationError{FieldErrors: map[string]string{"title": "required"}}, want: "validation"},
		{name: "persistence", err: &PersistenceError{Op: "save", Err: errors.New("io")}, want: "persistence"},
		{name: "unexpected", err: errors.New("boom"), want: "unexpected"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ErrorKind(tc.err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
