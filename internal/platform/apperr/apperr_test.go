package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("doctorId is required"), http.StatusBadRequest},
		{"conflict", Conflict("Doctor ID already exists"), http.StatusBadRequest},
		{"forbidden", Forbidden("Forbidden"), http.StatusForbidden},
		{"unauthorized", Unauthorized("Invalid credentials"), http.StatusUnauthorized},
		{"not found", NotFound("Bed not found"), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load bed: %w", NotFound("Bed not found")), http.StatusNotFound},
		{"bare sentinel", ErrForbidden, http.StatusForbidden},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClassified_KeepsMessage(t *testing.T) {
	err := NotFound("Doctor %s not found", "DOC100")
	if err.Error() != "Doctor DOC100 not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is(err, ErrNotFound)")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("did not expect ErrValidation")
	}
}
