package protocol

import (
	"errors"
	"testing"
)

func TestTransient(t *testing.T) {
	for _, status := range []int{500, 502, 504, 503, 599} {
		if !Transient(status) {
			t.Fatalf("expected transient status: %d", status)
		}
	}
	for _, status := range []int{200, 400, 403, 404, 409, 422, 600, 608, 1000} {
		if Transient(status) {
			t.Fatalf("expected non-transient status: %d", status)
		}
	}
}

func TestServerErrorAsError(t *testing.T) {
	var err error = &ServerError{Code: CodeLicenseCap, Message: "too many active licenses"}
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("errors.As failed")
	}
	if se.Code != 409 {
		t.Fatalf("code = %d, want 409", se.Code)
	}
}

func TestLicenseAllowance(t *testing.T) {
	l := License{ID: 7, DigAllowed: 3}
	if !l.Active() || l.Exhausted() {
		t.Fatalf("fresh license should be active")
	}
	l.DigUsed = 3
	if l.Active() || !l.Exhausted() {
		t.Fatalf("spent license should be exhausted")
	}
}
