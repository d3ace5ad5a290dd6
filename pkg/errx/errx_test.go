package errx

import (
	"errors"
	"testing"
)

func TestRegisterQualifiesCodeWithPrefix(t *testing.T) {
	r := NewRegistry("DEMO")
	code := r.Register("NOT_READY", TypeBusiness, 422, "demo is not ready")

	e := r.New(code)
	if e.Code != "DEMO_NOT_READY" {
		t.Errorf("code = %q, want DEMO_NOT_READY", e.Code)
	}
	if e.Type != TypeBusiness || e.HTTPStatus != 422 {
		t.Errorf("got type=%s status=%d, want registered values", e.Type, e.HTTPStatus)
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	r := NewRegistry("DEMO")
	r.Register("DUP", TypeInternal, 500, "first")

	defer func() {
		if recover() == nil {
			t.Error("duplicate registration should panic")
		}
	}()
	r.Register("DUP", TypeInternal, 500, "second")
}

func TestNewWithCauseUnwraps(t *testing.T) {
	r := NewRegistry("DEMO")
	code := r.Register("WRAPPED", TypeExternal, 502, "upstream failed")
	cause := errors.New("connection refused")

	e := r.NewWithCause(code, cause)
	if !errors.Is(e, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if got := e.Error(); got != "[DEMO_WRAPPED] upstream failed: connection refused" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWithDetailChains(t *testing.T) {
	r := NewRegistry("DEMO")
	code := r.Register("DETAILED", TypeValidation, 400, "bad input")

	e := r.New(code).WithDetail("field", "site_id").WithDetail("value", 0)
	if e.Details["field"] != "site_id" || e.Details["value"] != 0 {
		t.Errorf("details = %+v", e.Details)
	}
}
