package identity

import (
	"testing"

	"github.com/adsid/adsid-go/pkg/kernel"
)

func validEnvelope(now kernel.Millis) *Envelope {
	return &Envelope{
		AdvertisingToken:   "adv-tok",
		RefreshToken:       "refresh-tok",
		RefreshFrom:        now - 1000,
		IdentityExpires:    now + 3_600_000,
		RefreshExpires:     now + 30*24*3_600_000,
		RefreshResponseKey: []byte("0123456789abcdef0123456789abcdef"),
	}
}

func TestClassifyNilEnvelopeIsNoIdentity(t *testing.T) {
	cl := classify(nil, kernel.Millis(1000))
	if cl.State != StateNoIdentity {
		t.Errorf("got %s, want NO_IDENTITY", cl.State)
	}
}

func TestClassifyStructurallyInvalidEnvelope(t *testing.T) {
	now := kernel.Millis(1_000_000)
	e := validEnvelope(now)
	e.RefreshFrom = e.IdentityExpires + 1 // violates refresh_from <= identity_expires
	cl := classify(e, now)
	if cl.State != StateInvalid {
		t.Errorf("got %s, want INVALID", cl.State)
	}
}

func TestClassifyEstablishedNotDue(t *testing.T) {
	now := kernel.Millis(1_000_000)
	e := validEnvelope(now)
	e.RefreshFrom = now + 1000 // not due yet
	cl := classify(e, now)
	if cl.State != StateEstablished || cl.RefreshDue {
		t.Errorf("got state=%s refreshDue=%v, want ESTABLISHED/false", cl.State, cl.RefreshDue)
	}
}

func TestClassifyEstablishedRefreshDue(t *testing.T) {
	now := kernel.Millis(1_000_000)
	e := validEnvelope(now)
	e.RefreshFrom = now - 1
	cl := classify(e, now)
	if cl.State != StateEstablished || !cl.RefreshDue {
		t.Errorf("got state=%s refreshDue=%v, want ESTABLISHED/true", cl.State, cl.RefreshDue)
	}
}

func TestClassifyExpired(t *testing.T) {
	now := kernel.Millis(1_000_000)
	e := validEnvelope(now)
	e.IdentityExpires = now - 1
	e.RefreshFrom = e.IdentityExpires - 1
	cl := classify(e, now)
	if cl.State != StateExpired {
		t.Errorf("got %s, want EXPIRED", cl.State)
	}
}

func TestClassifyRefreshExpired(t *testing.T) {
	now := kernel.Millis(1_000_000)
	e := validEnvelope(now)
	e.RefreshExpires = now - 1
	e.IdentityExpires = now - 2
	e.RefreshFrom = now - 3
	cl := classify(e, now)
	if cl.State != StateRefreshExpired {
		t.Errorf("got %s, want REFRESH_EXPIRED", cl.State)
	}
}

// TestEstablishedImpliesReturnable: classify(E,t) = ESTABLISHED implies
// tokenReturnable(E,t).
func TestEstablishedImpliesReturnable(t *testing.T) {
	now := kernel.Millis(5_000_000)
	cases := []*Envelope{
		func() *Envelope { e := validEnvelope(now); e.RefreshFrom = now + 1000; return e }(),
		func() *Envelope { e := validEnvelope(now); e.RefreshFrom = now - 1000; return e }(),
	}
	for i, e := range cases {
		cl := classify(e, now)
		if cl.State == StateEstablished && !tokenReturnable(e, now) {
			t.Errorf("case %d: ESTABLISHED but not returnable", i)
		}
	}
}

// TestReturnableImpliesEstablished is the converse invariant.
func TestReturnableImpliesEstablished(t *testing.T) {
	now := kernel.Millis(5_000_000)
	for _, e := range []*Envelope{
		validEnvelope(now),
		nil,
		func() *Envelope { e := validEnvelope(now); e.RefreshExpires = now - 1; e.IdentityExpires = now - 2; e.RefreshFrom = now - 3; return e }(),
	} {
		if tokenReturnable(e, now) {
			cl := classify(e, now)
			if cl.State != StateEstablished {
				t.Errorf("returnable but classify = %s, want ESTABLISHED", cl.State)
			}
		}
	}
}
