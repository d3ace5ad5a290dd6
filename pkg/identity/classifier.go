package identity

import "github.com/adsid/adsid-go/pkg/kernel"

// classification is the result of classify: a LifecycleState plus whether a
// background refresh is due (only meaningful when State == StateEstablished).
type classification struct {
	State      LifecycleState
	RefreshDue bool
}

// classify is a pure function from (envelope, now) to lifecycle state. It
// performs no I/O and reads no mutable package state.
func classify(e *Envelope, now kernel.Millis) classification {
	if e == nil {
		return classification{State: StateNoIdentity}
	}
	if !e.Valid() {
		return classification{State: StateInvalid}
	}
	if now >= e.RefreshExpires {
		return classification{State: StateRefreshExpired}
	}
	if now >= e.IdentityExpires {
		return classification{State: StateExpired}
	}
	if now >= e.RefreshFrom {
		return classification{State: StateEstablished, RefreshDue: true}
	}
	return classification{State: StateEstablished, RefreshDue: false}
}

// tokenReturnable reports whether the envelope's advertising token may be
// handed to a caller right now: the envelope must be valid and not yet past
// identity_expires.
func tokenReturnable(e *Envelope, now kernel.Millis) bool {
	if e == nil || !e.Valid() {
		return false
	}
	return now < e.IdentityExpires
}
