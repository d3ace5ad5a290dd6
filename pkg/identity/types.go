// Package identity implements the client-side lifecycle of a pseudonymous
// advertising identity: classifying an envelope against the current time,
// scheduling background refresh, serializing callers behind a promise-shaped
// accessor, and mirroring the active envelope into a cookie.
package identity

import (
	"github.com/adsid/adsid-go/pkg/kernel"
)

// ClientVersion is attached to every refresh RPC as the X-UID2-Client-Version
// header value.
const ClientVersion = "adsid-go-1.0.0"

// Envelope is the unit persisted in the cookie and exchanged with the
// refresh endpoint.
type Envelope struct {
	AdvertisingToken   string        `json:"advertising_token"`
	RefreshToken       string        `json:"refresh_token"`
	IdentityExpires    kernel.Millis `json:"identity_expires"`
	RefreshFrom        kernel.Millis `json:"refresh_from"`
	RefreshExpires     kernel.Millis `json:"refresh_expires"`
	RefreshResponseKey []byte        `json:"refresh_response_key"`
}

// Valid reports whether e satisfies the structural invariant: all fields
// present, and refresh_from ≤ identity_expires ≤ refresh_expires.
func (e *Envelope) Valid() bool {
	if e == nil {
		return false
	}
	if e.AdvertisingToken == "" || e.RefreshToken == "" || len(e.RefreshResponseKey) == 0 {
		return false
	}
	return e.RefreshFrom <= e.IdentityExpires && e.IdentityExpires <= e.RefreshExpires
}

// LifecycleState is the externally observable classification of an
// envelope at a point in time, per classify.
type LifecycleState string

const (
	StateNoIdentity     LifecycleState = "NO_IDENTITY"
	StateInvalid        LifecycleState = "INVALID"
	StateRefreshExpired LifecycleState = "REFRESH_EXPIRED"
	StateExpired        LifecycleState = "EXPIRED"
	StateEstablished    LifecycleState = "ESTABLISHED"
)

// internalState is the Lifecycle Manager's private state machine, distinct
// from the CallbackStatus taxonomy surfaced to the host.
type internalState string

const (
	internalInitialising                    internalState = "INITIALISING"
	internalEstablished                     internalState = "ESTABLISHED"
	internalRefreshing                      internalState = "REFRESHING"
	internalRefreshInFlightWithExpiredToken internalState = "REFRESH_IN_FLIGHT_WITH_EXPIRED_TOKEN"
	internalUnavailable                     internalState = "UNAVAILABLE"
	internalDisconnected                    internalState = "DISCONNECTED"
)

// CallbackStatus is the taxonomy surfaced verbatim to the host via Config.Callback.
type CallbackStatus string

const (
	StatusEstablished    CallbackStatus = "ESTABLISHED"
	StatusRefreshed      CallbackStatus = "REFRESHED"
	StatusExpired        CallbackStatus = "EXPIRED"
	StatusNoIdentity     CallbackStatus = "NO_IDENTITY"
	StatusInvalid        CallbackStatus = "INVALID"
	StatusRefreshExpired CallbackStatus = "REFRESH_EXPIRED"
	StatusOptout         CallbackStatus = "OPTOUT"
	StatusOptin          CallbackStatus = "OPTIN"
)

// CallbackPayload is what the host-supplied Callback receives on every
// externally observable transition. Both spellings of the token carry the
// same value — kept for compatibility with consumers expecting either.
type CallbackPayload struct {
	AdvertisingTokenSnake string         `json:"advertising_token"`
	AdvertisingToken      string         `json:"advertisingToken"`
	Status                CallbackStatus `json:"status"`
	StatusText            string         `json:"statusText"`
	Identity              *Envelope      `json:"identity"`
}

// Callback is invoked exactly once per externally observable transition.
type Callback func(CallbackPayload)

// Config is the one-shot argument to Manager.Init.
type Config struct {
	Callback Callback
	// Identity, if supplied, is adopted in place of reading the cookie.
	Identity *Envelope
	// RefreshRetryPeriod governs the timer's rearm delay after a
	// recoverable refresh failure. Defaults to 5s, floored at 1s.
	RefreshRetryPeriod kernel.Millis
	BaseURL            string
	CookieDomain       string
	CookiePath         string
}

// RefreshStatus is the decoded `status` field of a refresh RPC response.
type RefreshStatus string

const (
	RefreshSuccess      RefreshStatus = "success"
	RefreshOptout       RefreshStatus = "optout"
	RefreshExpiredToken RefreshStatus = "expired_token"
	RefreshInvalidToken RefreshStatus = "invalid_token"
	RefreshError        RefreshStatus = "error"
)

// RefreshResult is what a Transport returns for a completed refresh RPC.
// Body is populated only when Status == RefreshSuccess.
type RefreshResult struct {
	Status RefreshStatus
	Body   *Envelope
}
