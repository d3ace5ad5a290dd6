// Package idcodec implements the encrypted token envelope the refresh
// endpoint and any client that talks to it must agree on byte-for-byte:
// deterministic encoding and decoding of advertising, user and refresh
// tokens, with a per-site inner encryption layer nested inside a
// service-wide outer layer.
package idcodec

import "github.com/adsid/adsid-go/pkg/kernel"

// Version is the only token wire version this codec understands. Decoding
// a token whose embedded version byte differs from Version fails —
// supporting prior token versions is an explicit non-goal.
const Version byte = 2

// UserIdentity is the payload every token shape ultimately protects: who
// the token is for, which site established it, and under what privacy
// settings.
type UserIdentity struct {
	ID            string
	SiteID        kernel.SiteID
	PrivacyBits   uint32
	EstablishedAt kernel.Millis
}

// AdvertisingToken is the short-lived token applications attach to
// outgoing bid requests. CreatedAt is not part of the wire format — it is
// re-stamped at decode time to the instant decoding happened, so
// round-tripping an AdvertisingToken through Encode/Decode preserves every
// field except CreatedAt.
type AdvertisingToken struct {
	Version      byte
	CreatedAt    kernel.Millis
	ExpiresAt    kernel.Millis
	UserIdentity UserIdentity
}

// RefreshToken is the opaque credential presented to the refresh endpoint.
type RefreshToken struct {
	Version      byte
	CreatedAt    kernel.Millis
	ExpiresAt    kernel.Millis
	ValidTill    kernel.Millis
	UserIdentity UserIdentity
}

// UserToken is an internal, site-scoped representation of the same
// identity an AdvertisingToken carries, encrypted with only the site
// layer (no master-key layer). PrivacyBits2 carries a second, independent
// privacy bitfield some sites attach at the user-token layer; like
// CreatedAt/ExpiresAt it is a logical field on the Go type but is not part
// of the wire envelope itself (see DESIGN.md).
type UserToken struct {
	Version      byte
	CreatedAt    kernel.Millis
	ExpiresAt    kernel.Millis
	UserIdentity UserIdentity
	PrivacyBits2 uint32
}
