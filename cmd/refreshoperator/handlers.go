package main

import (
	"encoding/base64"
	"time"

	"github.com/adsid/adsid-go/pkg/idcodec"
	"github.com/adsid/adsid-go/pkg/kernel"
	"github.com/adsid/adsid-go/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

// Identity lifetimes this reference operator mints on every successful
// refresh. A production issuance policy would make these configurable per
// site; they are fixed so the demo is reproducible.
const (
	identityTTL       = time.Hour
	refreshFromBefore = 5 * time.Minute
	refreshTTL        = 30 * 24 * time.Hour
)

// healthHandler answers liveness probes.
func healthHandler(c *Container) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"status":  "healthy",
			"service": "refreshoperator",
		})
	}
}

// refreshHandler implements POST /v2/token/refresh: the body is the
// current refresh_token as raw text, the response is a base64-wrapped,
// AES-GCM-sealed JSON document keyed by the same refresh_response_key the
// client was handed at issuance.
//
// A refresh_token that fails to decode produces a plain, unencrypted 4xx —
// there is no identity to derive a key from, so nothing could be sealed
// even speculatively. On the client, that response fails decryption the
// same way a garbled response would, and is folded into RefreshError by
// pkg/identity/identityhttp — the two sides agree without any special-case
// wiring for this path.
func refreshHandler(c *Container) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		body := ctx.Body()
		if len(body) == 0 {
			return errMissingBody()
		}
		refreshToken := string(body)

		rt, err := c.Codec.DecodeRefreshToken(refreshToken)
		if err != nil {
			logx.WithError(err).Warn("refreshoperator: refresh_token failed to decode")
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "refresh_token could not be decoded",
			})
		}

		ui := rt.UserIdentity
		responseKey, err := deriveResponseKey(c.ResponseKeySeed, ui)
		if err != nil {
			return err
		}

		now := kernel.FromTime(time.Now())

		var resp wireResponse
		switch {
		case c.Optout.isOptedOut(ui):
			logx.WithField("site_id", ui.SiteID).Info("refreshoperator: refresh denied, user opted out")
			resp = wireResponse{Status: "optout"}

		case now > rt.ValidTill:
			logx.WithField("site_id", ui.SiteID).Info("refreshoperator: refresh token past valid_till")
			resp = wireResponse{Status: "expired_token"}

		default:
			env, err := c.issueEnvelope(ui, responseKey, now)
			if err != nil {
				return err
			}
			resp = wireResponse{Status: "success", Body: env}
		}

		sealed, err := encryptWireResponse(responseKey, resp)
		if err != nil {
			return err
		}
		return ctx.Status(fiber.StatusOK).SendString(sealed)
	}
}

// issueEnvelope mints a fresh advertising/refresh token pair for ui,
// encodes both through the shared Codec, and assembles the wire envelope
// shape the client decodes into an identity.Envelope.
func (c *Container) issueEnvelope(ui idcodec.UserIdentity, responseKey []byte, now kernel.Millis) (*wireEnvelope, error) {
	identityExpires := now + kernel.Millis(identityTTL.Milliseconds())
	refreshFrom := identityExpires - kernel.Millis(refreshFromBefore.Milliseconds())
	refreshExpires := now + kernel.Millis(refreshTTL.Milliseconds())

	advTok, err := c.Codec.EncodeAdvertisingToken(idcodec.AdvertisingToken{
		ExpiresAt:    identityExpires,
		UserIdentity: ui,
	})
	if err != nil {
		return nil, err
	}

	refTok, err := c.Codec.EncodeRefreshToken(idcodec.RefreshToken{
		CreatedAt:    now,
		ExpiresAt:    identityExpires,
		ValidTill:    refreshExpires,
		UserIdentity: ui,
	})
	if err != nil {
		return nil, err
	}

	return &wireEnvelope{
		AdvertisingToken:   advTok,
		RefreshToken:       refTok,
		IdentityExpires:    int64(identityExpires),
		RefreshFrom:        int64(refreshFrom),
		RefreshExpires:     int64(refreshExpires),
		RefreshResponseKey: base64.StdEncoding.EncodeToString(responseKey),
	}, nil
}
