package main

import (
	"time"

	"github.com/adsid/adsid-go/pkg/idcodec"
	"github.com/adsid/adsid-go/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// bootstrapRequest is the body POST /v2/token/client-generate accepts.
type bootstrapRequest struct {
	SiteID uint32 `json:"site_id"`
	ID     string `json:"id"`
}

// bootstrapHandler mints a first envelope for a (site, id) pair. Initial
// token issuance belongs to a separate first-party "login" flow — this
// exists only so cmd/clientdemo has something to call instead of
// requiring a second operator. The response is plain JSON, not the
// encrypted refresh envelope: there is no prior refresh_response_key to
// wrap it under, so it is handed to the caller in the clear, exactly once.
func bootstrapHandler(c *Container) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		var req bootstrapRequest
		if err := ctx.BodyParser(&req); err != nil {
			return errBadSiteParam()
		}
		if req.ID == "" {
			req.ID = "demo-user"
		}

		ui := idcodec.UserIdentity{
			ID:            req.ID,
			SiteID:        kernel.SiteID(req.SiteID),
			EstablishedAt: kernel.FromTime(time.Now()),
		}

		responseKey, err := deriveResponseKey(c.ResponseKeySeed, ui)
		if err != nil {
			return err
		}

		env, err := c.issueEnvelope(ui, responseKey, kernel.FromTime(time.Now()))
		if err != nil {
			return err
		}
		return ctx.JSON(env)
	}
}
