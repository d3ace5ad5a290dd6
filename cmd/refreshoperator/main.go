// Command refreshoperator is the reference server-side counterpart to
// pkg/identity: it serves the refresh RPC, decrypting and re-encrypting
// the same wire envelope pkg/identity/identityhttp speaks on the client
// side. Key rotation policy, the opt-out store's real persistence, and
// usage telemetry are adjacent services and are not built here.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adsid/adsid-go/pkg/errx"
	"github.com/adsid/adsid-go/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	switch getEnv("LOG_LEVEL", "info") {
	case "debug":
		logx.SetLevel(logx.LevelDebug)
	case "warn":
		logx.SetLevel(logx.LevelWarn)
	case "error":
		logx.SetLevel(logx.LevelError)
	default:
		logx.SetLevel(logx.LevelInfo)
	}

	logx.Info("refreshoperator: starting")

	container := NewContainer()
	defer container.Cleanup()

	app := fiber.New(fiber.Config{
		AppName:               "refreshoperator",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler,
		BodyLimit:             64 * 1024,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New(requestid.Config{Header: "X-Request-Id"}))

	app.Get("/health", healthHandler(container))
	app.Post("/v2/token/refresh", refreshHandler(container))
	app.Post("/v2/token/client-generate", bootstrapHandler(container))

	startServer(app)
}

func globalErrorHandler(c *fiber.Ctx, err error) error {
	logx.WithFields(logx.Fields{
		"path":       c.Path(),
		"method":     c.Method(),
		"request_id": c.Get("X-Request-Id"),
	}).WithError(err).Error("refreshoperator: request error")

	if e, ok := err.(*fiber.Error); ok {
		return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
	}

	if e, ok := err.(*errx.Error); ok {
		return c.Status(e.HTTPStatus).JSON(fiber.Map{
			"error":   e.Message,
			"code":    e.Code,
			"type":    string(e.Type),
			"details": e.Details,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}

func startServer(app *fiber.App) {
	port := getEnv("PORT", "8090")

	go func() {
		logx.Infof("refreshoperator: listening on :%s", port)
		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("refreshoperator: server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logx.Info("refreshoperator: shutting down")
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("refreshoperator: forced shutdown: %v", err)
	}
}
