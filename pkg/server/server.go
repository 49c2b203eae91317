package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kadoten/drivemaid/pkg/organize"
	"github.com/kadoten/drivemaid/pkg/utils/logging"
)

// Drive push notification headers.
const (
	headerResourceState = "X-Goog-Resource-State"
	headerChannelID     = "X-Goog-Channel-ID"
	headerResourceID    = "X-Goog-Resource-ID"
)

// Server receives Drive push notifications and exposes a health probe. The
// reconciler is injected; handlers hold no global state.
type Server struct {
	app        *fiber.App
	reconciler *organize.Reconciler
}

func New(reconciler *organize.Reconciler) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})

	s := &Server{
		app:        app,
		reconciler: reconciler,
	}

	app.Post("/webhook/drive", s.handleWebhook)
	app.Get("/health", s.handleHealth)

	return s
}

// handleWebhook acknowledges immediately; Drive retries aggressively on slow
// responses, so the reconciliation pass is only triggered, never awaited.
func (s *Server) handleWebhook(c *fiber.Ctx) error {
	state := c.Get(headerResourceState)
	logging.Default().Info("drive notification received",
		"state", state,
		"channel_id", c.Get(headerChannelID),
		"resource_id", c.Get(headerResourceID),
	)

	switch state {
	case "change", "update", "add":
		if s.reconciler != nil {
			s.reconciler.Trigger()
		}
	default:
		// "sync" arrives on channel creation; nothing to do
	}

	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	status := "inactive"
	if s.reconciler != nil && s.reconciler.Active() {
		status = "active"
	}

	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"organizer": status,
	})
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
