// Package v1 is the public ingestion API consumed by the tracking
// client embedded in the site's pages.
package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"miru/internal/config"
	"miru/internal/events"
	"miru/internal/http/middleware"
)

const errInvalidRequest = "Invalid request"

// Handler serves the public event collection endpoints.
type Handler struct {
	db     *gorm.DB
	cfg    *config.Config
	logger *slog.Logger
}

func NewHandler(db *gorm.DB, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{db: db, cfg: cfg, logger: logger}
}

// CreateEventsParams is the ingestion request body: the client GUID plus
// its buffered event batch.
type CreateEventsParams struct {
	GUID   string                 `json:"guid"`
	Events []events.IncomingEvent `json:"events"`
}

// CreateEvents handles POST /api/v1/events. Any invalid event rejects
// the whole batch with 400; nothing is written then.
func (h *Handler) CreateEvents(c *fiber.Ctx) error {
	var params CreateEventsParams
	if err := c.BodyParser(&params); err != nil {
		h.logger.Debug("failed to parse ingest request", slog.Any("error", err))
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidRequest})
	}

	result, err := h.ingest(c, params)
	if err != nil {
		if errors.Is(err, events.ErrInvalidBatch) {
			h.logger.Debug("rejected event batch", slog.Any("error", err))
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Error("failed to ingest event batch", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to collect events",
		})
	}

	return c.Status(http.StatusAccepted).JSON(result)
}

// CreateEventsBeacon handles batches flushed via navigator.sendBeacon on
// page unload. Beacon responses are never read by the browser, so every
// outcome answers 202.
func (h *Handler) CreateEventsBeacon(c *fiber.Ctx) error {
	// sendBeacon posts text/plain, so the body is decoded directly.
	var params CreateEventsParams
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		h.logger.Debug("failed to parse beacon request", slog.Any("error", err))
		return c.SendStatus(http.StatusAccepted)
	}

	if _, err := h.ingest(c, params); err != nil {
		h.logger.Debug("failed to ingest beacon batch", slog.Any("error", err))
	}
	return c.SendStatus(http.StatusAccepted)
}

func (h *Handler) ingest(c *fiber.Ctx, params CreateEventsParams) (*events.IngestResult, error) {
	userAgent := c.Get("User-Agent")
	if forwarded := c.Get("X-Forwarded-User-Agent"); forwarded != "" {
		userAgent = forwarded
	}

	return events.Ingest(h.db, h.logger, events.IngestInput{
		GUID:      params.GUID,
		Events:    params.Events,
		UserAgent: userAgent,
		IP:        getClientIP(c),
		UserID:    middleware.OptionalUserID(c, h.cfg),
	})
}
