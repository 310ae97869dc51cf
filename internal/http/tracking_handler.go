// Package http serves the admin-facing tracking API. Dashboards prefer
// an empty chart over an error page, so storage failures degrade to
// empty payloads while bad query parameters stay hard 400s.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"miru/internal/analytics"
	"miru/internal/pagination"
	"miru/internal/timeframe"
)

// TrackingHandler serves the admin tracking endpoints.
type TrackingHandler struct {
	service *analytics.Service
	logger  *slog.Logger
}

func NewTrackingHandler(service *analytics.Service, logger *slog.Logger) *TrackingHandler {
	return &TrackingHandler{service: service, logger: logger}
}

// parseTimeFrame reads the optional startDate/endDate query pair.
func parseTimeFrame(c *fiber.Ctx) (timeframe.TimeFrame, error) {
	return timeframe.ParseRange(c.Query("startDate"), c.Query("endDate"), time.Now())
}

// parsePageParams reads the optional page/pageSize query pair.
func parsePageParams(c *fiber.Ctx) (int, int, error) {
	page := c.QueryInt("page", pagination.DefaultPage)
	pageSize := c.QueryInt("pageSize", pagination.DefaultPageSize)
	if err := pagination.Validate(page, pageSize); err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

// GetOverview handles GET /overview.
func (h *TrackingHandler) GetOverview(c *fiber.Ctx) error {
	tf, err := parseTimeFrame(c)
	if err != nil {
		return badRequest(c, err)
	}

	overview, err := h.service.Overview(c.Context(), tf)
	if err != nil {
		h.logger.Error("overview query failed", slog.Any("error", err))
		overview = &analytics.Overview{
			DeviceStats:    []analytics.DeviceStat{},
			EventTypeStats: []analytics.EventTypeStat{},
		}
	}
	return c.JSON(overview)
}

// GetPages handles GET /pages.
func (h *TrackingHandler) GetPages(c *fiber.Ctx) error {
	tf, err := parseTimeFrame(c)
	if err != nil {
		return badRequest(c, err)
	}
	page, pageSize, err := parsePageParams(c)
	if err != nil {
		return badRequest(c, err)
	}

	stats, err := h.service.Pages(tf, page, pageSize)
	if err != nil {
		h.logger.Error("page aggregation failed", slog.Any("error", err))
		stats = &analytics.PageStats{
			Pages: []analytics.PageStatsRow{},
			Meta:  pagination.NewMeta(page, pageSize, 0),
		}
	}
	return c.JSON(stats)
}

// GetPageVisitors handles GET /pages/visitors?pageUrl=...
func (h *TrackingHandler) GetPageVisitors(c *fiber.Ctx) error {
	pageURL := c.Query("pageUrl")
	if pageURL == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "pageUrl is required"})
	}
	tf, err := parseTimeFrame(c)
	if err != nil {
		return badRequest(c, err)
	}
	page, pageSize, err := parsePageParams(c)
	if err != nil {
		return badRequest(c, err)
	}

	result, err := h.service.PageVisitors(tf, pageURL, page, pageSize)
	if err != nil {
		h.logger.Error("page visitor query failed",
			slog.String("page_url", pageURL), slog.Any("error", err))
		result = &analytics.PageVisitors{
			Visitors: []analytics.PageVisitorRow{},
			Meta:     pagination.NewMeta(page, pageSize, 0),
		}
	}
	return c.JSON(result)
}

// GetContents handles GET /contents.
func (h *TrackingHandler) GetContents(c *fiber.Ctx) error {
	tf, err := parseTimeFrame(c)
	if err != nil {
		return badRequest(c, err)
	}
	page, pageSize, err := parsePageParams(c)
	if err != nil {
		return badRequest(c, err)
	}

	stats, err := h.service.Contents(tf, page, pageSize)
	if err != nil {
		h.logger.Error("content aggregation failed", slog.Any("error", err))
		stats = &analytics.ContentStats{
			Contents: []analytics.ContentStatsRow{},
			Meta:     pagination.NewMeta(page, pageSize, 0),
		}
	}
	return c.JSON(stats)
}

// GetContentVisitors handles GET /contents/visitors?contentId=...
func (h *TrackingHandler) GetContentVisitors(c *fiber.Ctx) error {
	contentID := c.Query("contentId")
	if contentID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "contentId is required"})
	}
	tf, err := parseTimeFrame(c)
	if err != nil {
		return badRequest(c, err)
	}
	page, pageSize, err := parsePageParams(c)
	if err != nil {
		return badRequest(c, err)
	}

	result, err := h.service.ContentVisitors(tf, contentID, page, pageSize)
	if err != nil {
		h.logger.Error("content visitor query failed",
			slog.String("content_id", contentID), slog.Any("error", err))
		result = &analytics.ContentVisitors{
			Visitors: []analytics.ContentVisitorRow{},
			Meta:     pagination.NewMeta(page, pageSize, 0),
		}
	}
	return c.JSON(result)
}

// GetVisitors handles GET /visitors.
func (h *TrackingHandler) GetVisitors(c *fiber.Ctx) error {
	tf, err := parseTimeFrame(c)
	if err != nil {
		return badRequest(c, err)
	}
	page, pageSize, err := parsePageParams(c)
	if err != nil {
		return badRequest(c, err)
	}

	list, err := h.service.Visitors(tf, page, pageSize)
	if err != nil {
		h.logger.Error("visitor listing failed", slog.Any("error", err))
		list = &analytics.VisitorList{
			Visitors: []analytics.VisitorRow{},
			Meta:     pagination.NewMeta(page, pageSize, 0),
		}
	}
	return c.JSON(list)
}

// GetTrend handles GET /trend?kind=...&granularity=...
func (h *TrackingHandler) GetTrend(c *fiber.Ctx) error {
	tf, err := parseTimeFrame(c)
	if err != nil {
		return badRequest(c, err)
	}
	granularity, err := timeframe.ParseGranularity(c.Query("granularity"))
	if err != nil {
		return badRequest(c, err)
	}
	kind, err := analytics.ParseTrendKind(c.Query("kind"))
	if err != nil {
		return badRequest(c, err)
	}

	trend, err := h.service.Trend(tf, granularity, kind)
	if err != nil {
		h.logger.Error("trend query failed",
			slog.String("kind", string(kind)), slog.Any("error", err))
		trend = &analytics.Trend{
			Kind:        kind,
			Granularity: granularity,
			Points:      []analytics.TrendPoint{},
		}
	}
	return c.JSON(trend)
}
