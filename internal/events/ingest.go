// Package events owns the ingestion write path and the stored event
// schema the aggregators query.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mileusna/useragent"
	"gorm.io/gorm"

	"miru/internal/config"
	"miru/internal/pkg/geoip"
	"miru/internal/visitors"
)

// ErrInvalidBatch marks client errors: the batch was rejected as a whole
// and nothing was written.
var ErrInvalidBatch = errors.New("invalid event batch")

// IncomingEvent is one event as submitted by the tracking client.
type IncomingEvent struct {
	EventType  string                 `json:"eventType"`
	EventName  string                 `json:"eventName"`
	ElementID  string                 `json:"elementId"`
	ElementTag string                 `json:"elementTag"`
	PageURL    string                 `json:"pageUrl"`
	PageTitle  string                 `json:"pageTitle"`
	Referrer   string                 `json:"referrer"`
	DeviceType string                 `json:"deviceType"`
	Viewport   string                 `json:"viewport"`
	Screen     string                 `json:"screen"`
	SessionID  string                 `json:"sessionId"`
	Timestamp  string                 `json:"timestamp"`
	ExtraData  map[string]interface{} `json:"extraData"`
}

// IngestInput is one ingestion call: the client GUID, its batch, and the
// request metadata used to resolve the visitor.
type IngestInput struct {
	GUID      string
	Events    []IncomingEvent
	UserAgent string
	IP        string
	UserID    *uint
}

// IngestResult reports the resolved visitor and how many events were
// written.
type IngestResult struct {
	VisitorID      uint `json:"visitorId"`
	EventsAccepted int  `json:"eventsAccepted"`
}

// Ingest validates a batch, resolves its visitor once, and writes every
// event with the visitor's current user link denormalized onto each row.
// Any invalid event rejects the whole batch before the visitor is
// touched.
func Ingest(db *gorm.DB, logger *slog.Logger, input IngestInput) (*IngestResult, error) {
	cfg := config.GetConfig()

	if input.GUID == "" {
		return nil, fmt.Errorf("%w: visitor guid is required", ErrInvalidBatch)
	}
	if err := uuid.Validate(input.GUID); err != nil {
		return nil, fmt.Errorf("%w: visitor guid is not a valid uuid", ErrInvalidBatch)
	}
	if len(input.Events) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidBatch)
	}
	if len(input.Events) > cfg.MaxEventsPerBatch {
		return nil, fmt.Errorf("%w: batch of %d exceeds limit of %d",
			ErrInvalidBatch, len(input.Events), cfg.MaxEventsPerBatch)
	}

	now := time.Now().UTC()
	rows := make([]Event, 0, len(input.Events))
	for i, incoming := range input.Events {
		row, err := buildRow(incoming, input.UserAgent, now)
		if err != nil {
			return nil, fmt.Errorf("%w: event %d: %s", ErrInvalidBatch, i, err)
		}
		rows = append(rows, row)
	}

	visitor, err := visitors.Resolve(db, visitors.ResolveInput{
		GUID:      input.GUID,
		UserAgent: input.UserAgent,
		IP:        input.IP,
		Country:   geoip.CountryCode(input.IP),
		UserID:    input.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve visitor: %w", err)
	}

	for i := range rows {
		rows[i].VisitorID = visitor.ID
		rows[i].UserID = visitor.UserID
	}

	if err := db.CreateInBatches(rows, len(rows)).Error; err != nil {
		return nil, fmt.Errorf("failed to persist events: %w", err)
	}

	logger.Debug("ingested event batch",
		slog.Uint64("visitor_id", uint64(visitor.ID)),
		slog.Int("events", len(rows)))

	return &IngestResult{VisitorID: visitor.ID, EventsAccepted: len(rows)}, nil
}

// buildRow validates one incoming event and converts it to a storage
// row. Enum violations and missing required fields are errors; oversized
// free-text fields are truncated to their column caps.
func buildRow(in IncomingEvent, userAgent string, now time.Time) (Event, error) {
	eventType := EventType(in.EventType)
	if !ValidEventType(eventType) {
		return Event{}, fmt.Errorf("unknown event type %q", in.EventType)
	}
	if in.EventName == "" {
		return Event{}, errors.New("event name is required")
	}
	if in.PageURL == "" {
		return Event{}, errors.New("page url is required")
	}

	deviceType := DeviceType(in.DeviceType)
	if in.DeviceType == "" {
		deviceType = deviceFromUserAgent(userAgent)
	} else if !ValidDeviceType(deviceType) {
		return Event{}, fmt.Errorf("unknown device type %q", in.DeviceType)
	}

	timestamp := now
	if in.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, in.Timestamp)
		if err != nil {
			return Event{}, fmt.Errorf("timestamp %q is not RFC 3339", in.Timestamp)
		}
		timestamp = parsed.UTC()
	}

	extraData := ""
	if len(in.ExtraData) > 0 {
		encoded, err := json.Marshal(in.ExtraData)
		if err != nil {
			return Event{}, fmt.Errorf("extra data is not encodable: %v", err)
		}
		extraData = string(encoded)
	}

	return Event{
		EventType:  eventType,
		EventName:  truncate(in.EventName, MaxEventNameLength),
		ElementID:  truncate(in.ElementID, MaxElementIDLength),
		ElementTag: truncate(in.ElementTag, MaxElementTagLength),
		PageURL:    truncate(in.PageURL, MaxPageURLLength),
		PageTitle:  truncate(in.PageTitle, MaxPageTitleLength),
		Referrer:   truncate(in.Referrer, MaxReferrerLength),
		DeviceType: deviceType,
		Viewport:   truncate(in.Viewport, MaxViewportLength),
		Screen:     truncate(in.Screen, MaxScreenLength),
		SessionID:  truncate(in.SessionID, MaxSessionIDLength),
		ExtraData:  extraData,
		Timestamp:  timestamp,
	}, nil
}

// deviceFromUserAgent classifies the request user agent when the client
// did not report a device type.
func deviceFromUserAgent(raw string) DeviceType {
	ua := useragent.Parse(raw)
	switch {
	case ua.Tablet:
		return DeviceTypeTablet
	case ua.Mobile:
		return DeviceTypeMobile
	default:
		return DeviceTypeDesktop
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
