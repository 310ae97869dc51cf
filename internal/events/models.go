package events

import "time"

// EventType classifies how an interaction was captured.
type EventType string

const (
	EventTypeExposure EventType = "exposure"
	EventTypeClick    EventType = "click"
	EventTypeCustom   EventType = "custom"
)

// DeviceType is the client-reported device class.
type DeviceType string

const (
	DeviceTypeDesktop DeviceType = "desktop"
	DeviceTypeMobile  DeviceType = "mobile"
	DeviceTypeTablet  DeviceType = "tablet"
)

// EventNameContentPlay identifies playback events whose payload carries a
// content id and sub-index.
const EventNameContentPlay = "content-play"

// Field length caps enforced at ingestion. They mirror the column sizes.
const (
	MaxEventNameLength  = 100
	MaxElementIDLength  = 100
	MaxElementTagLength = 50
	MaxPageURLLength    = 500
	MaxPageTitleLength  = 200
	MaxReferrerLength   = 500
	MaxViewportLength   = 50
	MaxScreenLength     = 50
	MaxSessionIDLength  = 36
)

// Event is one recorded interaction. Rows are immutable after creation;
// UserID is denormalized from the visitor at write time.
type Event struct {
	ID         uint       `gorm:"primaryKey"`
	VisitorID  uint       `gorm:"index;not null"`
	UserID     *uint      `gorm:"index"`
	EventType  EventType  `gorm:"index;size:16;not null"`
	EventName  string     `gorm:"index;size:100;not null"`
	ElementID  string     `gorm:"size:100"`
	ElementTag string     `gorm:"size:50"`
	PageURL    string     `gorm:"index;size:500;not null"`
	PageTitle  string     `gorm:"size:200"`
	Referrer   string     `gorm:"size:500"`
	DeviceType DeviceType `gorm:"index;size:16;not null;default:desktop"`
	Viewport   string     `gorm:"size:50"`
	Screen     string     `gorm:"size:50"`
	SessionID  string     `gorm:"index;size:36"`
	ExtraData  string     `gorm:"type:text"`
	Timestamp  time.Time  `gorm:"index;not null"`
	CreatedAt  time.Time
}

// ValidEventType reports enum membership for a client-supplied type tag.
func ValidEventType(t EventType) bool {
	switch t {
	case EventTypeExposure, EventTypeClick, EventTypeCustom:
		return true
	}
	return false
}

// ValidDeviceType reports enum membership for a client-supplied device tag.
func ValidDeviceType(d DeviceType) bool {
	switch d {
	case DeviceTypeDesktop, DeviceTypeMobile, DeviceTypeTablet:
		return true
	}
	return false
}
