// Package visitors manages the durable visitor identity behind the
// client-generated GUID and the queries the admin views run against it.
package visitors

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"miru/internal/timeframe"
)

// Column caps mirror the ingestion schema.
const (
	MaxGUIDLength      = 36
	MaxUserAgentLength = 500
	MaxIPLength        = 45
)

// Visitor is one anonymous client identity. UserID is set the first time
// an ingestion call arrives with an authenticated caller and is sticky
// from then on.
type Visitor struct {
	ID        uint      `gorm:"primaryKey"`
	GUID      string    `gorm:"uniqueIndex;size:36;not null"`
	UserID    *uint     `gorm:"index"`
	UserAgent string    `gorm:"size:500"`
	IP        string    `gorm:"size:45"`
	Country   string    `gorm:"size:8"`
	FirstSeen time.Time `gorm:"index;not null"`
	LastSeen  time.Time `gorm:"index;not null"`
}

// ResolveInput carries the request metadata attached to a resolve call.
type ResolveInput struct {
	GUID      string
	UserAgent string
	IP        string
	Country   string
	UserID    *uint
}

// Resolve finds or creates the visitor for a GUID and refreshes its
// last-seen metadata. The write is a single conditional upsert keyed by
// guid: concurrent first-time batches for the same GUID merge on the
// unique index instead of creating duplicate rows, and user_id only ever
// transitions from NULL to a value.
func Resolve(db *gorm.DB, input ResolveInput) (*Visitor, error) {
	now := time.Now().UTC()

	visitor := Visitor{
		GUID:      truncate(input.GUID, MaxGUIDLength),
		UserID:    input.UserID,
		UserAgent: truncate(input.UserAgent, MaxUserAgentLength),
		IP:        truncate(input.IP, MaxIPLength),
		Country:   input.Country,
		FirstSeen: now,
		LastSeen:  now,
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "guid"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_seen":  now,
			"user_agent": visitor.UserAgent,
			"ip":         visitor.IP,
			"country":    visitor.Country,
			"user_id":    gorm.Expr("COALESCE(visitors.user_id, excluded.user_id)"),
		}),
	}).Create(&visitor).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert visitor: %w", err)
	}

	// Re-read: on the conflict path the insert does not report the
	// existing row's id or first_seen.
	var resolved Visitor
	if err := db.Where("guid = ?", visitor.GUID).First(&resolved).Error; err != nil {
		return nil, fmt.Errorf("failed to load visitor after upsert: %w", err)
	}
	return &resolved, nil
}

// CountInRange counts visitors first seen inside the frame.
func CountInRange(db *gorm.DB, tf timeframe.TimeFrame) (int64, error) {
	var count int64
	err := db.Model(&Visitor{}).
		Where("first_seen BETWEEN ? AND ?", tf.From, tf.To).
		Count(&count).Error
	return count, err
}

// StatsRow is one row of the admin visitor listing: the visitor plus its
// lifetime event count.
type StatsRow struct {
	ID          uint      `json:"id"`
	GUID        string    `json:"guid"`
	UserID      *uint     `json:"userId"`
	UserAgent   string    `json:"userAgent"`
	IP          string    `json:"ip"`
	Country     string    `json:"country"`
	FirstSeen   time.Time `json:"firstSeen"`
	LastSeen    time.Time `json:"lastSeen"`
	EventsCount int64     `json:"eventsCount"`
}

// ListByLastSeen pages visitors first seen inside the frame, newest
// activity first. Unlike the grouped aggregates, this listing paginates
// in the database because the order key is a plain column.
func ListByLastSeen(db *gorm.DB, tf timeframe.TimeFrame, limit, offset int) ([]StatsRow, int64, error) {
	var total int64
	if err := db.Model(&Visitor{}).
		Where("first_seen BETWEEN ? AND ?", tf.From, tf.To).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count visitors: %w", err)
	}

	var rows []StatsRow
	err := db.Raw(`
        SELECT
            v.id, v.guid, v.user_id, v.user_agent, v.ip, v.country,
            v.first_seen, v.last_seen,
            (SELECT COUNT(*) FROM events e WHERE e.visitor_id = v.id) AS events_count
        FROM visitors v
        WHERE v.first_seen BETWEEN ? AND ?
        ORDER BY v.last_seen DESC
        LIMIT ? OFFSET ?`,
		tf.From, tf.To, limit, offset,
	).Scan(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list visitors: %w", err)
	}

	return rows, total, nil
}

// FindByIDs batch-loads visitors, returning an id-keyed map.
func FindByIDs(db *gorm.DB, ids []uint) (map[uint]Visitor, error) {
	result := make(map[uint]Visitor, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var rows []Visitor
	if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, v := range rows {
		result[v.ID] = v
	}
	return result, nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
