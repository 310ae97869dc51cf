package analytics

import (
	"fmt"
	"sort"
	"time"

	"miru/internal/events"
	"miru/internal/pagination"
	"miru/internal/timeframe"
	"miru/internal/users"
)

// missingPageTitle labels exposure rows recorded without a title.
const missingPageTitle = "unknown page"

// PageStatsRow is one page aggregate in the admin page listing.
type PageStatsRow struct {
	PageURL        string `json:"pageUrl"`
	PageTitle      string `json:"pageTitle"`
	TotalViews     int64  `json:"totalViews"`
	UniqueVisitors int64  `json:"uniqueVisitors"`
}

// PageStats is one page of the page listing.
type PageStats struct {
	Pages []PageStatsRow  `json:"pages"`
	Meta  pagination.Meta `json:"meta"`
}

// Pages aggregates exposure events per (page URL, title) pair. The
// unique-visitor count keys on the URL alone. The full grouped set is
// materialized and sorted before slicing, so ordering is stable across
// pages; the unique-visitor count is then resolved only for the rows of
// the requested page.
func (s *Service) Pages(tf timeframe.TimeFrame, page, pageSize int) (*PageStats, error) {
	var rows []PageStatsRow
	err := s.db.Model(&events.Event{}).
		Select("page_url AS page_url, page_title AS page_title, COUNT(*) AS total_views").
		Where("event_type = ? AND timestamp BETWEEN ? AND ?",
			events.EventTypeExposure, tf.From, tf.To).
		Group("page_url, page_title").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate pages: %w", err)
	}
	for i := range rows {
		if rows[i].PageTitle == "" {
			rows[i].PageTitle = missingPageTitle
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalViews != rows[j].TotalViews {
			return rows[i].TotalViews > rows[j].TotalViews
		}
		return rows[i].PageURL < rows[j].PageURL
	})

	pageRows, meta := pagination.Paginate(rows, page, pageSize)
	for i := range pageRows {
		var unique int64
		err := s.db.Model(&events.Event{}).
			Where("event_type = ? AND page_url = ? AND timestamp BETWEEN ? AND ?",
				events.EventTypeExposure, pageRows[i].PageURL, tf.From, tf.To).
			Distinct("visitor_id").
			Count(&unique).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count unique visitors for %s: %w", pageRows[i].PageURL, err)
		}
		pageRows[i].UniqueVisitors = unique
	}

	return &PageStats{Pages: pageRows, Meta: meta}, nil
}

// PageVisitorRow is one visitor in a page drill-down.
type PageVisitorRow struct {
	VisitorID    uint             `json:"visitorId"`
	GUID         string           `json:"guid"`
	Country      string           `json:"country"`
	UserAgent    string           `json:"userAgent"`
	Views        int64            `json:"views"`
	LastViewedAt time.Time        `json:"lastViewedAt"`
	User         *users.BasicInfo `json:"user,omitempty"`
}

// PageVisitors is one page of a page drill-down.
type PageVisitors struct {
	Visitors []PageVisitorRow `json:"visitors"`
	Meta     pagination.Meta  `json:"meta"`
}

// PageVisitors lists the visitors who viewed one page inside the frame,
// most views first, with their linked accounts hydrated. An unknown page
// URL yields an empty page, not an error.
func (s *Service) PageVisitors(tf timeframe.TimeFrame, pageURL string, page, pageSize int) (*PageVisitors, error) {
	type visitRow struct {
		VisitorID    uint
		Views        int64
		LastViewedAt time.Time
	}

	var visits []visitRow
	err := s.db.Model(&events.Event{}).
		Select("visitor_id AS visitor_id, COUNT(*) AS views, MAX(timestamp) AS last_viewed_at").
		Where("event_type = ? AND page_url = ? AND timestamp BETWEEN ? AND ?",
			events.EventTypeExposure, pageURL, tf.From, tf.To).
		Group("visitor_id").
		Scan(&visits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate page visitors: %w", err)
	}

	sort.SliceStable(visits, func(i, j int) bool {
		if visits[i].Views != visits[j].Views {
			return visits[i].Views > visits[j].Views
		}
		if !visits[i].LastViewedAt.Equal(visits[j].LastViewedAt) {
			return visits[i].LastViewedAt.After(visits[j].LastViewedAt)
		}
		return visits[i].VisitorID < visits[j].VisitorID
	})

	pageVisits, meta := pagination.Paginate(visits, page, pageSize)

	ids := make([]uint, 0, len(pageVisits))
	for _, v := range pageVisits {
		ids = append(ids, v.VisitorID)
	}
	visitorMap, userMap, err := s.hydrateVisitors(ids)
	if err != nil {
		return nil, err
	}

	rows := make([]PageVisitorRow, 0, len(pageVisits))
	for _, v := range pageVisits {
		row := PageVisitorRow{
			VisitorID:    v.VisitorID,
			Views:        v.Views,
			LastViewedAt: v.LastViewedAt,
		}
		if visitor, ok := visitorMap[v.VisitorID]; ok {
			row.GUID = visitor.GUID
			row.Country = visitor.Country
			row.UserAgent = visitor.UserAgent
			if visitor.UserID != nil {
				if info, ok := userMap[*visitor.UserID]; ok {
					row.User = &info
				}
			}
		}
		rows = append(rows, row)
	}

	return &PageVisitors{Visitors: rows, Meta: meta}, nil
}
