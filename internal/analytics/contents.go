package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"miru/internal/content"
	"miru/internal/events"
	"miru/internal/pagination"
	"miru/internal/timeframe"
	"miru/internal/users"
)

// SubStat is the play count of one part of a piece of content.
type SubStat struct {
	SubIndex  string `json:"subIndex"`
	PlayCount int64  `json:"playCount"`
}

// ContentStatsRow is one content aggregate in the admin content listing.
// Name is the placeholder when the id no longer resolves in the catalog.
type ContentStatsRow struct {
	ContentID      string    `json:"contentId"`
	Name           string    `json:"name"`
	Cover          string    `json:"cover"`
	Status         int       `json:"status"`
	PlayCount      int64     `json:"playCount"`
	UniqueVisitors int64     `json:"uniqueVisitors"`
	SubStats       []SubStat `json:"subStats"`
}

// ContentStats is one page of the content listing.
type ContentStats struct {
	Contents []ContentStatsRow `json:"contents"`
	Meta     pagination.Meta   `json:"meta"`
}

type contentAccumulator struct {
	playCount int64
	visitors  map[uint]struct{}
	subCounts map[string]int64
}

// Contents folds every play event in the frame into per-content
// aggregates in one pass, joins catalog metadata, and pages the sorted
// result. Events with malformed payloads are skipped; contents whose id
// is gone from the catalog keep their row under the placeholder name.
func (s *Service) Contents(tf timeframe.TimeFrame, page, pageSize int) (*ContentStats, error) {
	var plays []events.Event
	err := s.db.
		Select("visitor_id", "event_name", "extra_data").
		Where("event_name = ? AND timestamp BETWEEN ? AND ?",
			events.EventNameContentPlay, tf.From, tf.To).
		Find(&plays).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load play events: %w", err)
	}

	byContent := make(map[string]*contentAccumulator)
	for _, e := range plays {
		payload, ok := events.ContentPlay(e)
		if !ok {
			continue
		}
		acc := byContent[payload.ContentID]
		if acc == nil {
			acc = &contentAccumulator{
				visitors:  make(map[uint]struct{}),
				subCounts: make(map[string]int64),
			}
			byContent[payload.ContentID] = acc
		}
		acc.playCount++
		acc.visitors[e.VisitorID] = struct{}{}
		acc.subCounts[payload.SubIndex]++
	}

	ids := make([]string, 0, len(byContent))
	for id := range byContent {
		ids = append(ids, id)
	}
	metadata, err := s.catalog.MetadataByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load content metadata: %w", err)
	}

	rows := make([]ContentStatsRow, 0, len(byContent))
	for id, acc := range byContent {
		meta, ok := metadata[id]
		if !ok {
			meta = content.Placeholder(id)
		}
		rows = append(rows, ContentStatsRow{
			ContentID:      id,
			Name:           meta.Name,
			Cover:          meta.CoverURL,
			Status:         meta.Status,
			PlayCount:      acc.playCount,
			UniqueVisitors: int64(len(acc.visitors)),
			SubStats:       sortedSubStats(acc.subCounts),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].PlayCount != rows[j].PlayCount {
			return rows[i].PlayCount > rows[j].PlayCount
		}
		return rows[i].ContentID < rows[j].ContentID
	})

	pageRows, meta := pagination.Paginate(rows, page, pageSize)
	return &ContentStats{Contents: pageRows, Meta: meta}, nil
}

// sortedSubStats orders part counters numerically where both keys parse
// as integers, with numeric keys ahead of free-form ones.
func sortedSubStats(counts map[string]int64) []SubStat {
	stats := make([]SubStat, 0, len(counts))
	for sub, count := range counts {
		stats = append(stats, SubStat{SubIndex: sub, PlayCount: count})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return subIndexLess(stats[i].SubIndex, stats[j].SubIndex)
	})
	return stats
}

func subIndexLess(a, b string) bool {
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return an < bn
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}

// ContentVisitorRow is one visitor in a content drill-down.
type ContentVisitorRow struct {
	VisitorID    uint             `json:"visitorId"`
	GUID         string           `json:"guid"`
	Country      string           `json:"country"`
	UserAgent    string           `json:"userAgent"`
	PlayCount    int64            `json:"playCount"`
	LastPlayedAt time.Time        `json:"lastPlayedAt"`
	User         *users.BasicInfo `json:"user,omitempty"`
}

// ContentVisitors is one page of a content drill-down.
type ContentVisitors struct {
	Visitors []ContentVisitorRow `json:"visitors"`
	Meta     pagination.Meta     `json:"meta"`
}

// ContentVisitors lists the visitors who played one piece of content
// inside the frame, most plays first. The content id lives in the event
// payload, so matching happens after decoding; an unknown id yields an
// empty page, not an error.
func (s *Service) ContentVisitors(tf timeframe.TimeFrame, contentID string, page, pageSize int) (*ContentVisitors, error) {
	var plays []events.Event
	err := s.db.
		Select("visitor_id", "event_name", "extra_data", "timestamp").
		Where("event_name = ? AND timestamp BETWEEN ? AND ?",
			events.EventNameContentPlay, tf.From, tf.To).
		Find(&plays).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load play events: %w", err)
	}

	type playAcc struct {
		count      int64
		lastPlayed time.Time
	}
	byVisitor := make(map[uint]*playAcc)
	for _, e := range plays {
		payload, ok := events.ContentPlay(e)
		if !ok || payload.ContentID != contentID {
			continue
		}
		acc := byVisitor[e.VisitorID]
		if acc == nil {
			acc = &playAcc{}
			byVisitor[e.VisitorID] = acc
		}
		acc.count++
		if e.Timestamp.After(acc.lastPlayed) {
			acc.lastPlayed = e.Timestamp
		}
	}

	type visitorPlay struct {
		visitorID  uint
		count      int64
		lastPlayed time.Time
	}
	all := make([]visitorPlay, 0, len(byVisitor))
	for id, acc := range byVisitor {
		all = append(all, visitorPlay{visitorID: id, count: acc.count, lastPlayed: acc.lastPlayed})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		if !all[i].lastPlayed.Equal(all[j].lastPlayed) {
			return all[i].lastPlayed.After(all[j].lastPlayed)
		}
		return all[i].visitorID < all[j].visitorID
	})

	pagePlays, meta := pagination.Paginate(all, page, pageSize)

	ids := make([]uint, 0, len(pagePlays))
	for _, p := range pagePlays {
		ids = append(ids, p.visitorID)
	}
	visitorMap, userMap, err := s.hydrateVisitors(ids)
	if err != nil {
		return nil, err
	}

	rows := make([]ContentVisitorRow, 0, len(pagePlays))
	for _, p := range pagePlays {
		row := ContentVisitorRow{
			VisitorID:    p.visitorID,
			PlayCount:    p.count,
			LastPlayedAt: p.lastPlayed,
		}
		if visitor, ok := visitorMap[p.visitorID]; ok {
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

	return &ContentVisitors{Visitors: rows, Meta: meta}, nil
}
