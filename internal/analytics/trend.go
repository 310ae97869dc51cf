package analytics

import (
	"fmt"
	"time"

	"miru/internal/events"
	"miru/internal/timeframe"
	"miru/internal/visitors"
)

// TrendKind selects the metric a trend series counts.
type TrendKind string

const (
	TrendVisitors TrendKind = "visitors"
	TrendEvents   TrendKind = "events"
	TrendPages    TrendKind = "pages"
	TrendPlays    TrendKind = "plays"
)

// ParseTrendKind validates a client-supplied kind. An empty string
// defaults to events.
func ParseTrendKind(s string) (TrendKind, error) {
	switch TrendKind(s) {
	case TrendVisitors, TrendPages, TrendPlays:
		return TrendKind(s), nil
	case TrendEvents, TrendKind(""):
		return TrendEvents, nil
	default:
		return "", fmt.Errorf("unknown trend kind %q", s)
	}
}

// TrendPoint is one bucket of a trend series.
type TrendPoint struct {
	Bucket string `json:"bucket"`
	Count  int64  `json:"count"`
}

// Trend is a zero-filled series covering a frame. Points are strictly
// increasing by bucket with no gaps.
type Trend struct {
	Kind        TrendKind             `json:"kind"`
	Granularity timeframe.Granularity `json:"granularity"`
	Points      []TrendPoint          `json:"points"`
}

// Trend counts the chosen metric per bucket. Bucketing happens after the
// rows are loaded so the same UTC bucket math serves every granularity,
// and empty buckets are emitted as explicit zeros.
func (s *Service) Trend(tf timeframe.TimeFrame, g timeframe.Granularity, kind TrendKind) (*Trend, error) {
	counts, err := s.trendCounts(tf, g, kind)
	if err != nil {
		return nil, err
	}

	keys := tf.BucketKeys(g)
	points := make([]TrendPoint, 0, len(keys))
	for _, key := range keys {
		points = append(points, TrendPoint{Bucket: key, Count: counts[key]})
	}

	return &Trend{Kind: kind, Granularity: g, Points: points}, nil
}

func (s *Service) trendCounts(tf timeframe.TimeFrame, g timeframe.Granularity, kind TrendKind) (map[string]int64, error) {
	counts := make(map[string]int64)

	switch kind {
	case TrendVisitors:
		var firstSeen []time.Time
		err := s.db.Model(&visitors.Visitor{}).
			Where("first_seen BETWEEN ? AND ?", tf.From, tf.To).
			Pluck("first_seen", &firstSeen).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load visitor trend rows: %w", err)
		}
		for _, t := range firstSeen {
			counts[g.BucketKey(t)]++
		}

	case TrendPages:
		// A page counts once per bucket it was viewed in, so each bucket
		// carries its own URL set.
		var rows []events.Event
		err := s.db.Model(&events.Event{}).
			Select("page_url", "timestamp").
			Where("event_type = ? AND timestamp BETWEEN ? AND ?",
				events.EventTypeExposure, tf.From, tf.To).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load page trend rows: %w", err)
		}
		seen := make(map[string]map[string]struct{})
		for _, e := range rows {
			key := g.BucketKey(e.Timestamp)
			if seen[key] == nil {
				seen[key] = make(map[string]struct{})
			}
			seen[key][e.PageURL] = struct{}{}
		}
		for key, urls := range seen {
			counts[key] = int64(len(urls))
		}

	case TrendPlays:
		var timestamps []time.Time
		err := s.db.Model(&events.Event{}).
			Where("event_name = ? AND timestamp BETWEEN ? AND ?",
				events.EventNameContentPlay, tf.From, tf.To).
			Pluck("timestamp", &timestamps).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load play trend rows: %w", err)
		}
		for _, t := range timestamps {
			counts[g.BucketKey(t)]++
		}

	default: // TrendEvents
		var timestamps []time.Time
		err := s.db.Model(&events.Event{}).
			Where("timestamp BETWEEN ? AND ?", tf.From, tf.To).
			Pluck("timestamp", &timestamps).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load event trend rows: %w", err)
		}
		for _, t := range timestamps {
			counts[g.BucketKey(t)]++
		}
	}

	return counts, nil
}
