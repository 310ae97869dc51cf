// Package timeframe models date ranges and time bucketing for trend
// queries. All bucket math happens in UTC.
package timeframe

import (
	"fmt"
	"strings"
	"time"
)

// Granularity is the width of one trend bucket.
type Granularity string

const (
	GranularityHour Granularity = "hour"
	GranularityDay  Granularity = "day"
)

// Bucket key formats. Hour keys carry the date so that series spanning
// several days remain unambiguous.
const (
	dayKeyFormat  = "2006-01-02"
	hourKeyFormat = "2006-01-02T15:00"
)

// DefaultRangeDays is the trailing window applied when a query supplies
// no explicit range.
const DefaultRangeDays = 30

// ParseGranularity validates a client-supplied granularity string.
// An empty string defaults to day.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case GranularityHour:
		return GranularityHour, nil
	case GranularityDay, Granularity(""):
		return GranularityDay, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", s)
	}
}

// TimeFrame is an inclusive [From, To] range.
type TimeFrame struct {
	From time.Time
	To   time.Time
}

// New builds a TimeFrame, rejecting inverted ranges.
func New(from, to time.Time) (TimeFrame, error) {
	if from.After(to) {
		return TimeFrame{}, fmt.Errorf("range start %s is after end %s",
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return TimeFrame{From: from.UTC(), To: to.UTC()}, nil
}

// DefaultRange returns the trailing 30 days ending at now.
func DefaultRange(now time.Time) TimeFrame {
	now = now.UTC()
	return TimeFrame{From: now.AddDate(0, 0, -DefaultRangeDays), To: now}
}

// ParseRange interprets optional startDate/endDate query values. Values
// may be RFC 3339 timestamps or bare dates; a bare end date covers the
// whole day. Missing bounds fall back to the trailing default window.
func ParseRange(startDate, endDate string, now time.Time) (TimeFrame, error) {
	def := DefaultRange(now)

	from := def.From
	to := def.To

	if startDate != "" {
		t, _, err := parseDateValue(startDate)
		if err != nil {
			return TimeFrame{}, fmt.Errorf("invalid startDate: %w", err)
		}
		from = t
	}
	if endDate != "" {
		t, dateOnly, err := parseDateValue(endDate)
		if err != nil {
			return TimeFrame{}, fmt.Errorf("invalid endDate: %w", err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Second)
		}
		to = t
	}

	return New(from, to)
}

func parseDateValue(s string) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	if t, err = time.Parse(dayKeyFormat, s); err == nil {
		return t.UTC(), true, nil
	}
	return time.Time{}, false, fmt.Errorf("unrecognized date %q", s)
}

// Truncate snaps a time down to its bucket boundary.
func (g Granularity) Truncate(t time.Time) time.Time {
	utc := t.UTC()
	switch g {
	case GranularityHour:
		return time.Date(utc.Year(), utc.Month(), utc.Day(), utc.Hour(), 0, 0, 0, time.UTC)
	default:
		return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// BucketKey formats the bucket a timestamp falls into.
func (g Granularity) BucketKey(t time.Time) string {
	truncated := g.Truncate(t)
	if g == GranularityHour {
		return truncated.Format(hourKeyFormat)
	}
	return truncated.Format(dayKeyFormat)
}

// step advances one bucket width.
func (g Granularity) step(t time.Time) time.Time {
	if g == GranularityHour {
		return t.Add(time.Hour)
	}
	return t.AddDate(0, 0, 1)
}

// BucketKeys generates the complete ordered bucket key list covering the
// frame, endpoints inclusive. A frame with From == To yields one key.
func (tf TimeFrame) BucketKeys(g Granularity) []string {
	var keys []string
	for cur := g.Truncate(tf.From); !cur.After(tf.To); cur = g.step(cur) {
		keys = append(keys, g.BucketKey(cur))
	}
	return keys
}
