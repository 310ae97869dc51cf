package analytics

import (
	"context"
	"fmt"

	"miru/internal/events"
	"miru/internal/pkg/async"
	"miru/internal/timeframe"
	"miru/internal/visitors"
)

// DeviceStat is one slice of the device breakdown.
type DeviceStat struct {
	DeviceType string `json:"deviceType"`
	Count      int64  `json:"count"`
}

// EventTypeStat is one slice of the event-type breakdown.
type EventTypeStat struct {
	EventType string `json:"eventType"`
	Count     int64  `json:"count"`
}

// Overview is the dashboard snapshot for one time frame.
type Overview struct {
	TotalVisitors  int64           `json:"totalVisitors"`
	TotalEvents    int64           `json:"totalEvents"`
	UniquePages    int64           `json:"uniquePages"`
	PlayCount      int64           `json:"playCount"`
	DeviceStats    []DeviceStat    `json:"deviceStats"`
	EventTypeStats []EventTypeStat `json:"eventTypeStats"`
}

// Overview fans the snapshot's independent counts out over the worker
// pool and assembles the result. Any failed query fails the snapshot.
func (s *Service) Overview(ctx context.Context, tf timeframe.TimeFrame) (*Overview, error) {
	tasks := []async.Task{
		{Name: "totalVisitors", Execute: func() (interface{}, error) {
			return visitors.CountInRange(s.db, tf)
		}},
		{Name: "totalEvents", Execute: func() (interface{}, error) {
			var count int64
			err := s.db.Model(&events.Event{}).
				Where("timestamp BETWEEN ? AND ?", tf.From, tf.To).
				Count(&count).Error
			return count, err
		}},
		{Name: "uniquePages", Execute: func() (interface{}, error) {
			var count int64
			err := s.db.Model(&events.Event{}).
				Where("timestamp BETWEEN ? AND ?", tf.From, tf.To).
				Distinct("page_url").
				Count(&count).Error
			return count, err
		}},
		{Name: "playCount", Execute: func() (interface{}, error) {
			var count int64
			err := s.db.Model(&events.Event{}).
				Where("event_name = ? AND timestamp BETWEEN ? AND ?",
					events.EventNameContentPlay, tf.From, tf.To).
				Count(&count).Error
			return count, err
		}},
		{Name: "deviceStats", Execute: func() (interface{}, error) {
			var rows []DeviceStat
			err := s.db.Model(&events.Event{}).
				Select("device_type AS device_type, COUNT(*) AS count").
				Where("timestamp BETWEEN ? AND ?", tf.From, tf.To).
				Group("device_type").
				Order("count DESC").
				Scan(&rows).Error
			return rows, err
		}},
		{Name: "eventTypeStats", Execute: func() (interface{}, error) {
			var rows []EventTypeStat
			err := s.db.Model(&events.Event{}).
				Select("event_type AS event_type, COUNT(*) AS count").
				Where("timestamp BETWEEN ? AND ?", tf.From, tf.To).
				Group("event_type").
				Order("count DESC").
				Scan(&rows).Error
			return rows, err
		}},
	}

	results := s.newPool().Execute(ctx, tasks)

	overview := &Overview{
		DeviceStats:    []DeviceStat{},
		EventTypeStats: []EventTypeStat{},
	}
	for _, task := range tasks {
		result, ok := results[task.Name]
		if !ok {
			return nil, fmt.Errorf("overview query %s did not complete: %v", task.Name, ctx.Err())
		}
		if result.Err != nil {
			return nil, fmt.Errorf("overview query %s failed: %w", result.Name, result.Err)
		}

		switch result.Name {
		case "totalVisitors":
			overview.TotalVisitors = result.Data.(int64)
		case "totalEvents":
			overview.TotalEvents = result.Data.(int64)
		case "uniquePages":
			overview.UniquePages = result.Data.(int64)
		case "playCount":
			overview.PlayCount = result.Data.(int64)
		case "deviceStats":
			if rows := result.Data.([]DeviceStat); rows != nil {
				overview.DeviceStats = rows
			}
		case "eventTypeStats":
			if rows := result.Data.([]EventTypeStat); rows != nil {
				overview.EventTypeStats = rows
			}
		}
	}

	return overview, nil
}
