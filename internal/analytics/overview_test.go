package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"miru/internal/analytics"
	"miru/internal/content"
	"miru/internal/events"
	"miru/internal/testsupport"
	"miru/internal/timeframe"
)

func newService(t *testing.T) (*analytics.Service, *gorm.DB) {
	t.Helper()
	db := testsupport.SetupTestDB(t)
	return analytics.NewService(db, testsupport.GetLogger(), content.NewStore(db)), db
}

func TestOverview(t *testing.T) {
	service, db := newService(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	v1 := testsupport.CreateTestVisitor(t, db, base.Add(time.Hour))
	v2 := testsupport.CreateTestVisitor(t, db, base.Add(2*time.Hour))
	outside := testsupport.CreateTestVisitor(t, db, base.AddDate(0, 0, -10))

	testsupport.CreateTestEvent(t, db, v1.ID, base.Add(time.Hour),
		testsupport.WithPage("https://example.com/a", "A"))
	testsupport.CreateTestEvent(t, db, v1.ID, base.Add(time.Hour),
		testsupport.WithPage("https://example.com/b", "B"),
		testsupport.WithDeviceType(events.DeviceTypeMobile))
	testsupport.CreateTestEvent(t, db, v2.ID, base.Add(2*time.Hour),
		testsupport.WithEventType(events.EventTypeClick),
		testsupport.WithEventName("cta"),
		testsupport.WithPage("https://example.com/a", "A"))
	testsupport.CreateTestPlayEvent(t, db, v2.ID, base.Add(3*time.Hour), "c-1", "1")

	// Outside the frame, must not count
	testsupport.CreateTestEvent(t, db, outside.ID, base.AddDate(0, 0, -10))

	tf, err := timeframe.New(base, base.AddDate(0, 0, 1))
	require.NoError(t, err)

	overview, err := service.Overview(context.Background(), tf)
	require.NoError(t, err)

	assert.EqualValues(t, 2, overview.TotalVisitors)
	assert.EqualValues(t, 4, overview.TotalEvents)
	assert.EqualValues(t, 3, overview.UniquePages) // /a, /b, and the play event's page
	assert.EqualValues(t, 1, overview.PlayCount)

	deviceCounts := make(map[string]int64)
	for _, stat := range overview.DeviceStats {
		deviceCounts[stat.DeviceType] = stat.Count
	}
	assert.EqualValues(t, 3, deviceCounts["desktop"])
	assert.EqualValues(t, 1, deviceCounts["mobile"])

	typeCounts := make(map[string]int64)
	for _, stat := range overview.EventTypeStats {
		typeCounts[stat.EventType] = stat.Count
	}
	assert.EqualValues(t, 2, typeCounts["exposure"])
	assert.EqualValues(t, 1, typeCounts["click"])
	assert.EqualValues(t, 1, typeCounts["custom"])
}

func TestOverviewEmptyFrame(t *testing.T) {
	service, _ := newService(t)

	tf, err := timeframe.New(
		time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	overview, err := service.Overview(context.Background(), tf)
	require.NoError(t, err)

	assert.Zero(t, overview.TotalVisitors)
	assert.Zero(t, overview.TotalEvents)
	assert.NotNil(t, overview.DeviceStats)
	assert.Empty(t, overview.DeviceStats)
	assert.NotNil(t, overview.EventTypeStats)
}
