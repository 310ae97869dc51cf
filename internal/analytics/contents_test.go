package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miru/internal/analytics"
	"miru/internal/content"
	"miru/internal/testsupport"
	"miru/internal/timeframe"
)

func TestContents(t *testing.T) {
	service, db := newService(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	v1 := testsupport.CreateTestVisitor(t, db, base)
	v2 := testsupport.CreateTestVisitor(t, db, base)
	testsupport.CreateTestContent(t, db, "c-1", "First Season")

	// c-1: 3 plays by 2 visitors over parts 1 and 2; c-gone is not in the catalog
	testsupport.CreateTestPlayEvent(t, db, v1.ID, base.Add(time.Hour), "c-1", "1")
	testsupport.CreateTestPlayEvent(t, db, v1.ID, base.Add(2*time.Hour), "c-1", "2")
	testsupport.CreateTestPlayEvent(t, db, v2.ID, base.Add(3*time.Hour), "c-1", "2")
	testsupport.CreateTestPlayEvent(t, db, v2.ID, base.Add(4*time.Hour), "c-gone", "1")

	// Malformed payload is skipped, not misattributed
	testsupport.CreateTestEvent(t, db, v1.ID, base.Add(5*time.Hour),
		testsupport.WithEventName("content-play"),
		testsupport.WithExtraData("not json"))

	tf, err := timeframe.New(base, base.AddDate(0, 0, 1))
	require.NoError(t, err)

	stats, err := service.Contents(tf, 1, 20)
	require.NoError(t, err)

	require.Len(t, stats.Contents, 2)

	first := stats.Contents[0]
	assert.Equal(t, "c-1", first.ContentID)
	assert.Equal(t, "First Season", first.Name)
	assert.EqualValues(t, 3, first.PlayCount)
	assert.EqualValues(t, 2, first.UniqueVisitors)
	require.Len(t, first.SubStats, 2)
	assert.Equal(t, analytics.SubStat{SubIndex: "1", PlayCount: 1}, first.SubStats[0])
	assert.Equal(t, analytics.SubStat{SubIndex: "2", PlayCount: 2}, first.SubStats[1])

	gone := stats.Contents[1]
	assert.Equal(t, "c-gone", gone.ContentID)
	assert.Equal(t, content.PlaceholderName, gone.Name)
	assert.EqualValues(t, 1, gone.PlayCount)
}

func TestContentsSubIndexOrdering(t *testing.T) {
	service, db := newService(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	v := testsupport.CreateTestVisitor(t, db, base)

	// Numeric indexes sort numerically (2 before 10) and ahead of
	// free-form ones
	for _, sub := range []string{"10", "2", "bonus", "1"} {
		testsupport.CreateTestPlayEvent(t, db, v.ID, base.Add(time.Hour), "c-9", sub)
	}

	tf, err := timeframe.New(base, base.AddDate(0, 0, 1))
	require.NoError(t, err)

	stats, err := service.Contents(tf, 1, 20)
	require.NoError(t, err)

	require.Len(t, stats.Contents, 1)
	subs := make([]string, 0, len(stats.Contents[0].SubStats))
	for _, s := range stats.Contents[0].SubStats {
		subs = append(subs, s.SubIndex)
	}
	assert.Equal(t, []string{"1", "2", "10", "bonus"}, subs)
}

func TestContentVisitors(t *testing.T) {
	service, db := newService(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	heavy := testsupport.CreateTestVisitor(t, db, base)
	light := testsupport.CreateTestVisitor(t, db, base)
	user := testsupport.CreateTestUser(t, db, "Ash", 1)
	require.NoError(t, db.Model(heavy).Update("user_id", user.ID).Error)

	testsupport.CreateTestPlayEvent(t, db, heavy.ID, base.Add(time.Hour), "c-1", "1")
	testsupport.CreateTestPlayEvent(t, db, heavy.ID, base.Add(4*time.Hour), "c-1", "2")
	testsupport.CreateTestPlayEvent(t, db, light.ID, base.Add(2*time.Hour), "c-1", "1")

	// Plays of other content stay out
	testsupport.CreateTestPlayEvent(t, db, light.ID, base.Add(5*time.Hour), "c-2", "1")

	tf, err := timeframe.New(base, base.AddDate(0, 0, 1))
	require.NoError(t, err)

	result, err := service.ContentVisitors(tf, "c-1", 1, 20)
	require.NoError(t, err)

	require.Len(t, result.Visitors, 2)
	assert.Equal(t, heavy.ID, result.Visitors[0].VisitorID)
	assert.EqualValues(t, 2, result.Visitors[0].PlayCount)
	assert.Equal(t, base.Add(4*time.Hour), result.Visitors[0].LastPlayedAt.UTC())
	require.NotNil(t, result.Visitors[0].User)
	assert.Equal(t, "Ash", result.Visitors[0].User.Name)

	assert.Equal(t, light.ID, result.Visitors[1].VisitorID)
	assert.EqualValues(t, 1, result.Visitors[1].PlayCount)
}
