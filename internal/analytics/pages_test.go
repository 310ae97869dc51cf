package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miru/internal/events"
	"miru/internal/testsupport"
	"miru/internal/timeframe"
)

func TestPages(t *testing.T) {
	service, db := newService(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	v1 := testsupport.CreateTestVisitor(t, db, base)
	v2 := testsupport.CreateTestVisitor(t, db, base)

	// /popular: 3 views by 2 visitors, /quiet: 1 view by 1 visitor
	testsupport.CreateTestEvent(t, db, v1.ID, base.Add(time.Hour),
		testsupport.WithPage("https://example.com/popular", "Popular"))
	testsupport.CreateTestEvent(t, db, v1.ID, base.Add(2*time.Hour),
		testsupport.WithPage("https://example.com/popular", "Popular"))
	testsupport.CreateTestEvent(t, db, v2.ID, base.Add(3*time.Hour),
		testsupport.WithPage("https://example.com/popular", "Popular"))
	testsupport.CreateTestEvent(t, db, v2.ID, base.Add(time.Hour),
		testsupport.WithPage("https://example.com/quiet", "Quiet"))

	// Clicks on the page do not count as views
	testsupport.CreateTestEvent(t, db, v1.ID, base.Add(time.Hour),
		testsupport.WithEventType(events.EventTypeClick),
		testsupport.WithEventName("cta"),
		testsupport.WithPage("https://example.com/quiet", "Quiet"))

	tf, err := timeframe.New(base, base.AddDate(0, 0, 1))
	require.NoError(t, err)

	t.Run("orders by views and counts uniques", func(t *testing.T) {
		stats, err := service.Pages(tf, 1, 20)
		require.NoError(t, err)

		require.Len(t, stats.Pages, 2)
		assert.Equal(t, "https://example.com/popular", stats.Pages[0].PageURL)
		assert.Equal(t, "Popular", stats.Pages[0].PageTitle)
		assert.EqualValues(t, 3, stats.Pages[0].TotalViews)
		assert.EqualValues(t, 2, stats.Pages[0].UniqueVisitors)

		assert.Equal(t, "https://example.com/quiet", stats.Pages[1].PageURL)
		assert.EqualValues(t, 1, stats.Pages[1].TotalViews)
		assert.EqualValues(t, 1, stats.Pages[1].UniqueVisitors)

		assert.Equal(t, 2, stats.Meta.Total)
		assert.Equal(t, 1, stats.Meta.TotalPages)
	})

	t.Run("total stays accurate with pageSize 1", func(t *testing.T) {
		first, err := service.Pages(tf, 1, 1)
		require.NoError(t, err)
		require.Len(t, first.Pages, 1)
		assert.Equal(t, "https://example.com/popular", first.Pages[0].PageURL)
		assert.Equal(t, 2, first.Meta.Total)
		assert.Equal(t, 2, first.Meta.TotalPages)

		second, err := service.Pages(tf, 2, 1)
		require.NoError(t, err)
		require.Len(t, second.Pages, 1)
		assert.Equal(t, "https://example.com/quiet", second.Pages[0].PageURL)

		past, err := service.Pages(tf, 3, 1)
		require.NoError(t, err)
		assert.Empty(t, past.Pages)
		assert.Equal(t, 2, past.Meta.Total)
	})
}

func TestPageVisitors(t *testing.T) {
	service, db := newService(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	pageURL := "https://example.com/article"

	early := testsupport.CreateTestVisitor(t, db, base)
	late := testsupport.CreateTestVisitor(t, db, base)
	user := testsupport.CreateTestUser(t, db, "Sam", 1)
	require.NoError(t, db.Model(late).Update("user_id", user.ID).Error)

	testsupport.CreateTestEvent(t, db, early.ID, base.Add(time.Hour),
		testsupport.WithPage(pageURL, "Article"))
	testsupport.CreateTestEvent(t, db, late.ID, base.Add(2*time.Hour),
		testsupport.WithPage(pageURL, "Article"))
	testsupport.CreateTestEvent(t, db, late.ID, base.Add(3*time.Hour),
		testsupport.WithPage(pageURL, "Article"))

	// Other pages do not leak into the drill-down
	testsupport.CreateTestEvent(t, db, early.ID, base.Add(4*time.Hour),
		testsupport.WithPage("https://example.com/other", "Other"))

	tf, err := timeframe.New(base, base.AddDate(0, 0, 1))
	require.NoError(t, err)

	result, err := service.PageVisitors(tf, pageURL, 1, 20)
	require.NoError(t, err)

	require.Len(t, result.Visitors, 2)
	assert.Equal(t, late.ID, result.Visitors[0].VisitorID)
	assert.EqualValues(t, 2, result.Visitors[0].Views)
	require.NotNil(t, result.Visitors[0].User)
	assert.Equal(t, "Sam", result.Visitors[0].User.Name)

	assert.Equal(t, early.ID, result.Visitors[1].VisitorID)
	assert.EqualValues(t, 1, result.Visitors[1].Views)
	assert.Nil(t, result.Visitors[1].User)
}
