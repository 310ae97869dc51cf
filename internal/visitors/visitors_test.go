package visitors_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miru/internal/testsupport"
	"miru/internal/timeframe"
	"miru/internal/visitors"
)

func TestResolveCreatesVisitor(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	guid := uuid.NewString()
	visitor, err := visitors.Resolve(db, visitors.ResolveInput{
		GUID:      guid,
		UserAgent: "TestAgent/1.0",
		IP:        "203.0.113.1",
		Country:   "DE",
	})
	require.NoError(t, err)

	assert.NotZero(t, visitor.ID)
	assert.Equal(t, guid, visitor.GUID)
	assert.Equal(t, "DE", visitor.Country)
	assert.Nil(t, visitor.UserID)
	assert.False(t, visitor.FirstSeen.IsZero())
}

func TestResolveIsIdempotentPerGUID(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	guid := uuid.NewString()

	first, err := visitors.Resolve(db, visitors.ResolveInput{GUID: guid, UserAgent: "A"})
	require.NoError(t, err)

	second, err := visitors.Resolve(db, visitors.ResolveInput{GUID: guid, UserAgent: "B"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "B", second.UserAgent)
	assert.Equal(t, first.FirstSeen.Unix(), second.FirstSeen.Unix())
	assert.False(t, second.LastSeen.Before(first.LastSeen))

	var count int64
	require.NoError(t, db.Model(&visitors.Visitor{}).Where("guid = ?", guid).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestResolveUserLinkIsSticky(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	guid := uuid.NewString()

	// Anonymous first
	_, err := visitors.Resolve(db, visitors.ResolveInput{GUID: guid})
	require.NoError(t, err)

	// First authenticated call links the account
	alice := uint(11)
	linked, err := visitors.Resolve(db, visitors.ResolveInput{GUID: guid, UserID: &alice})
	require.NoError(t, err)
	require.NotNil(t, linked.UserID)
	assert.Equal(t, alice, *linked.UserID)

	// A different account later does not overwrite the link
	bob := uint(22)
	after, err := visitors.Resolve(db, visitors.ResolveInput{GUID: guid, UserID: &bob})
	require.NoError(t, err)
	require.NotNil(t, after.UserID)
	assert.Equal(t, alice, *after.UserID)

	// Nor does going back to anonymous
	anon, err := visitors.Resolve(db, visitors.ResolveInput{GUID: guid})
	require.NoError(t, err)
	require.NotNil(t, anon.UserID)
	assert.Equal(t, alice, *anon.UserID)
}

func TestResolveTruncatesOversizedFields(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	longUA := make([]byte, visitors.MaxUserAgentLength+100)
	for i := range longUA {
		longUA[i] = 'x'
	}

	visitor, err := visitors.Resolve(db, visitors.ResolveInput{
		GUID:      uuid.NewString(),
		UserAgent: string(longUA),
	})
	require.NoError(t, err)
	assert.Len(t, visitor.UserAgent, visitors.MaxUserAgentLength)
}

func TestListByLastSeen(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	older := testsupport.CreateTestVisitor(t, db, base.Add(1*time.Hour))
	newer := testsupport.CreateTestVisitor(t, db, base.Add(2*time.Hour))
	outside := testsupport.CreateTestVisitor(t, db, base.AddDate(0, 0, -10))

	testsupport.CreateTestEvent(t, db, newer.ID, base.Add(2*time.Hour))
	testsupport.CreateTestEvent(t, db, newer.ID, base.Add(3*time.Hour))

	tf, err := timeframe.New(base, base.AddDate(0, 0, 1))
	require.NoError(t, err)

	rows, total, err := visitors.ListByLastSeen(db, tf, 10, 0)
	require.NoError(t, err)

	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)
	assert.EqualValues(t, 2, rows[0].EventsCount)
	assert.EqualValues(t, 0, rows[1].EventsCount)

	for _, row := range rows {
		assert.NotEqual(t, outside.ID, row.ID)
	}
}

func TestCountInRange(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	testsupport.CreateTestVisitor(t, db, base.Add(time.Hour))
	testsupport.CreateTestVisitor(t, db, base.Add(2*time.Hour))
	testsupport.CreateTestVisitor(t, db, base.AddDate(0, 0, -5))

	tf, err := timeframe.New(base, base.AddDate(0, 0, 1))
	require.NoError(t, err)

	count, err := visitors.CountInRange(db, tf)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
