// Package testsupport provides shared helpers for miru tests: an
// isolated in-memory database per test plus fixture builders.
package testsupport

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"miru/internal/content"
	"miru/internal/events"
	"miru/internal/users"
	"miru/internal/visitors"
)

// testDBCache caches test databases by root test name so setup calls
// inside subtests share the same database.
var (
	testDBCache   = make(map[string]*gorm.DB)
	testDBCacheMu sync.Mutex
)

func allModels() []any {
	return []any{
		&visitors.Visitor{},
		&events.Event{},
		&users.User{},
		&content.Resource{},
	}
}

// SetupTestDB creates a migrated test database. It uses a named
// in-memory SQLite database with cache=shared so multiple connections
// within one test see the same data.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	rootName := t.Name()
	if idx := strings.Index(rootName, "/"); idx > 0 {
		rootName = rootName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")

	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// GetLogger returns a logger that discards output in tests.
func GetLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CreateTestVisitor inserts a visitor seen at the given time.
func CreateTestVisitor(t *testing.T, db *gorm.DB, seenAt time.Time) *visitors.Visitor {
	t.Helper()

	visitor := &visitors.Visitor{
		GUID:      uuid.NewString(),
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) TestAgent/1.0",
		IP:        "203.0.113.7",
		FirstSeen: seenAt.UTC(),
		LastSeen:  seenAt.UTC(),
	}
	if err := db.Create(visitor).Error; err != nil {
		t.Fatalf("testsupport: failed to create visitor: %v", err)
	}
	return visitor
}

// CreateTestUser inserts a user with the given role.
func CreateTestUser(t *testing.T, db *gorm.DB, name string, role int) *users.User {
	t.Helper()

	user := &users.User{
		Name:  name,
		Email: fmt.Sprintf("%s-%d@example.com", strings.ToLower(name), time.Now().UnixNano()),
		Role:  role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("testsupport: failed to create user: %v", err)
	}
	return user
}

// CreateTestContent inserts a catalog entry for a content id.
func CreateTestContent(t *testing.T, db *gorm.DB, contentID, name string) *content.Resource {
	t.Helper()

	resource := &content.Resource{
		ContentID: contentID,
		Name:      name,
		CoverURL:  "https://cdn.example.com/" + contentID + ".jpg",
		Status:    1,
	}
	if err := db.Create(resource).Error; err != nil {
		t.Fatalf("testsupport: failed to create content: %v", err)
	}
	return resource
}

// EventOption mutates an event fixture before insertion.
type EventOption func(*events.Event)

// WithEventName overrides the fixture event name.
func WithEventName(name string) EventOption {
	return func(e *events.Event) { e.EventName = name }
}

// WithEventType overrides the fixture event type.
func WithEventType(eventType events.EventType) EventOption {
	return func(e *events.Event) { e.EventType = eventType }
}

// WithPage overrides the fixture page URL and title.
func WithPage(url, title string) EventOption {
	return func(e *events.Event) {
		e.PageURL = url
		e.PageTitle = title
	}
}

// WithExtraData sets the fixture's raw payload JSON.
func WithExtraData(raw string) EventOption {
	return func(e *events.Event) { e.ExtraData = raw }
}

// WithDeviceType overrides the fixture device type.
func WithDeviceType(deviceType events.DeviceType) EventOption {
	return func(e *events.Event) { e.DeviceType = deviceType }
}

// WithUserID denormalizes a user id onto the fixture.
func WithUserID(id uint) EventOption {
	return func(e *events.Event) { e.UserID = &id }
}

// CreateTestEvent inserts an exposure event for the visitor at the given
// time, adjusted by the options.
func CreateTestEvent(t *testing.T, db *gorm.DB, visitorID uint, at time.Time, opts ...EventOption) *events.Event {
	t.Helper()

	event := &events.Event{
		VisitorID:  visitorID,
		EventType:  events.EventTypeExposure,
		EventName:  "page-view",
		PageURL:    "https://example.com/",
		PageTitle:  "Home",
		DeviceType: events.DeviceTypeDesktop,
		Timestamp:  at.UTC(),
	}
	for _, opt := range opts {
		opt(event)
	}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("testsupport: failed to create event: %v", err)
	}
	return event
}

// CreateTestPlayEvent inserts a content-play event carrying the given
// content id and part index.
func CreateTestPlayEvent(t *testing.T, db *gorm.DB, visitorID uint, at time.Time, contentID, subIndex string) *events.Event {
	t.Helper()

	raw := fmt.Sprintf(`{"contentId":%q,"subIndex":%q}`, contentID, subIndex)
	return CreateTestEvent(t, db, visitorID, at,
		WithEventType(events.EventTypeCustom),
		WithEventName(events.EventNameContentPlay),
		WithExtraData(raw),
	)
}

// SignTestToken issues a JWT the admin middleware accepts.
func SignTestToken(t *testing.T, secret string, userID uint, role int) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":  userID,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("testsupport: failed to sign token: %v", err)
	}
	return signed
}
