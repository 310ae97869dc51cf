// Package analytics computes the admin-facing aggregates over visitors
// and events: the overview snapshot, per-page and per-content rollups,
// visitor drill-downs, and zero-filled trend series.
package analytics

import (
	"log/slog"

	"gorm.io/gorm"

	"miru/internal/content"
	"miru/internal/pkg/async"
)

// overviewWorkers bounds the fan-out of the overview snapshot queries.
const overviewWorkers = 4

// Service runs aggregate queries against the event store.
type Service struct {
	db      *gorm.DB
	logger  *slog.Logger
	catalog content.MetadataLookup
}

func NewService(db *gorm.DB, logger *slog.Logger, catalog content.MetadataLookup) *Service {
	return &Service{db: db, logger: logger, catalog: catalog}
}

func (s *Service) newPool() *async.Pool {
	return async.NewPool(overviewWorkers)
}
