// Package content provides the read-only lookup of content metadata that
// the analytics layer joins against. Content CRUD is owned by the main
// site; miru only resolves ids collected from event payloads.
package content

import (
	"time"

	"gorm.io/gorm"
)

// Resource mirrors the columns of the site's content catalog that miru
// reads. ContentID is the public identifier carried in event payloads.
type Resource struct {
	ID        uint   `gorm:"primaryKey"`
	ContentID string `gorm:"uniqueIndex;size:64;not null"`
	Name      string
	CoverURL  string
	Status    int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Metadata is the projection attached to content aggregate rows.
type Metadata struct {
	ContentID string
	Name      string
	CoverURL  string
	Status    int
}

// PlaceholderName labels aggregate rows whose content id no longer
// resolves. Such rows are kept, never dropped.
const PlaceholderName = "unknown"

// MetadataLookup resolves content ids to display metadata. The analytics
// layer depends on this interface so tests can stub the catalog.
type MetadataLookup interface {
	MetadataByIDs(ids []string) (map[string]Metadata, error)
}

// Store is the gorm-backed MetadataLookup.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// MetadataByIDs batch-loads metadata for the given content ids. Ids not
// present in the catalog are absent from the returned map.
func (s *Store) MetadataByIDs(ids []string) (map[string]Metadata, error) {
	result := make(map[string]Metadata, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var rows []Resource
	if err := s.db.Select("content_id", "name", "cover_url", "status").
		Where("content_id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, r := range rows {
		result[r.ContentID] = Metadata{
			ContentID: r.ContentID,
			Name:      r.Name,
			CoverURL:  r.CoverURL,
			Status:    r.Status,
		}
	}
	return result, nil
}

// Placeholder returns the metadata used for an unresolved content id.
func Placeholder(contentID string) Metadata {
	return Metadata{ContentID: contentID, Name: PlaceholderName}
}
