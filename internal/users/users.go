// Package users exposes the minimal projection of the main site's user
// accounts that the tracking engine needs. Account management itself
// lives outside this subsystem.
package users

import (
	"time"

	"gorm.io/gorm"
)

// User mirrors the columns of the site's user table that miru reads.
type User struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"index"`
	Email     string    `gorm:"uniqueIndex"`
	Avatar    string
	Role      int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// BasicInfo is the projection attached to visitor rows in admin views.
type BasicInfo struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Email  string `json:"email"`
}

// FindBasicInfoByIDs batch-loads user projections, returning an id-keyed
// map. Unknown ids are simply absent from the map.
func FindBasicInfoByIDs(db *gorm.DB, ids []uint) (map[uint]BasicInfo, error) {
	result := make(map[uint]BasicInfo, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var rows []User
	if err := db.Select("id", "name", "avatar", "email").
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, u := range rows {
		result[u.ID] = BasicInfo{ID: u.ID, Name: u.Name, Avatar: u.Avatar, Email: u.Email}
	}
	return result, nil
}

// ExtractIDs collects the distinct non-nil user ids from a list of
// optional references.
func ExtractIDs(refs []*uint) []uint {
	seen := make(map[uint]struct{}, len(refs))
	var ids []uint
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		if _, ok := seen[*ref]; ok {
			continue
		}
		seen[*ref] = struct{}{}
		ids = append(ids, *ref)
	}
	return ids
}
