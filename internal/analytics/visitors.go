package analytics

import (
	"fmt"

	"miru/internal/pagination"
	"miru/internal/timeframe"
	"miru/internal/users"
	"miru/internal/visitors"
)

// VisitorRow is one visitor in the admin visitor listing.
type VisitorRow struct {
	visitors.StatsRow
	User *users.BasicInfo `json:"user,omitempty"`
}

// VisitorList is one page of the visitor listing.
type VisitorList struct {
	Visitors []VisitorRow    `json:"visitors"`
	Meta     pagination.Meta `json:"meta"`
}

// Visitors pages the visitors first seen inside the frame, newest
// activity first, and hydrates their linked accounts. This listing
// orders by a plain column, so it pages in the database instead of
// materializing the frame.
func (s *Service) Visitors(tf timeframe.TimeFrame, page, pageSize int) (*VisitorList, error) {
	offset := (page - 1) * pageSize
	stats, total, err := visitors.ListByLastSeen(s.db, tf, pageSize, offset)
	if err != nil {
		return nil, err
	}

	refs := make([]*uint, 0, len(stats))
	for _, row := range stats {
		refs = append(refs, row.UserID)
	}
	userMap, err := users.FindBasicInfoByIDs(s.db, users.ExtractIDs(refs))
	if err != nil {
		return nil, fmt.Errorf("failed to load linked users: %w", err)
	}

	rows := make([]VisitorRow, 0, len(stats))
	for _, stat := range stats {
		row := VisitorRow{StatsRow: stat}
		if stat.UserID != nil {
			if info, ok := userMap[*stat.UserID]; ok {
				row.User = &info
			}
		}
		rows = append(rows, row)
	}

	return &VisitorList{
		Visitors: rows,
		Meta:     pagination.NewMeta(page, pageSize, int(total)),
	}, nil
}
