package analytics

import (
	"fmt"

	"miru/internal/users"
	"miru/internal/visitors"
)

// hydrateVisitors batch-loads the visitor rows behind a page of
// drill-down results plus the accounts linked to them.
func (s *Service) hydrateVisitors(ids []uint) (map[uint]visitors.Visitor, map[uint]users.BasicInfo, error) {
	visitorMap, err := visitors.FindByIDs(s.db, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load visitors: %w", err)
	}

	refs := make([]*uint, 0, len(visitorMap))
	for _, v := range visitorMap {
		refs = append(refs, v.UserID)
	}
	userMap, err := users.FindBasicInfoByIDs(s.db, users.ExtractIDs(refs))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load linked users: %w", err)
	}

	return visitorMap, userMap, nil
}
