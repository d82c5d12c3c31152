package services

import (
	"context"

	"github.com/panelbridge/surveylink/internal/models"
	"github.com/panelbridge/surveylink/internal/store"
)

type DashboardService struct {
	store *store.Store
}

func NewDashboardService(st *store.Store) *DashboardService {
	return &DashboardService{store: st}
}

// DashboardStats aggregates link lifecycle counts for the console,
// optionally scoped to one project.
type DashboardStats struct {
	TotalLinks     int64                       `json:"total_links"`
	ByStatus       map[models.LinkStatus]int64 `json:"by_status"`
	ByType         map[models.LinkType]int64   `json:"by_type"`
	ByVendor       []store.VendorCount         `json:"by_vendor,omitempty"`
	CompletionRate float64                     `json:"completion_rate"`
}

func (s *DashboardService) Stats(ctx context.Context, projectID uint) (*DashboardStats, error) {
	statusCounts, err := s.store.CountLinksByStatus(ctx, projectID)
	if err != nil {
		return nil, err
	}
	typeCounts, err := s.store.CountLinksByType(ctx, projectID)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		ByStatus: make(map[models.LinkStatus]int64),
		ByType:   make(map[models.LinkType]int64),
	}
	for _, sc := range statusCounts {
		stats.ByStatus[sc.Status] = sc.Count
		stats.TotalLinks += sc.Count
	}
	for _, tc := range typeCounts {
		stats.ByType[tc.LinkType] = tc.Count
	}

	// Completion rate over links that reached a terminal outcome.
	completed := stats.ByStatus[models.StatusCompleted]
	terminal := completed + stats.ByStatus[models.StatusDisqualified] + stats.ByStatus[models.StatusFlagged]
	if terminal > 0 {
		stats.CompletionRate = float64(completed) / float64(terminal)
	}

	if projectID != 0 {
		vendorCounts, err := s.store.CountLinksByVendor(ctx, projectID)
		if err != nil {
			return nil, err
		}
		stats.ByVendor = vendorCounts
	}

	return stats, nil
}
