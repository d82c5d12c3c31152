package services

import (
	"context"
	"time"

	"github.com/panelbridge/surveylink/internal/models"
	"github.com/panelbridge/surveylink/internal/store"
	"github.com/panelbridge/surveylink/pkg/logger"
	"github.com/robfig/cron/v3"
)

// SweeperService disqualifies links stuck IN_PROGRESS beyond the idle
// window. Respondents who abandon a survey never send a completion
// webhook, so their slots must be reclaimed explicitly.
type SweeperService struct {
	store      *store.Store
	staleAfter time.Duration
}

func NewSweeperService(st *store.Store, staleAfter time.Duration) *SweeperService {
	return &SweeperService{store: st, staleAfter: staleAfter}
}

// SweepStale marks every stale in-progress link DISQUALIFIED with a
// timeout reason and returns how many were swept.
func (s *SweeperService) SweepStale(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.staleAfter)
	links, err := s.store.ListStaleInProgress(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range links {
		link := &links[i]
		meta := link.DecodeMetadata()
		meta.DisqualifyReason = "session timeout"
		link.SetMetadata(meta)
		link.Status = models.StatusDisqualified

		if err := s.store.UpdateSurveyLink(ctx, link); err != nil {
			logger.Warn().Err(err).Str("uid", link.UID).Msg("stale link sweep update failed")
			continue
		}
		swept++
	}
	return swept, nil
}

// StartSweepScheduler runs the stale sweep hourly.
func StartSweepScheduler(st *store.Store, staleAfter time.Duration) *cron.Cron {
	service := NewSweeperService(st, staleAfter)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", func() {
		swept, err := service.SweepStale(context.Background())
		if err != nil {
			logger.Error().Err(err).Msg("stale link sweep failed")
			return
		}
		if swept > 0 {
			logger.Infof("[Sweeper] Disqualified %d stale in-progress links", swept)
		}
	}); err != nil {
		logger.Error().Err(err).Msg("failed to schedule stale link sweep")
		return scheduler
	}
	scheduler.Start()
	return scheduler
}
