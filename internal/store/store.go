package store

import (
	"context"

	"gorm.io/gorm"
)

// Store is the persistence gateway: the sole interface to the backing
// database for survey links and their related entities. Every write either
// returns the persisted record or a classified *StoreError.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Ping verifies the backing store is reachable. The batch orchestrator
// calls it before fanning out so an unreachable store fails the whole
// batch up front instead of producing N identical task failures.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return classify("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}
