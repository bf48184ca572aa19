package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/domain"
	historyout "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/port/out"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/clock"
)

// HistoryService owns the in-memory ledger and writes it through to the store after every change.
type HistoryService struct {
	mu     sync.Mutex
	clock  clock.Clock
	store  historyout.LedgerStore
	ledger *domain.Ledger
	loaded bool
}

func NewHistoryService(clock clock.Clock, store historyout.LedgerStore) *HistoryService {
	return &HistoryService{clock: clock, store: store, ledger: domain.NewLedger()}
}

func (s *HistoryService) Record(ctx context.Context, src domain.Source, characterID, modType string) (domain.Entry, error) {
	if err := src.Validate(); err != nil {
		return domain.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.Entry{}, err
	}
	entry := s.ledger.Upsert(src, characterID, modType, s.clock.Now())
	return entry, s.persist(ctx)
}

func (s *HistoryService) List(ctx context.Context) ([]domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.ledger.List(), nil
}

func (s *HistoryService) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if !s.ledger.Remove(id) {
		return nil
	}
	return s.persist(ctx)
}

func (s *HistoryService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	s.ledger.Clear()
	return s.persist(ctx)
}

func (s *HistoryService) ensureLoaded(ctx context.Context) error {
	if s.loaded || s.store == nil {
		return nil
	}
	state, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	s.ledger = domain.Restore(state)
	s.loaded = true
	return nil
}

func (s *HistoryService) persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, s.ledger.State()); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}
