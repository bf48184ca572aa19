package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/domain"
	settingsout "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/port/out"
	apperrors "github.com/bruhnn/BD2ModPreview-sub001/internal/platform/errors"
)

// SettingsService keeps the effective settings: persisted values over configured defaults.
type SettingsService struct {
	mu       sync.Mutex
	defaults domain.Settings
	store    settingsout.SettingsStore
	current  domain.Settings
	loaded   bool

	obsMu     sync.Mutex
	observers map[int]func(domain.Settings)
	nextObs   int
}

func NewSettingsService(defaults domain.Settings, store settingsout.SettingsStore) *SettingsService {
	return &SettingsService{
		defaults:  defaults.Normalize(),
		store:     store,
		observers: map[int]func(domain.Settings){},
	}
}

func (s *SettingsService) Current(ctx context.Context) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.Settings{}, err
	}
	return s.current, nil
}

// Update applies patch, persists the result and notifies observers when anything changed.
func (s *SettingsService) Update(ctx context.Context, patch domain.Patch) (domain.Settings, error) {
	s.mu.Lock()
	if err := s.ensureLoaded(ctx); err != nil {
		s.mu.Unlock()
		return domain.Settings{}, err
	}
	next := patch.Apply(s.current)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return domain.Settings{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if next == s.current {
		s.mu.Unlock()
		return next, nil
	}
	if s.store != nil {
		if err := s.store.Save(ctx, next); err != nil {
			s.mu.Unlock()
			return domain.Settings{}, fmt.Errorf("save settings: %w", err)
		}
	}
	s.current = next
	s.mu.Unlock()

	s.notify(next)
	return next, nil
}

// Reset drops persisted overrides and returns to the configured defaults.
func (s *SettingsService) Reset(ctx context.Context) (domain.Settings, error) {
	s.mu.Lock()
	if err := s.ensureLoaded(ctx); err != nil {
		s.mu.Unlock()
		return domain.Settings{}, err
	}
	changed := s.current != s.defaults
	if s.store != nil {
		if err := s.store.Save(ctx, s.defaults); err != nil {
			s.mu.Unlock()
			return domain.Settings{}, fmt.Errorf("save settings: %w", err)
		}
	}
	s.current = s.defaults
	s.mu.Unlock()

	if changed {
		s.notify(s.defaults)
	}
	return s.defaults, nil
}

func (s *SettingsService) Subscribe(fn func(domain.Settings)) func() {
	s.obsMu.Lock()
	key := s.nextObs
	s.nextObs++
	s.observers[key] = fn
	s.obsMu.Unlock()
	return func() {
		s.obsMu.Lock()
		delete(s.observers, key)
		s.obsMu.Unlock()
	}
}

func (s *SettingsService) notify(settings domain.Settings) {
	s.obsMu.Lock()
	keys := make([]int, 0, len(s.observers))
	for k := range s.observers {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fns := make([]func(domain.Settings), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, s.observers[k])
	}
	s.obsMu.Unlock()
	for _, fn := range fns {
		fn(settings)
	}
}

func (s *SettingsService) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	s.current = s.defaults
	if s.store != nil {
		stored, ok, err := s.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		if ok {
			stored = stored.Normalize()
			if stored.Validate() == nil {
				s.current = stored
			}
		}
	}
	s.loaded = true
	return nil
}
