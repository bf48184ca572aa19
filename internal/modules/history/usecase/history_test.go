package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/domain"
	historydto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/dto"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/service"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/usecase"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/clock"
	apperrors "github.com/bruhnn/BD2ModPreview-sub001/internal/platform/errors"
)

type memoryStore struct {
	state domain.State
	saves int
	err   error
}

func (m *memoryStore) Load(context.Context) (domain.State, error) { return m.state, m.err }
func (m *memoryStore) Save(_ context.Context, s domain.State) error {
	m.saves++
	m.state = s
	return nil
}

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func TestRecordListRemoveClear(t *testing.T) {
	t.Parallel()
	store := &memoryStore{}
	clk := &stepClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	uc := usecase.NewInteractor(service.NewHistoryService(clk, store))
	ctx := context.Background()

	a, err := uc.Record(ctx, historydto.RecordInput{Kind: "folder", Path: "/mods/a", CharacterID: "000101", ModType: "idle"})
	if err != nil {
		t.Fatalf("record a: %v", err)
	}
	if _, err := uc.Record(ctx, historydto.RecordInput{Kind: "url", SkeletonURL: "https://h/s.json", AtlasURL: "https://h/a.atlas"}); err != nil {
		t.Fatalf("record b: %v", err)
	}
	again, err := uc.Record(ctx, historydto.RecordInput{Kind: "folder", Path: "/mods/a"})
	if err != nil {
		t.Fatalf("record a again: %v", err)
	}
	if again.ID != a.ID {
		t.Fatalf("duplicate must keep id %d, got %d", a.ID, again.ID)
	}

	list, err := uc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Path != "/mods/a" || list[0].CharacterID != "000101" {
		t.Fatalf("unexpected list %+v", list)
	}
	if store.state.LastID != 2 || store.saves != 3 {
		t.Fatalf("expected write-through persistence, got %+v saves=%d", store.state, store.saves)
	}

	if err := uc.Remove(ctx, 42); err != nil {
		t.Fatalf("remove unknown: %v", err)
	}
	if store.saves != 3 {
		t.Fatalf("removing unknown id must not persist")
	}
	if err := uc.Remove(ctx, a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := uc.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(store.state.Entries) != 0 || store.state.LastID != 0 {
		t.Fatalf("clear must persist an empty ledger, got %+v", store.state)
	}
}

func TestRecordValidatesInput(t *testing.T) {
	t.Parallel()
	uc := usecase.NewInteractor(service.NewHistoryService(clock.SystemClock{}, &memoryStore{}))
	_, err := uc.Record(context.Background(), historydto.RecordInput{Kind: "url", SkeletonURL: "https://h/s.skel"})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if err := uc.Remove(context.Background(), 0); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input for id 0, got %v", err)
	}
}

func TestLedgerIsRestoredFromStore(t *testing.T) {
	t.Parallel()
	store := &memoryStore{state: domain.State{
		Entries: []domain.Entry{{ID: 5, Source: domain.Source{Kind: domain.SourceKindFolder, Path: "/old"}, Timestamp: time.Unix(10, 0)}},
		LastID:  5,
	}}
	uc := usecase.NewInteractor(service.NewHistoryService(clock.SystemClock{}, store))
	entry, err := uc.Record(context.Background(), historydto.RecordInput{Kind: "folder", Path: "/new"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if entry.ID != 6 {
		t.Fatalf("expected restored counter, got id %d", entry.ID)
	}
	list, _ := uc.List(context.Background())
	if len(list) != 2 || list[0].Path != "/new" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestLoadErrorSurfaces(t *testing.T) {
	t.Parallel()
	boom := errors.New("disk gone")
	uc := usecase.NewInteractor(service.NewHistoryService(clock.SystemClock{}, &memoryStore{err: boom}))
	if _, err := uc.List(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
}
