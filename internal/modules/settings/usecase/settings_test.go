package usecase_test

import (
	"context"
	"errors"
	"testing"

	settingshandler "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/adapter/in"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/domain"
	settingsdto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/dto"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/service"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/usecase"
	apperrors "github.com/bruhnn/BD2ModPreview-sub001/internal/platform/errors"
)

type memoryStore struct {
	settings domain.Settings
	ok       bool
	saves    int
}

func (m *memoryStore) Load(context.Context) (domain.Settings, bool, error) {
	return m.settings, m.ok, nil
}

func (m *memoryStore) Save(_ context.Context, s domain.Settings) error {
	m.settings, m.ok = s, true
	m.saves++
	return nil
}

var defaults = domain.Settings{BackgroundColor: "#1e1e2e", PremultipliedAlpha: true, Loop: true}

func TestShowFallsBackToDefaults(t *testing.T) {
	t.Parallel()
	uc := usecase.NewInteractor(service.NewSettingsService(defaults, &memoryStore{}))
	got, err := uc.Show(context.Background())
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if got.BackgroundColor != "#1e1e2e" || !got.Loop || !got.PremultipliedAlpha {
		t.Fatalf("unexpected defaults %+v", got)
	}
}

func TestShowPrefersStoredAndIgnoresCorruptColor(t *testing.T) {
	t.Parallel()
	stored := &memoryStore{settings: domain.Settings{BackgroundColor: "#ABCDEF"}, ok: true}
	got, _ := usecase.NewInteractor(service.NewSettingsService(defaults, stored)).Show(context.Background())
	if got.BackgroundColor != "#abcdef" || got.Loop {
		t.Fatalf("expected stored settings, got %+v", got)
	}

	corrupt := &memoryStore{settings: domain.Settings{BackgroundColor: "blue"}, ok: true}
	got, _ = usecase.NewInteractor(service.NewSettingsService(defaults, corrupt)).Show(context.Background())
	if got.BackgroundColor != "#1e1e2e" {
		t.Fatalf("invalid stored settings must fall back to defaults, got %+v", got)
	}
}

func TestUpdateNotifiesOnlyOnChange(t *testing.T) {
	t.Parallel()
	store := &memoryStore{}
	uc := usecase.NewInteractor(service.NewSettingsService(defaults, store))
	var seen []settingsdto.Settings
	unsubscribe := uc.Subscribe(func(s settingsdto.Settings) { seen = append(seen, s) })
	handler := settingshandler.NewCLIHandler(uc)
	ctx := context.Background()

	if _, err := handler.Set(ctx, "loop", "false"); err != nil {
		t.Fatalf("set loop: %v", err)
	}
	if _, err := handler.Set(ctx, "LOOP", "false"); err != nil {
		t.Fatalf("repeat set: %v", err)
	}
	if len(seen) != 1 || seen[0].Loop {
		t.Fatalf("expected exactly one notification, got %+v", seen)
	}
	if store.saves != 1 || store.settings.Loop {
		t.Fatalf("expected one save, got %d", store.saves)
	}

	unsubscribe()
	if _, err := handler.Set(ctx, "background_color", "#FFFFFF"); err != nil {
		t.Fatalf("set color: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("unsubscribed observer was notified")
	}
	if store.settings.BackgroundColor != "#ffffff" {
		t.Fatalf("expected normalized colour to be saved, got %q", store.settings.BackgroundColor)
	}
}

func TestUpdateRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	store := &memoryStore{}
	handler := settingshandler.NewCLIHandler(usecase.NewInteractor(service.NewSettingsService(defaults, store)))
	ctx := context.Background()
	for _, tc := range []struct{ key, value string }{
		{"background_color", "#12"},
		{"loop", "maybe"},
		{"volume", "11"},
	} {
		if _, err := handler.Set(ctx, tc.key, tc.value); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Fatalf("expected invalid input for %s=%s, got %v", tc.key, tc.value, err)
		}
	}
	if store.saves != 0 {
		t.Fatalf("invalid updates must not be saved")
	}
	if _, err := usecase.NewInteractor(service.NewSettingsService(defaults, store)).Update(ctx, settingsdto.UpdateInput{}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("empty update must be rejected, got %v", err)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	t.Parallel()
	store := &memoryStore{settings: domain.Settings{BackgroundColor: "#000000"}, ok: true}
	uc := usecase.NewInteractor(service.NewSettingsService(defaults, store))
	notified := 0
	uc.Subscribe(func(settingsdto.Settings) { notified++ })
	got, err := uc.Reset(context.Background())
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got.BackgroundColor != "#1e1e2e" || store.settings != defaults || notified != 1 {
		t.Fatalf("unexpected reset result %+v notified=%d", got, notified)
	}
}
