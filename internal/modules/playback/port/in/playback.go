package in

import (
	"context"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/dto"
)

type Usecase interface {
	Open(ctx context.Context, input dto.OpenInput) (dto.SessionView, error)
	Reload(ctx context.Context) (dto.SessionView, error)
	Unload(ctx context.Context) error
	Close(ctx context.Context) error
	Status(ctx context.Context) (dto.SessionView, error)
	SetAnimation(ctx context.Context, name string, loop bool) (dto.SessionView, error)
	Zoom(ctx context.Context, zoom float64) error
	Pan(ctx context.Context, dx, dy float64) error
	ResetCamera(ctx context.Context) error
	Inspect(ctx context.Context, folder string) (dto.InspectOutput, error)
	Repair(ctx context.Context) (dto.SessionView, error)
	ApplySettings(ctx context.Context, input dto.SettingsInput) error
	History(ctx context.Context) ([]dto.HistoryEntry, error)
	RemoveHistoryEntry(ctx context.Context, id int64) error
	ClearHistory(ctx context.Context) error
	Subscribe(fn func(dto.SessionView)) (unsubscribe func())
}
