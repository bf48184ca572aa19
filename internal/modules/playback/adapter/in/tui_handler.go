package in

import (
	"context"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/dto"
	playbackin "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/port/in"
)

type TUIHandler struct {
	usecase playbackin.Usecase
}

func NewTUIHandler(usecase playbackin.Usecase) TUIHandler {
	return TUIHandler{usecase: usecase}
}

func (h TUIHandler) Open(ctx context.Context, input dto.OpenInput) (dto.SessionView, error) {
	return h.usecase.Open(ctx, input)
}

// OpenHistoryEntry reopens a recorded source, fallback URLs included.
func (h TUIHandler) OpenHistoryEntry(ctx context.Context, entry dto.HistoryEntry) (dto.SessionView, error) {
	return h.usecase.Open(ctx, dto.OpenInput{
		Kind:                entry.Kind,
		Path:                entry.Path,
		SkeletonURL:         entry.SkeletonURL,
		AtlasURL:            entry.AtlasURL,
		SkeletonURLFallback: entry.SkeletonURLFallback,
		AtlasURLFallback:    entry.AtlasURLFallback,
	})
}

func (h TUIHandler) Reload(ctx context.Context) (dto.SessionView, error) {
	return h.usecase.Reload(ctx)
}

func (h TUIHandler) Close(ctx context.Context) error {
	return h.usecase.Unload(ctx)
}

func (h TUIHandler) Status(ctx context.Context) (dto.SessionView, error) {
	return h.usecase.Status(ctx)
}

func (h TUIHandler) SetAnimation(ctx context.Context, name string, loop bool) (dto.SessionView, error) {
	return h.usecase.SetAnimation(ctx, name, loop)
}

func (h TUIHandler) Zoom(ctx context.Context, zoom float64) error {
	return h.usecase.Zoom(ctx, zoom)
}

func (h TUIHandler) Pan(ctx context.Context, dx, dy float64) error {
	return h.usecase.Pan(ctx, dx, dy)
}

func (h TUIHandler) ResetCamera(ctx context.Context) error {
	return h.usecase.ResetCamera(ctx)
}

func (h TUIHandler) Repair(ctx context.Context) (dto.SessionView, error) {
	return h.usecase.Repair(ctx)
}

func (h TUIHandler) History(ctx context.Context) ([]dto.HistoryEntry, error) {
	return h.usecase.History(ctx)
}

func (h TUIHandler) RemoveHistoryEntry(ctx context.Context, id int64) error {
	return h.usecase.RemoveHistoryEntry(ctx, id)
}

func (h TUIHandler) ClearHistory(ctx context.Context) error {
	return h.usecase.ClearHistory(ctx)
}

func (h TUIHandler) Subscribe(fn func(dto.SessionView)) func() {
	return h.usecase.Subscribe(fn)
}
