package out

import (
	"context"

	historydto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/dto"
	historyin "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/port/in"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/domain"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/dto"
)

// HistoryRecorder forwards successful loads to the history module.
type HistoryRecorder struct {
	history historyin.Usecase
}

func NewHistoryRecorder(history historyin.Usecase) *HistoryRecorder {
	return &HistoryRecorder{history: history}
}

func (r *HistoryRecorder) Record(ctx context.Context, source domain.SourceDescriptor, identity domain.Identity) error {
	_, err := r.history.Record(ctx, historydto.RecordInput{
		Kind:                string(source.Kind),
		Path:                source.Path,
		SkeletonURL:         source.SkeletonURL,
		AtlasURL:            source.AtlasURL,
		SkeletonURLFallback: source.SkeletonURLFallback,
		AtlasURLFallback:    source.AtlasURLFallback,
		CharacterID:         identity.CharacterID,
		ModType:             string(identity.ModType),
	})
	return err
}

func (r *HistoryRecorder) List(ctx context.Context) ([]dto.HistoryEntry, error) {
	entries, err := r.history.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.HistoryEntry{
			ID:                  e.ID,
			Kind:                e.Kind,
			Path:                e.Path,
			SkeletonURL:         e.SkeletonURL,
			AtlasURL:            e.AtlasURL,
			SkeletonURLFallback: e.SkeletonURLFallback,
			AtlasURLFallback:    e.AtlasURLFallback,
			CharacterID:         e.CharacterID,
			ModType:             e.ModType,
			Timestamp:           e.Timestamp,
		})
	}
	return out, nil
}

func (r *HistoryRecorder) Remove(ctx context.Context, id int64) error {
	return r.history.Remove(ctx, id)
}

func (r *HistoryRecorder) Clear(ctx context.Context) error {
	return r.history.Clear(ctx)
}
