package usecase

import (
	"context"
	"fmt"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/domain"
	historydto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/dto"
	historyin "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/port/in"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/service"
	apperrors "github.com/bruhnn/BD2ModPreview-sub001/internal/platform/errors"
)

type Interactor struct {
	svc *service.HistoryService
}

func NewInteractor(svc *service.HistoryService) historyin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Record(ctx context.Context, input historydto.RecordInput) (historydto.Entry, error) {
	src := domain.Source{
		Kind:                domain.SourceKind(input.Kind),
		Path:                input.Path,
		SkeletonURL:         input.SkeletonURL,
		AtlasURL:            input.AtlasURL,
		SkeletonURLFallback: input.SkeletonURLFallback,
		AtlasURLFallback:    input.AtlasURLFallback,
	}
	if err := src.Validate(); err != nil {
		return historydto.Entry{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	entry, err := i.svc.Record(ctx, src, input.CharacterID, input.ModType)
	if err != nil {
		return historydto.Entry{}, err
	}
	return toDTO(entry), nil
}

func (i *Interactor) List(ctx context.Context) ([]historydto.Entry, error) {
	entries, err := i.svc.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]historydto.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, toDTO(e))
	}
	return out, nil
}

func (i *Interactor) Remove(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: history id must be positive", apperrors.ErrInvalidInput)
	}
	return i.svc.Remove(ctx, id)
}

func (i *Interactor) Clear(ctx context.Context) error {
	return i.svc.Clear(ctx)
}

func toDTO(e domain.Entry) historydto.Entry {
	return historydto.Entry{
		ID:                  e.ID,
		Kind:                string(e.Source.Kind),
		Path:                e.Source.Path,
		SkeletonURL:         e.Source.SkeletonURL,
		AtlasURL:            e.Source.AtlasURL,
		SkeletonURLFallback: e.Source.SkeletonURLFallback,
		AtlasURLFallback:    e.Source.AtlasURLFallback,
		CharacterID:         e.CharacterID,
		ModType:             e.ModType,
		Timestamp:           e.Timestamp,
	}
}
