package in

import (
	"context"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/dto"
)

type Usecase interface {
	Show(ctx context.Context) (dto.Settings, error)
	Update(ctx context.Context, input dto.UpdateInput) (dto.Settings, error)
	Reset(ctx context.Context) (dto.Settings, error)
	Subscribe(fn func(dto.Settings)) (unsubscribe func())
}
