package in

import (
	"context"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/dto"
)

type Usecase interface {
	Record(ctx context.Context, input dto.RecordInput) (dto.Entry, error)
	List(ctx context.Context) ([]dto.Entry, error)
	Remove(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
}
