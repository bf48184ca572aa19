package out

import (
	"context"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/domain"
)

type LedgerStore interface {
	Load(ctx context.Context) (domain.State, error)
	Save(ctx context.Context, state domain.State) error
}
