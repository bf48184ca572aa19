package out

import (
	"context"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/domain"
)

type SettingsStore interface {
	Load(ctx context.Context) (domain.Settings, bool, error)
	Save(ctx context.Context, settings domain.Settings) error
}
