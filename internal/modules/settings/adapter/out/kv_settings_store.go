package out

import (
	"context"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/domain"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/kv"
)

const settingsKey = "settings"

type KVSettingsStore struct {
	store kv.Store
}

func NewKVSettingsStore(store kv.Store) *KVSettingsStore {
	return &KVSettingsStore{store: store}
}

func (s *KVSettingsStore) Load(ctx context.Context) (domain.Settings, bool, error) {
	var settings domain.Settings
	ok, err := s.store.Get(ctx, settingsKey, &settings)
	if err != nil || !ok {
		return domain.Settings{}, false, err
	}
	return settings, true, nil
}

func (s *KVSettingsStore) Save(ctx context.Context, settings domain.Settings) error {
	return s.store.Set(ctx, settingsKey, settings)
}
