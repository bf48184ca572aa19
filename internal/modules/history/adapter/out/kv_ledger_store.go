package out

import (
	"context"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/modules/history/domain"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/platform/kv"
)

const historyKey = "history"

type KVLedgerStore struct {
	store kv.Store
}

func NewKVLedgerStore(store kv.Store) *KVLedgerStore {
	return &KVLedgerStore{store: store}
}

func (s *KVLedgerStore) Load(ctx context.Context) (domain.State, error) {
	var state domain.State
	if _, err := s.store.Get(ctx, historyKey, &state); err != nil {
		return domain.State{}, err
	}
	return state, nil
}

func (s *KVLedgerStore) Save(ctx context.Context, state domain.State) error {
	return s.store.Set(ctx, historyKey, state)
}
