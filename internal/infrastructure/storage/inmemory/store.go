package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/tdex-network/gdk-electrum/internal/core/domain"
	"github.com/tdex-network/gdk-electrum/internal/core/ports"
)

type store struct {
	memos    map[string]string
	settings *domain.Settings
	accounts map[uint32]domain.AccountMetadata

	lock *sync.RWMutex
}

// NewStoreFactory returns a ports.StoreFactory whose stores live as long as
// the process. Stores are per wallet, reopening the store of a wallet returns
// the same data.
func NewStoreFactory() ports.StoreFactory {
	stores := make(map[string]*store)
	lock := &sync.Mutex{}

	return func(walletHashID string) (ports.Store, error) {
		lock.Lock()
		defer lock.Unlock()

		if s, ok := stores[walletHashID]; ok {
			return s, nil
		}
		s := newStore()
		stores[walletHashID] = s
		return s, nil
	}
}

func newStore() *store {
	return &store{
		memos:    make(map[string]string),
		accounts: make(map[uint32]domain.AccountMetadata),
		lock:     &sync.RWMutex{},
	}
}

func (s *store) GetMemo(_ context.Context, txid string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.memos[txid], nil
}

func (s *store) SetMemo(_ context.Context, txid, memo string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if memo == "" {
		delete(s.memos, txid)
		return nil
	}
	s.memos[txid] = memo
	return nil
}

func (s *store) GetSettings(_ context.Context) (*domain.Settings, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.settings == nil {
		return nil, nil
	}
	settings := *s.settings
	return &settings, nil
}

func (s *store) SetSettings(_ context.Context, settings domain.Settings) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.settings = &settings
	return nil
}

func (s *store) GetAccounts(_ context.Context) ([]domain.AccountMetadata, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	accounts := make([]domain.AccountMetadata, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Index < accounts[j].Index
	})
	return accounts, nil
}

func (s *store) SaveAccount(_ context.Context, account domain.AccountMetadata) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.accounts[account.Index] = account
	return nil
}

func (s *store) Close() error {
	return nil
}
