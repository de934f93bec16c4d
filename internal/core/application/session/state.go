package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tdex-network/gdk-electrum/internal/core/domain"
	"golang.org/x/sync/errgroup"
)

// Worker is a long-lived background task. It must return once ctx is done.
type Worker func(ctx context.Context) error

// State owns the mutable state of a session shared between the request path
// and the background workers: the account registry, the set of outpoints
// spent by the session but possibly not yet seen as spent by the indexer, the
// connectivity flags and the handles of the background workers.
//
// The account registry and the spent set are guarded by independent
// read/write locks. Whoever needs both must take the registry lock first and
// the spent set lock second, never the reverse.
type State struct {
	accountsLock *sync.RWMutex
	accounts     map[uint32]*domain.Account

	spentLock *sync.RWMutex
	spent     map[domain.Outpoint]struct{}

	userWantsToSync          atomic.Bool
	lastNetworkCallSucceeded atomic.Bool

	workersLock *sync.Mutex
	workers     *errgroup.Group
	stopWorkers context.CancelFunc
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		accountsLock: &sync.RWMutex{},
		accounts:     map[uint32]*domain.Account{},
		spentLock:    &sync.RWMutex{},
		spent:        map[domain.Outpoint]struct{}{},
		workersLock:  &sync.Mutex{},
	}
}

// Account returns a copy of the account with the given index. Absence is not
// an error.
func (s *State) Account(index uint32) (domain.Account, bool) {
	s.accountsLock.RLock()
	defer s.accountsLock.RUnlock()

	account, ok := s.accounts[index]
	if !ok {
		return domain.Account{}, false
	}
	return account.Copy(), true
}

// Accounts returns a snapshot of the registry ordered by index.
func (s *State) Accounts() []domain.Account {
	s.accountsLock.RLock()
	defer s.accountsLock.RUnlock()

	accounts := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, a.Copy())
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Index < accounts[j].Index
	})
	return accounts
}

// AccountIndexes returns the indexes of the registered accounts in ascending
// order.
func (s *State) AccountIndexes() []uint32 {
	s.accountsLock.RLock()
	defer s.accountsLock.RUnlock()

	indexes := make([]uint32, 0, len(s.accounts))
	for i := range s.accounts {
		indexes = append(indexes, i)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })
	return indexes
}

// NextAccountIndex returns the lowest index greater than any registered one.
func (s *State) NextAccountIndex() uint32 {
	s.accountsLock.RLock()
	defer s.accountsLock.RUnlock()

	if len(s.accounts) == 0 {
		return 0
	}
	var next uint32
	for i := range s.accounts {
		if i >= next {
			next = i + 1
		}
	}
	return next
}

// PutAccount inserts the given account or replaces the one with the same
// index.
func (s *State) PutAccount(account domain.Account) {
	s.accountsLock.Lock()
	defer s.accountsLock.Unlock()

	a := account.Copy()
	s.accounts[a.Index] = &a
}

// AddAccount inserts the given account, failing if the index is taken.
func (s *State) AddAccount(account domain.Account) error {
	s.accountsLock.Lock()
	defer s.accountsLock.Unlock()

	if _, ok := s.accounts[account.Index]; ok {
		return domain.ErrSubaccountExists
	}
	a := account.Copy()
	s.accounts[a.Index] = &a
	return nil
}

// UpdateAccount applies updateFn to the account with the given index under
// the registry write lock and returns the updated copy. The registry is left
// untouched if updateFn fails.
func (s *State) UpdateAccount(
	index uint32, updateFn func(a *domain.Account) error,
) (domain.Account, error) {
	s.accountsLock.Lock()
	defer s.accountsLock.Unlock()

	current, ok := s.accounts[index]
	if !ok {
		return domain.Account{}, domain.ErrSubaccountNotFound
	}
	updated := current.Copy()
	if err := updateFn(&updated); err != nil {
		return domain.Account{}, err
	}
	updated.Index = index
	s.accounts[index] = &updated
	return updated.Copy(), nil
}

// RemoveAccount deletes the account with the given index, returning whether
// it was registered.
func (s *State) RemoveAccount(index uint32) bool {
	s.accountsLock.Lock()
	defer s.accountsLock.Unlock()

	_, ok := s.accounts[index]
	delete(s.accounts, index)
	return ok
}

// ResetAccounts replaces the whole registry with the given accounts.
func (s *State) ResetAccounts(accounts []domain.Account) {
	s.accountsLock.Lock()
	defer s.accountsLock.Unlock()

	s.accounts = make(map[uint32]*domain.Account, len(accounts))
	for _, account := range accounts {
		a := account.Copy()
		s.accounts[a.Index] = &a
	}
}

// MarkSpent records outpoints spent by a transaction just broadcast.
func (s *State) MarkSpent(outpoints ...domain.Outpoint) {
	s.spentLock.Lock()
	defer s.spentLock.Unlock()

	for _, op := range outpoints {
		s.spent[op] = struct{}{}
	}
}

// ClearIfConfirmed forgets the outpoint once the indexer reports its spend as
// confirmed, returning whether it has been removed.
func (s *State) ClearIfConfirmed(
	outpoint domain.Outpoint, outspend domain.Outspend,
) bool {
	if !outspend.Spent || !outspend.Confirmed {
		return false
	}

	s.spentLock.Lock()
	defer s.spentLock.Unlock()

	if _, ok := s.spent[outpoint]; !ok {
		return false
	}
	delete(s.spent, outpoint)
	return true
}

// IsSpent returns whether the outpoint has been spent by the session and not
// yet cleared.
func (s *State) IsSpent(outpoint domain.Outpoint) bool {
	s.spentLock.RLock()
	defer s.spentLock.RUnlock()

	_, ok := s.spent[outpoint]
	return ok
}

// SpentOutpoints returns a snapshot of the spent set, sorted.
func (s *State) SpentOutpoints() []domain.Outpoint {
	s.spentLock.RLock()
	defer s.spentLock.RUnlock()

	outpoints := make([]domain.Outpoint, 0, len(s.spent))
	for op := range s.spent {
		outpoints = append(outpoints, op)
	}
	sort.Slice(outpoints, func(i, j int) bool {
		if outpoints[i].Txid == outpoints[j].Txid {
			return outpoints[i].Vout < outpoints[j].Vout
		}
		return outpoints[i].Txid < outpoints[j].Txid
	})
	return outpoints
}

// WithAccountAndSpent runs fn with a read lock on both the account with the
// given index and the spent set, acquired in registry, spent set order.
func (s *State) WithAccountAndSpent(
	index uint32,
	fn func(account *domain.Account, isSpent func(domain.Outpoint) bool) error,
) error {
	s.accountsLock.RLock()
	defer s.accountsLock.RUnlock()

	account, ok := s.accounts[index]
	if !ok {
		return domain.ErrSubaccountNotFound
	}

	s.spentLock.RLock()
	defer s.spentLock.RUnlock()

	isSpent := func(op domain.Outpoint) bool {
		_, ok := s.spent[op]
		return ok
	}
	return fn(account, isSpent)
}

// SelectableUtxos returns the subset of utxos that belong to the account
// with the given index and have not been spent by the session.
func (s *State) SelectableUtxos(
	index uint32, utxos []domain.Utxo,
) ([]domain.Utxo, error) {
	var selectable []domain.Utxo
	err := s.WithAccountAndSpent(index, func(
		account *domain.Account, isSpent func(domain.Outpoint) bool,
	) error {
		owned := make([]domain.Utxo, 0, len(utxos))
		for _, u := range utxos {
			if account.HasAddress(u.Address) {
				owned = append(owned, u)
			}
		}
		selectable = domain.FilterUtxos(owned, isSpent)
		return nil
	})
	return selectable, err
}

func (s *State) SetUserWantsToSync(v bool) {
	s.userWantsToSync.Store(v)
}

func (s *State) UserWantsToSync() bool {
	return s.userWantsToSync.Load()
}

func (s *State) SetLastNetworkCallSucceeded(v bool) {
	s.lastNetworkCallSucceeded.Store(v)
}

func (s *State) LastNetworkCallSucceeded() bool {
	return s.lastNetworkCallSucceeded.Load()
}

// StartWorkers spawns the given workers. Starting workers while others are
// still running is rejected with domain.ErrWorkersRunning.
func (s *State) StartWorkers(ctx context.Context, workers ...Worker) error {
	s.workersLock.Lock()
	defer s.workersLock.Unlock()

	if s.workers != nil {
		return domain.ErrWorkersRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(ctx)
	for _, w := range workers {
		w := w
		group.Go(func() error {
			return w(groupCtx)
		})
	}

	s.workers = group
	s.stopWorkers = cancel
	return nil
}

// StopAndJoin clears the sync intent, signals the running workers to stop and
// waits for all of them to return. Joining is a no-op if no worker is running.
func (s *State) StopAndJoin() error {
	s.workersLock.Lock()
	defer s.workersLock.Unlock()

	s.userWantsToSync.Store(false)
	if s.workers == nil {
		return nil
	}

	s.stopWorkers()
	err := s.workers.Wait()
	s.workers = nil
	s.stopWorkers = nil

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// WorkersRunning returns whether background workers have been started and
// not stopped yet.
func (s *State) WorkersRunning() bool {
	s.workersLock.Lock()
	defer s.workersLock.Unlock()

	return s.workers != nil
}
