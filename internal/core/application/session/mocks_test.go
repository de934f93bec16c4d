package session_test

import (
	"context"
	"sort"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
	"github.com/tdex-network/gdk-electrum/internal/core/ports"
)

// **** Blockchain ****

type mockBlockchain struct {
	mock.Mock
}

func (m *mockBlockchain) GetBlockHeight(ctx context.Context) (uint32, error) {
	args := m.Called(ctx)

	var res uint32
	if a := args.Get(0); a != nil {
		res = a.(uint32)
	}
	return res, args.Error(1)
}

func (m *mockBlockchain) GetFeeEstimates(
	ctx context.Context,
) ([]domain.FeeEstimate, error) {
	args := m.Called(ctx)

	var res []domain.FeeEstimate
	if a := args.Get(0); a != nil {
		res = a.([]domain.FeeEstimate)
	}
	return res, args.Error(1)
}

func (m *mockBlockchain) GetTransactionHex(
	ctx context.Context, txid string,
) (string, error) {
	args := m.Called(ctx, txid)
	return args.String(0), args.Error(1)
}

func (m *mockBlockchain) GetTransactions(
	ctx context.Context, addresses []string,
) ([]domain.TxSummary, error) {
	args := m.Called(ctx, addresses)

	var res []domain.TxSummary
	if a := args.Get(0); a != nil {
		res = a.([]domain.TxSummary)
	}
	return res, args.Error(1)
}

func (m *mockBlockchain) GetUnspents(
	ctx context.Context, addresses []string,
) ([]domain.Utxo, error) {
	args := m.Called(ctx, addresses)

	var res []domain.Utxo
	if a := args.Get(0); a != nil {
		res = a.([]domain.Utxo)
	}
	return res, args.Error(1)
}

func (m *mockBlockchain) GetOutspend(
	ctx context.Context, outpoint domain.Outpoint,
) (domain.Outspend, error) {
	args := m.Called(ctx, outpoint)

	var res domain.Outspend
	if a := args.Get(0); a != nil {
		res = a.(domain.Outspend)
	}
	return res, args.Error(1)
}

func (m *mockBlockchain) BroadcastTransaction(
	ctx context.Context, txHex string,
) (string, error) {
	args := m.Called(ctx, txHex)
	return args.String(0), args.Error(1)
}

func (m *mockBlockchain) Close() {
	m.Called()
}

// **** Wallet ****

type mockWallet struct {
	mock.Mock
}

func (m *mockWallet) Login(
	ctx context.Context, creds domain.Credentials,
) (domain.MasterKeys, error) {
	args := m.Called(ctx, creds)

	var res domain.MasterKeys
	if a := args.Get(0); a != nil {
		res = a.(domain.MasterKeys)
	}
	return res, args.Error(1)
}

func (m *mockWallet) DeriveAccount(
	ctx context.Context, keys domain.MasterKeys, meta domain.AccountMetadata,
) (*domain.Account, error) {
	args := m.Called(ctx, keys, meta)

	var res *domain.Account
	switch a := args.Get(0).(type) {
	case func(
		context.Context, domain.MasterKeys, domain.AccountMetadata,
	) *domain.Account:
		res = a(ctx, keys, meta)
	case *domain.Account:
		res = a
	}
	return res, args.Error(1)
}

func (m *mockWallet) DeriveAddress(
	ctx context.Context, account domain.Account, chain, index uint32,
) (string, error) {
	args := m.Called(ctx, account.Index, chain, index)
	return args.String(0), args.Error(1)
}

func (m *mockWallet) CreateTransaction(
	ctx context.Context, account domain.Account,
	req domain.CreateTransaction, utxos []domain.Utxo, feeRate uint64,
) (*domain.Transaction, error) {
	args := m.Called(ctx, account.Index, req, utxos, feeRate)

	var res *domain.Transaction
	if a := args.Get(0); a != nil {
		res = a.(*domain.Transaction)
	}
	return res, args.Error(1)
}

func (m *mockWallet) SignTransaction(
	ctx context.Context, keys domain.MasterKeys, tx domain.Transaction,
) (*domain.Transaction, error) {
	args := m.Called(ctx, keys, tx)

	var res *domain.Transaction
	if a := args.Get(0); a != nil {
		res = a.(*domain.Transaction)
	}
	return res, args.Error(1)
}

func (m *mockWallet) DecodeTransaction(
	txHex string,
) (string, []domain.Outpoint, error) {
	args := m.Called(txHex)

	var res []domain.Outpoint
	if a := args.Get(1); a != nil {
		res = a.([]domain.Outpoint)
	}
	return args.String(0), res, args.Error(2)
}

func (m *mockWallet) TransactionDetails(
	txHex string,
) (*domain.TransactionDetails, error) {
	args := m.Called(txHex)

	var res *domain.TransactionDetails
	if a := args.Get(0); a != nil {
		res = a.(*domain.TransactionDetails)
	}
	return res, args.Error(1)
}

// **** Store ****

// memStore is a trivial ports.Store backed by maps.
type memStore struct {
	lock     sync.Mutex
	memos    map[string]string
	settings *domain.Settings
	accounts map[uint32]domain.AccountMetadata
	closed   bool
}

func newMemStore() *memStore {
	return &memStore{
		memos:    map[string]string{},
		accounts: map[uint32]domain.AccountMetadata{},
	}
}

func (s *memStore) GetMemo(_ context.Context, txid string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.memos[txid], nil
}

func (s *memStore) SetMemo(_ context.Context, txid, memo string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.memos[txid] = memo
	return nil
}

func (s *memStore) GetSettings(_ context.Context) (*domain.Settings, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.settings, nil
}

func (s *memStore) SetSettings(_ context.Context, st domain.Settings) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.settings = &st
	return nil
}

func (s *memStore) GetAccounts(
	_ context.Context,
) ([]domain.AccountMetadata, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	res := make([]domain.AccountMetadata, 0, len(s.accounts))
	for _, a := range s.accounts {
		res = append(res, a)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Index < res[j].Index })
	return res, nil
}

func (s *memStore) SaveAccount(
	_ context.Context, account domain.AccountMetadata,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.accounts[account.Index] = account
	return nil
}

func (s *memStore) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.closed = true
	return nil
}

// **** Notifier ****

type recordingNotifier struct {
	lock          sync.Mutex
	notifications []domain.Notification
}

func (n *recordingNotifier) Notify(notification domain.Notification) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.notifications = append(n.notifications, notification)
}

func (n *recordingNotifier) events() []string {
	n.lock.Lock()
	defer n.lock.Unlock()

	events := make([]string, 0, len(n.notifications))
	for _, nt := range n.notifications {
		events = append(events, nt.Event)
	}
	return events
}

var (
	_ ports.Blockchain = (*mockBlockchain)(nil)
	_ ports.Wallet     = (*mockWallet)(nil)
	_ ports.Store      = (*memStore)(nil)
	_ ports.Notifier   = (*recordingNotifier)(nil)
)
