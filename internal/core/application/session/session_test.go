package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/gdk-electrum/internal/core/application/session"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
	"github.com/tdex-network/gdk-electrum/internal/core/ports"
	dbbadger "github.com/tdex-network/gdk-electrum/internal/infrastructure/storage/badger"
)

var (
	ctx = context.Background()

	testXpub = "xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8NqtwybGhePY2gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMcet8"
	testXprv = "xprv9s21ZrQH143K3QTDL4LXw2F7HEK3wJUD2nW2nRk4stbPy6cq3jPPqjiChkVvvNKmPGJxWUtg6LnF5kejMRNNU3TGtRBeJgk33yuGBxrMPHi"
)

type testSession struct {
	*session.Session
	blockchain *mockBlockchain
	wallet     *mockWallet
	store      *memStore
	notifier   *recordingNotifier
	// connectOpts records the options the blockchain has been built with.
	connectOpts *ports.BlockchainOpts
}

func newTestSession(t *testing.T) *testSession {
	t.Helper()

	url := "blockstream.info:995"
	tls := true
	ts := &testSession{
		blockchain: &mockBlockchain{},
		wallet:     &mockWallet{},
		store:      newMemStore(),
		notifier:   &recordingNotifier{},
	}
	s, err := session.NewSession(session.Opts{
		Network: domain.NetworkParameters{
			Name:        "liquid",
			ElectrumURL: &url,
			ElectrumTLS: &tls,
		},
		Wallet:   ts.wallet,
		Notifier: ts.notifier,
		BlockchainFactory: func(
			opts ports.BlockchainOpts,
		) (ports.Blockchain, error) {
			ts.connectOpts = &opts
			return ts.blockchain, nil
		},
		StoreFactory: func(string) (ports.Store, error) {
			return ts.store, nil
		},
		SyncInterval: 10 * time.Millisecond,
		RateLimit:    1000,
	})
	require.NoError(t, err)
	ts.Session = s
	return ts
}

func (ts *testSession) login(t *testing.T, keys domain.MasterKeys) {
	t.Helper()

	ts.wallet.On("Login", mock.Anything, mock.Anything).Return(keys, nil).Once()
	ts.wallet.On("DeriveAccount", mock.Anything, keys, mock.Anything).Return(
		func(_ context.Context, _ domain.MasterKeys, m domain.AccountMetadata) *domain.Account {
			return &domain.Account{
				Index:     m.Index,
				Name:      m.Name,
				Type:      m.Type,
				Hidden:    m.Hidden,
				Xpub:      testXpub,
				Path:      []uint32{0x80000054, 0x800006f0, m.Index},
				Addresses: []string{"addr0", "addr1"},
			}
		},
		nil,
	)

	_, err := ts.Login(ctx, domain.Credentials{Xpub: keys.Xpub})
	require.NoError(t, err)
}

func fullKeys() domain.MasterKeys {
	xprv := testXprv
	return domain.MasterKeys{Xpub: testXpub, Xprv: &xprv}
}

func TestNewSession(t *testing.T) {
	t.Run("resolves the endpoint and the proxy", func(t *testing.T) {
		url := "electrum.example.com:50002"
		onion := "abc.onion:50001"
		useTor := true
		proxy := "127.0.0.1:9050"

		var got ports.BlockchainOpts
		s, err := session.NewSession(session.Opts{
			Network: domain.NetworkParameters{
				ElectrumURL:      &url,
				ElectrumOnionURL: &onion,
				UseTor:           &useTor,
				Proxy:            &proxy,
			},
			Wallet:   &mockWallet{},
			Notifier: &recordingNotifier{},
			BlockchainFactory: func(o ports.BlockchainOpts) (ports.Blockchain, error) {
				got = o
				return &mockBlockchain{}, nil
			},
			StoreFactory: func(string) (ports.Store, error) { return newMemStore(), nil },
			Timeout:      3 * time.Second,
		})
		require.NoError(t, err)
		require.Equal(t, domain.PlaintextEndpoint(onion), s.Endpoint())

		require.NoError(t, s.Connect(ctx, session.ConnectOpts{}))
		require.Equal(t, "socks5://127.0.0.1:9050", got.Proxy)
		require.Equal(t, 3*time.Second, got.Timeout)
	})

	t.Run("fails with a config error", func(t *testing.T) {
		_, err := session.NewSession(session.Opts{
			Wallet:            &mockWallet{},
			Notifier:          &recordingNotifier{},
			BlockchainFactory: func(ports.BlockchainOpts) (ports.Blockchain, error) { return nil, nil },
			StoreFactory:      func(string) (ports.Store, error) { return nil, nil },
		})
		require.Error(t, err)
		require.Equal(t, domain.CodeConfig, domain.CodeOf(err))
	})

	t.Run("fails without collaborators", func(t *testing.T) {
		url := "localhost:50001"
		_, err := session.NewSession(session.Opts{
			Network: domain.NetworkParameters{ElectrumURL: &url},
		})
		require.Error(t, err)
	})
}

func TestConnectDisconnect(t *testing.T) {
	ts := newTestSession(t)

	status := ts.Poll()
	require.False(t, status.UserWantsToSync)

	timeout := uint32(7)
	proxy := "localhost:9050"
	require.NoError(t, ts.Connect(ctx, session.ConnectOpts{
		Timeout: &timeout, Proxy: &proxy,
	}))
	require.True(t, ts.Poll().UserWantsToSync)
	require.Equal(t, 7*time.Second, ts.connectOpts.Timeout)
	require.Equal(t, "socks5://localhost:9050", ts.connectOpts.Proxy)
	require.Equal(t, domain.TLSEndpoint("blockstream.info:995", false), ts.connectOpts.Target)

	ts.connectOpts.OnCallResult(nil)
	require.True(t, ts.Poll().LastNetworkCallSucceeded)
	ts.connectOpts.OnCallResult(errors.New("unreachable"))
	require.False(t, ts.Poll().LastNetworkCallSucceeded)

	ts.blockchain.On("Close").Return().Once()
	require.NoError(t, ts.Disconnect(ctx))
	require.False(t, ts.Poll().UserWantsToSync)
	ts.blockchain.AssertExpectations(t)

	_, err := ts.GetBlockHeight(ctx)
	require.ErrorIs(t, err, domain.ErrNotConnected)

	require.Equal(t, []string{
		domain.NotificationNetwork, domain.NotificationNetwork,
	}, ts.notifier.events())
}

func TestLogin(t *testing.T) {
	ts := newTestSession(t)

	_, err := ts.GetSubaccounts(ctx)
	require.ErrorIs(t, err, domain.ErrNotLoggedIn)

	ts.store.SaveAccount(ctx, domain.AccountMetadata{
		Index: 2, Name: "savings", Type: domain.AccountTypeP2WPKH,
	})
	ts.login(t, domain.MasterKeys{Xpub: testXpub})

	nums, err := ts.GetSubaccountNums(ctx)
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 2}, nums)

	summary, err := ts.GetSubaccount(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "savings", summary.Name)

	_, err = ts.GetSubaccount(ctx, 1)
	require.ErrorIs(t, err, domain.ErrSubaccountNotFound)

	hashID, err := ts.WalletHashID(ctx)
	require.NoError(t, err)
	require.Len(t, hashID, 40)

	addresses, err := ts.GetPreviousAddresses(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"addr0", "addr1"}, addresses)

	next, err := ts.GetNextSubaccount(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(3), next)

	require.NoError(t, ts.RemoveAccount(ctx))
	require.True(t, ts.store.closed)
	_, err = ts.GetSubaccounts(ctx)
	require.ErrorIs(t, err, domain.ErrNotLoggedIn)
}

func TestLoginTwice(t *testing.T) {
	url := "localhost:50001"
	wallet := &mockWallet{}
	s, err := session.NewSession(session.Opts{
		Network:  domain.NetworkParameters{ElectrumURL: &url},
		Wallet:   wallet,
		Notifier: &recordingNotifier{},
		BlockchainFactory: func(ports.BlockchainOpts) (ports.Blockchain, error) {
			return &mockBlockchain{}, nil
		},
		StoreFactory: dbbadger.NewStoreFactory(t.TempDir(), nil),
	})
	require.NoError(t, err)
	defer s.Close()

	wallet.On("Login", mock.Anything, mock.Anything).
		Return(domain.MasterKeys{Xpub: testXpub}, nil).Once()
	wallet.On("Login", mock.Anything, mock.Anything).
		Return(fullKeys(), nil).Once()
	wallet.On("DeriveAccount", mock.Anything, mock.Anything, mock.Anything).Return(
		func(_ context.Context, _ domain.MasterKeys, m domain.AccountMetadata) *domain.Account {
			return &domain.Account{
				Index: m.Index, Name: m.Name, Type: m.Type, Xpub: testXpub,
			}
		},
		nil,
	)

	watchOnly, err := s.Login(ctx, domain.Credentials{Xpub: testXpub})
	require.NoError(t, err)
	require.True(t, watchOnly.WatchOnly)

	summary, err := s.CreateSubaccount(ctx, session.CreateAccountArgs{Name: "savings"})
	require.NoError(t, err)

	full, err := s.Login(ctx, domain.Credentials{Mnemonic: "mnemonic"})
	require.NoError(t, err)
	require.False(t, full.WatchOnly)
	require.Equal(t, watchOnly.WalletHashID, full.WalletHashID)

	got, err := s.GetSubaccount(ctx, summary.Pointer)
	require.NoError(t, err)
	require.Equal(t, "savings", got.Name)

	require.NoError(t, s.SetTransactionMemo(ctx, "txid", "lunch"))
}

func TestLoginFailure(t *testing.T) {
	ts := newTestSession(t)
	ts.wallet.On("Login", mock.Anything, mock.Anything).
		Return(nil, domain.ErrInvalidCredentials)

	_, err := ts.Login(ctx, domain.Credentials{Mnemonic: "wrong"})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestSubaccounts(t *testing.T) {
	ts := newTestSession(t)
	ts.login(t, domain.MasterKeys{Xpub: testXpub})

	summary, err := ts.CreateSubaccount(ctx, session.CreateAccountArgs{
		Name: "spending",
	})
	require.NoError(t, err)
	require.Equal(t, uint32(1), summary.Pointer)
	require.Equal(t, domain.AccountTypeP2WPKH, summary.Type)
	require.Equal(t, "spending", ts.store.accounts[1].Name)

	index := uint32(1)
	_, err = ts.CreateSubaccount(ctx, session.CreateAccountArgs{
		Name: "dup", Index: &index,
	})
	require.ErrorIs(t, err, domain.ErrSubaccountExists)

	_, err = ts.CreateSubaccount(ctx, session.CreateAccountArgs{Name: " "})
	require.Error(t, err)

	require.NoError(t, ts.RenameSubaccount(ctx, 1, "daily"))
	require.NoError(t, ts.SetSubaccountHidden(ctx, 1, true))
	require.Equal(t, "daily", ts.store.accounts[1].Name)
	require.True(t, ts.store.accounts[1].Hidden)

	err = ts.RenameSubaccount(ctx, 9, "nope")
	require.ErrorIs(t, err, domain.ErrSubaccountNotFound)

	subaccounts, err := ts.GetSubaccounts(ctx)
	require.NoError(t, err)
	require.Len(t, subaccounts, 2)
	require.Equal(t, "daily", subaccounts[1].Name)
	require.True(t, subaccounts[1].Hidden)

	name, hidden := "travel", false
	require.NoError(t, ts.UpdateSubaccount(ctx, 1, &name, nil))
	require.Equal(t, "travel", ts.store.accounts[1].Name)
	require.True(t, ts.store.accounts[1].Hidden)
	require.NoError(t, ts.UpdateSubaccount(ctx, 1, nil, &hidden))
	require.Equal(t, "travel", ts.store.accounts[1].Name)
	require.False(t, ts.store.accounts[1].Hidden)

	blank := " "
	require.Error(t, ts.UpdateSubaccount(ctx, 1, &blank, nil))
	require.ErrorIs(t, ts.UpdateSubaccount(ctx, 9, nil, &hidden), domain.ErrSubaccountNotFound)

	xpub, err := ts.GetSubaccountXpub(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, testXpub, xpub)
	_, err = ts.GetSubaccountXpub(ctx, 9)
	require.ErrorIs(t, err, domain.ErrSubaccountNotFound)

	path, err := ts.GetSubaccountRootPath(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []uint32{0x80000054, 0x800006f0, 1}, path)
	_, err = ts.GetSubaccountRootPath(ctx, 9)
	require.ErrorIs(t, err, domain.ErrSubaccountNotFound)

	require.Contains(t, ts.notifier.events(), domain.NotificationSubaccount)
}

func TestGetReceiveAddress(t *testing.T) {
	ts := newTestSession(t)
	ts.login(t, domain.MasterKeys{Xpub: testXpub})

	ts.wallet.On("DeriveAddress", mock.Anything, uint32(0), uint32(domain.ExternalChain), uint32(0)).
		Return("addr0", nil).Once()
	ts.wallet.On("DeriveAddress", mock.Anything, uint32(0), uint32(domain.ExternalChain), uint32(1)).
		Return("addr-new", nil).Once()

	first, err := ts.GetReceiveAddress(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "addr0", first.Address)
	require.Equal(t, uint32(0), first.Pointer)

	second, err := ts.GetReceiveAddress(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "addr-new", second.Address)
	require.Equal(t, uint32(1), second.Pointer)

	account, _ := ts.State().Account(0)
	require.Equal(t, uint32(2), account.NextReceive)
	require.True(t, account.HasAddress("addr-new"))
	require.Equal(t, uint32(2), ts.store.accounts[0].NextReceive)

	_, err = ts.GetReceiveAddress(ctx, 5)
	require.ErrorIs(t, err, domain.ErrSubaccountNotFound)
}

func TestBroadcastExcludesSpentOutputs(t *testing.T) {
	ts := newTestSession(t)
	ts.login(t, domain.MasterKeys{Xpub: testXpub})
	require.NoError(t, ts.Connect(ctx, session.ConnectOpts{}))

	spent := domain.Outpoint{Txid: "t1", Vout: 0}
	utxos := []domain.Utxo{
		{Outpoint: spent, Address: "addr0", Asset: "lbtc", Value: 1000, Confirmed: true},
		{Outpoint: domain.Outpoint{Txid: "t2"}, Address: "addr1", Asset: "lbtc", Value: 500},
		{Outpoint: domain.Outpoint{Txid: "t3"}, Address: "addr1", Asset: "usdt", Value: 70, Confirmed: true},
	}
	ts.blockchain.On("GetUnspents", mock.Anything, mock.Anything).Return(utxos, nil)

	balance, err := ts.GetBalance(ctx, 0, 0)
	require.NoError(t, err)
	require.Equal(t, domain.Balance{"lbtc": 1500, "usdt": 70}, balance)

	ts.wallet.On("DecodeTransaction", "deadbeef").
		Return("txid", []domain.Outpoint{spent}, nil)
	ts.blockchain.On("BroadcastTransaction", mock.Anything, "deadbeef").
		Return("txid", nil)

	txid, err := ts.BroadcastTransaction(ctx, "deadbeef")
	require.NoError(t, err)
	require.Equal(t, "txid", txid)
	require.True(t, ts.State().IsSpent(spent))

	balance, err = ts.GetBalance(ctx, 0, 0)
	require.NoError(t, err)
	require.Equal(t, domain.Balance{"lbtc": 500, "usdt": 70}, balance)

	balance, err = ts.GetBalance(ctx, 0, 1)
	require.NoError(t, err)
	require.Equal(t, domain.Balance{"usdt": 70}, balance)

	unspents, err := ts.GetUnspentOutputs(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, unspents["lbtc"], 1)
	require.Equal(t, "t2", unspents["lbtc"][0].Txid)

	unspents, err = ts.GetUnspentOutputs(ctx, 0, 1)
	require.NoError(t, err)
	require.Empty(t, unspents["lbtc"])
	require.Len(t, unspents["usdt"], 1)
}

func TestCreateTransaction(t *testing.T) {
	ts := newTestSession(t)
	ts.login(t, domain.MasterKeys{Xpub: testXpub})
	require.NoError(t, ts.Connect(ctx, session.ConnectOpts{}))

	utxos := []domain.Utxo{
		{Outpoint: domain.Outpoint{Txid: "t1"}, Address: "addr0", Asset: "lbtc", Value: 1000},
	}
	ts.blockchain.On("GetUnspents", mock.Anything, mock.Anything).Return(utxos, nil)
	ts.blockchain.On("GetFeeEstimates", mock.Anything).
		Return([]domain.FeeEstimate{1000, 2500, 1500}, nil)

	req := domain.CreateTransaction{
		Subaccount: 0,
		Addressees: []domain.Addressee{{Address: "dest", Satoshi: 100}},
		Memo:       "rent",
	}
	ts.wallet.On("CreateTransaction", mock.Anything, uint32(0), req, utxos, uint64(2500)).
		Return(&domain.Transaction{Subaccount: 0, UsedUtxos: utxos}, nil)

	tx, err := ts.CreateTransaction(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "rent", tx.Memo)

	tests := []struct {
		name string
		req  domain.CreateTransaction
		err  error
	}{
		{
			name: "no addressees",
			req:  domain.CreateTransaction{},
			err:  domain.ErrInvalidAddress,
		},
		{
			name: "no amount",
			req: domain.CreateTransaction{
				Addressees: []domain.Addressee{{Address: "dest"}},
			},
			err: domain.ErrNoAmountSpecified,
		},
		{
			name: "fee rate below minimum",
			req: domain.CreateTransaction{
				Addressees: []domain.Addressee{{Address: "dest", Satoshi: 1}},
				FeeRate:    func() *uint64 { v := uint64(1); return &v }(),
			},
			err: domain.ErrFeeRateTooLow,
		},
		{
			name: "unknown subaccount",
			req: domain.CreateTransaction{
				Subaccount: 4,
				Addressees: []domain.Addressee{{Address: "dest", Satoshi: 1}},
			},
			err: domain.ErrSubaccountNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.CreateTransaction(ctx, tt.req)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestSignTransaction(t *testing.T) {
	t.Run("watch-only", func(t *testing.T) {
		ts := newTestSession(t)
		ts.login(t, domain.MasterKeys{Xpub: testXpub})

		_, err := ts.SignTransaction(ctx, domain.Transaction{})
		require.ErrorIs(t, err, domain.ErrWatchOnly)
	})

	t.Run("full", func(t *testing.T) {
		ts := newTestSession(t)
		keys := fullKeys()
		ts.login(t, keys)

		ts.wallet.On("SignTransaction", mock.Anything, keys, mock.Anything).
			Return(&domain.Transaction{Signed: true, Hex: "ff"}, nil)
		tx, err := ts.SignTransaction(ctx, domain.Transaction{})
		require.NoError(t, err)
		require.True(t, tx.Signed)
	})
}

func TestSendTransaction(t *testing.T) {
	ts := newTestSession(t)
	ts.login(t, fullKeys())
	require.NoError(t, ts.Connect(ctx, session.ConnectOpts{}))

	_, err := ts.SendTransaction(ctx, domain.Transaction{Hex: "ff"})
	require.Error(t, err)

	ts.wallet.On("DecodeTransaction", "ff").
		Return("txid", []domain.Outpoint{{Txid: "t1"}}, nil)
	ts.blockchain.On("BroadcastTransaction", mock.Anything, "ff").
		Return("txid", nil)

	res, err := ts.SendTransaction(ctx, domain.Transaction{
		Hex:           "ff",
		Signed:        true,
		Memo:          "coffee",
		ChangeAddress: "change0",
	})
	require.NoError(t, err)
	require.Equal(t, "txid", res.Txid)
	require.Equal(t, "coffee", ts.store.memos["txid"])

	account, _ := ts.State().Account(0)
	require.Equal(t, uint32(1), account.NextChange)
	require.True(t, account.HasAddress("change0"))
}

func TestGetTransactions(t *testing.T) {
	ts := newTestSession(t)
	ts.login(t, domain.MasterKeys{Xpub: testXpub})
	require.NoError(t, ts.Connect(ctx, session.ConnectOpts{}))

	ts.blockchain.On("GetTransactions", mock.Anything, []string{"addr0", "addr1"}).
		Return([]domain.TxSummary{
			{Txid: "a", Height: 10, Confirmed: true},
			{Txid: "b", Height: 30, Confirmed: true},
			{Txid: "c"},
			{Txid: "d", Height: 20, Confirmed: true},
		}, nil)
	require.NoError(t, ts.SetTransactionMemo(ctx, "b", "lunch"))

	txs, err := ts.GetTransactions(ctx, session.TransactionsPage{Count: 10})
	require.NoError(t, err)
	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.Txid)
	}
	require.Equal(t, []string{"c", "b", "d", "a"}, ids)

	txs, err = ts.GetTransactions(ctx, session.TransactionsPage{First: 1, Count: 1})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, "b", txs[0].Txid)
	require.Equal(t, "lunch", txs[0].Memo)

	txs, err = ts.GetTransactions(ctx, session.TransactionsPage{First: 5})
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestGetTransactionDetails(t *testing.T) {
	ts := newTestSession(t)

	_, err := ts.GetTransactionDetails(ctx, "a")
	require.ErrorIs(t, err, domain.ErrNotConnected)

	require.NoError(t, ts.Connect(ctx, session.ConnectOpts{}))
	ts.blockchain.On("GetTransactionHex", mock.Anything, "a").Return("0200", nil)
	ts.blockchain.On("GetTransactionHex", mock.Anything, "b").Return("ff", nil)
	ts.wallet.On("TransactionDetails", "0200").
		Return(&domain.TransactionDetails{Txid: "a", Hex: "0200"}, nil)
	ts.wallet.On("TransactionDetails", "ff").Return(nil, errors.New("malformed"))

	details, err := ts.GetTransactionDetails(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "a", details.Txid)

	_, err = ts.GetTransactionDetails(ctx, "b")
	require.Error(t, err)
}

func TestNetworkFailures(t *testing.T) {
	ts := newTestSession(t)
	require.NoError(t, ts.Connect(ctx, session.ConnectOpts{}))

	ts.blockchain.On("GetBlockHeight", mock.Anything).
		Return(nil, errors.New("connection refused"))

	_, err := ts.GetBlockHeight(ctx)
	require.ErrorIs(t, err, domain.ErrNetwork)
	require.Equal(t, domain.CodeNetwork, domain.ToWire(err).Code)
}

func TestSettings(t *testing.T) {
	ts := newTestSession(t)
	ts.login(t, domain.MasterKeys{Xpub: testXpub})

	settings, err := ts.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultSettings(), *settings)

	settings.Unit = "sats"
	require.NoError(t, ts.ChangeSettings(ctx, *settings))

	got, err := ts.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, "sats", got.Unit)

	settings.Unit = "gold"
	require.Error(t, ts.ChangeSettings(ctx, *settings))
}

func TestConvertAmount(t *testing.T) {
	ts := newTestSession(t)

	sats := int64(150000000)
	amount, err := ts.ConvertAmount(&sats, nil)
	require.NoError(t, err)
	require.Equal(t, "1.50000000", amount.BTC)

	btc := "0.00000001"
	amount, err = ts.ConvertAmount(nil, &btc)
	require.NoError(t, err)
	require.Equal(t, int64(1), amount.Satoshi)

	_, err = ts.ConvertAmount(nil, nil)
	require.ErrorIs(t, err, domain.ErrNoAmountSpecified)
}

func TestStartThreads(t *testing.T) {
	ts := newTestSession(t)

	err := ts.StartThreads()
	require.ErrorIs(t, err, domain.ErrNotConnected)

	ts.login(t, domain.MasterKeys{Xpub: testXpub})
	require.NoError(t, ts.Connect(ctx, session.ConnectOpts{}))

	spent := domain.Outpoint{Txid: "t1", Vout: 2}
	ts.State().MarkSpent(spent)

	ts.blockchain.On("GetBlockHeight", mock.Anything).Return(uint32(100), nil)
	ts.blockchain.On("GetOutspend", mock.Anything, spent).Return(
		domain.Outspend{Spent: true, Confirmed: true, SpendingTxid: "t9"}, nil,
	)
	ts.blockchain.On("Close").Return()

	require.NoError(t, ts.StartThreads())
	require.True(t, ts.Poll().WorkersRunning)
	require.ErrorIs(t, ts.StartThreads(), domain.ErrWorkersRunning)

	require.Eventually(t, func() bool {
		return !ts.State().IsSpent(spent)
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, ts.Disconnect(ctx))
	require.False(t, ts.Poll().WorkersRunning)
	require.Contains(t, ts.notifier.events(), domain.NotificationBlock)
	require.Contains(t, ts.notifier.events(), domain.NotificationTransaction)
}
