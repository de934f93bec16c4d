package session

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
	"github.com/tdex-network/gdk-electrum/internal/core/ports"
)

const (
	socks5Scheme = "socks5://"

	defaultSyncInterval = 5 * time.Second
	defaultRateLimit    = 10
)

// Opts defines the parameters needed for creating a Session with NewSession.
type Opts struct {
	Network           domain.NetworkParameters
	Wallet            ports.Wallet
	Notifier          ports.Notifier
	BlockchainFactory ports.BlockchainFactory
	StoreFactory      ports.StoreFactory
	Timeout           time.Duration
	SyncInterval      time.Duration
	// RateLimit is the max number of network calls per second made by the
	// background workers.
	RateLimit int
}

func (o Opts) validate() error {
	if o.Wallet == nil {
		return fmt.Errorf("missing wallet")
	}
	if o.Notifier == nil {
		return fmt.Errorf("missing notifier")
	}
	if o.BlockchainFactory == nil {
		return fmt.Errorf("missing blockchain factory")
	}
	if o.StoreFactory == nil {
		return fmt.Errorf("missing store factory")
	}
	if o.SyncInterval < 0 {
		return fmt.Errorf("sync interval must not be negative")
	}
	if o.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}

// Session is the aggregate root of a login/connection lifecycle. It owns the
// network configuration and the resolved endpoint, the shared State and the
// handles to the collaborators.
type Session struct {
	network      domain.NetworkParameters
	target       domain.EndpointTarget
	proxy        string
	syncInterval time.Duration
	rateLimit    int

	state         *State
	wallet        ports.Wallet
	notifier      ports.Notifier
	newBlockchain ports.BlockchainFactory
	openStore     ports.StoreFactory

	lock         *sync.RWMutex
	timeout      *time.Duration
	blockchain   ports.Blockchain
	store        ports.Store
	masterKeys   *domain.MasterKeys
	walletHashID string
}

// NewSession resolves the endpoint to connect to and returns a disconnected
// session.
func NewSession(opts Opts) (*Session, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	target, err := domain.ResolveEndpoint(opts.Network)
	if err != nil {
		return nil, err
	}

	syncInterval := opts.SyncInterval
	if syncInterval == 0 {
		syncInterval = defaultSyncInterval
	}
	rateLimit := opts.RateLimit
	if rateLimit == 0 {
		rateLimit = defaultRateLimit
	}
	var timeout *time.Duration
	if opts.Timeout > 0 {
		t := opts.Timeout
		timeout = &t
	}

	return &Session{
		network:       opts.Network,
		target:        target,
		proxy:         socksify(opts.Network.Proxy),
		syncInterval:  syncInterval,
		rateLimit:     rateLimit,
		state:         NewState(),
		wallet:        opts.Wallet,
		notifier:      opts.Notifier,
		newBlockchain: opts.BlockchainFactory,
		openStore:     opts.StoreFactory,
		lock:          &sync.RWMutex{},
		timeout:       timeout,
	}, nil
}

func (s *Session) NetworkParameters() domain.NetworkParameters {
	return s.network
}

func (s *Session) Endpoint() domain.EndpointTarget {
	return s.target
}

func (s *Session) State() *State {
	return s.state
}

// Poll returns the connectivity status of the session.
func (s *Session) Poll() PollStatus {
	return PollStatus{
		UserWantsToSync:          s.state.UserWantsToSync(),
		LastNetworkCallSucceeded: s.state.LastNetworkCallSucceeded(),
		WorkersRunning:           s.state.WorkersRunning(),
	}
}

// Connect opens the connection to the resolved endpoint and records the user
// intent to keep the session synced. Connecting an already connected session
// only renews the intent.
func (s *Session) Connect(ctx context.Context, opts ConnectOpts) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.blockchain == nil {
		if opts.Timeout != nil {
			t := time.Duration(*opts.Timeout) * time.Second
			s.timeout = &t
		}
		proxy := s.proxy
		if opts.Proxy != nil {
			proxy = socksify(opts.Proxy)
		}

		var timeout time.Duration
		if s.timeout != nil {
			timeout = *s.timeout
		}
		bc, err := s.newBlockchain(ports.BlockchainOpts{
			Target:  s.target,
			Proxy:   proxy,
			Timeout: timeout,
			OnCallResult: func(err error) {
				s.state.SetLastNetworkCallSucceeded(err == nil)
			},
		})
		if err != nil {
			return domain.ErrNetwork.Wrap(err)
		}
		s.blockchain = bc
		log.Debugf("session connected to %s", s.target)
	}

	s.state.SetUserWantsToSync(true)
	s.notify(domain.NotificationNetwork, map[string]interface{}{
		"connected": true,
	})
	return nil
}

// Disconnect stops the background workers, waits for them to terminate and
// closes the connection.
func (s *Session) Disconnect(ctx context.Context) error {
	s.state.SetUserWantsToSync(false)
	if err := s.state.StopAndJoin(); err != nil {
		log.WithError(err).Warn("background worker terminated with error")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.blockchain != nil {
		s.blockchain.Close()
		s.blockchain = nil
		log.Debug("session disconnected")
	}

	s.notify(domain.NotificationNetwork, map[string]interface{}{
		"connected": false,
	})
	return nil
}

// Login unlocks the wallet with the given credentials and loads its
// subaccounts into the registry.
func (s *Session) Login(
	ctx context.Context, creds domain.Credentials,
) (*LoginResult, error) {
	keys, err := s.wallet.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	walletHashID := hex.EncodeToString(btcutil.Hash160([]byte(keys.Xpub)))

	// The store of a wallet can be open only once, so logging in again to the
	// same wallet, ie. from watch-only to full, reuses the current one.
	store, reused := s.currentStore(walletHashID)
	if !reused {
		if store, err = s.openStore(walletHashID); err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
	}
	closeStore := func() {
		if !reused {
			store.Close()
		}
	}

	metadata, err := store.GetAccounts(ctx)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to load subaccounts: %w", err)
	}
	metadata = withMainAccount(metadata)

	accounts := make([]domain.Account, 0, len(metadata))
	for _, m := range metadata {
		account, err := s.wallet.DeriveAccount(ctx, keys, m)
		if err != nil {
			closeStore()
			return nil, fmt.Errorf(
				"failed to derive subaccount %d: %w", m.Index, err,
			)
		}
		accounts = append(accounts, *account)
	}

	s.lock.Lock()
	if s.store != nil && s.store != store {
		s.store.Close()
	}
	s.store = store
	s.masterKeys = &keys
	s.walletHashID = walletHashID
	s.lock.Unlock()

	s.state.ResetAccounts(accounts)

	log.Infof(
		"wallet %s logged in with %d subaccounts (watch-only: %t)",
		walletHashID, len(accounts), keys.IsWatchOnly(),
	)

	return &LoginResult{
		WalletHashID: walletHashID,
		WatchOnly:    keys.IsWatchOnly(),
	}, nil
}

// RemoveAccount forgets the logged in wallet: workers are stopped, the store
// closed and the registry emptied.
func (s *Session) RemoveAccount(ctx context.Context) error {
	if err := s.state.StopAndJoin(); err != nil {
		log.WithError(err).Warn("background worker terminated with error")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.WithError(err).Warn("failed to close store")
		}
		s.store = nil
	}
	s.masterKeys = nil
	s.walletHashID = ""
	s.state.ResetAccounts(nil)
	return nil
}

// StartThreads spawns the background workers keeping the session synced.
func (s *Session) StartThreads() error {
	bc, err := s.getBlockchain()
	if err != nil {
		return err
	}
	syncer := newSyncer(s.state, bc, s.notifier, s.syncInterval, s.rateLimit)
	return s.state.StartWorkers(
		context.Background(), syncer.watchTip, syncer.reconcileSpent,
	)
}

// Close tears down the session.
func (s *Session) Close() {
	s.Disconnect(context.Background())

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.WithError(err).Warn("failed to close store")
		}
		s.store = nil
	}
}

// currentStore returns the open store if it belongs to the given wallet.
func (s *Session) currentStore(walletHashID string) (ports.Store, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.store == nil || s.walletHashID != walletHashID {
		return nil, false
	}
	return s.store, true
}

func (s *Session) getBlockchain() (ports.Blockchain, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.blockchain == nil {
		return nil, domain.ErrNotConnected
	}
	return s.blockchain, nil
}

func (s *Session) getMasterKeys() (domain.MasterKeys, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.masterKeys == nil {
		return domain.MasterKeys{}, domain.ErrNotLoggedIn
	}
	return *s.masterKeys, nil
}

func (s *Session) getStore() (ports.Store, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.masterKeys == nil {
		return nil, domain.ErrNotLoggedIn
	}
	return s.store, nil
}

func (s *Session) notify(event string, payload interface{}) {
	s.notifier.Notify(domain.Notification{Event: event, Payload: payload})
}

// socksify normalizes a proxy address to a socks5 url. An empty proxy means
// no proxy at all.
func socksify(proxy *string) string {
	if proxy == nil {
		return ""
	}
	p := strings.TrimSpace(*proxy)
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, socks5Scheme) {
		return p
	}
	return socks5Scheme + p
}

func withMainAccount(
	metadata []domain.AccountMetadata,
) []domain.AccountMetadata {
	for _, m := range metadata {
		if m.Index == domain.MainAccount {
			return metadata
		}
	}
	main := domain.AccountMetadata{
		Index: domain.MainAccount,
		Name:  "Main account",
		Type:  domain.AccountTypeP2WPKH,
	}
	return append([]domain.AccountMetadata{main}, metadata...)
}
