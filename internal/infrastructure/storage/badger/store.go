package dbbadger

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
	"github.com/tdex-network/gdk-electrum/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

const settingsKey = "settings"

// memo is the record type of transaction memos, keyed by txid.
type memo struct {
	Text string
}

// account is the record type of subaccount metadata, keyed by index.
type account struct {
	Index       uint32
	Name        string
	Type        string
	Hidden      bool
	NextReceive uint32
	NextChange  uint32
}

type store struct {
	db *badgerhold.Store
}

// NewStoreFactory returns a ports.StoreFactory opening, or creating if not
// existing, the database of a wallet in a dedicated directory under baseDir.
func NewStoreFactory(baseDir string, logger badger.Logger) ports.StoreFactory {
	return func(walletHashID string) (ports.Store, error) {
		if walletHashID == "" {
			return nil, fmt.Errorf("missing wallet hash id")
		}
		db, err := createDb(filepath.Join(baseDir, walletHashID), logger)
		if err != nil {
			return nil, fmt.Errorf("opening wallet db: %w", err)
		}
		return &store{db}, nil
	}
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger
	opts.Compression = options.ZSTD

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}

func (s *store) GetMemo(_ context.Context, txid string) (string, error) {
	var m memo
	if err := s.db.Get(txid, &m); err != nil {
		if err == badgerhold.ErrNotFound {
			return "", nil
		}
		return "", err
	}
	return m.Text, nil
}

func (s *store) SetMemo(_ context.Context, txid, text string) error {
	if text == "" {
		if err := s.db.Delete(txid, memo{}); err != nil &&
			err != badgerhold.ErrNotFound {
			return err
		}
		return nil
	}
	return s.db.Upsert(txid, memo{text})
}

func (s *store) GetSettings(_ context.Context) (*domain.Settings, error) {
	var settings domain.Settings
	if err := s.db.Get(settingsKey, &settings); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (s *store) SetSettings(_ context.Context, settings domain.Settings) error {
	return s.db.Upsert(settingsKey, settings)
}

func (s *store) GetAccounts(_ context.Context) ([]domain.AccountMetadata, error) {
	var records []account
	if err := s.db.Find(&records, nil); err != nil {
		return nil, err
	}

	accounts := make([]domain.AccountMetadata, 0, len(records))
	for _, r := range records {
		accounts = append(accounts, domain.AccountMetadata(r))
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Index < accounts[j].Index
	})
	return accounts, nil
}

func (s *store) SaveAccount(_ context.Context, a domain.AccountMetadata) error {
	return s.db.Upsert(a.Index, account(a))
}

func (s *store) Close() error {
	return s.db.Close()
}
