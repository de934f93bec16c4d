package ports

import (
	"context"

	"github.com/tdex-network/gdk-electrum/internal/core/domain"
)

// Store is the persistent storage of a logged in wallet.
type Store interface {
	GetMemo(ctx context.Context, txid string) (string, error)
	SetMemo(ctx context.Context, txid, memo string) error
	GetSettings(ctx context.Context) (*domain.Settings, error)
	SetSettings(ctx context.Context, settings domain.Settings) error
	GetAccounts(ctx context.Context) ([]domain.AccountMetadata, error)
	SaveAccount(ctx context.Context, account domain.AccountMetadata) error
	Close() error
}

// StoreFactory opens the store of the wallet identified by walletHashID.
type StoreFactory func(walletHashID string) (Store, error)
