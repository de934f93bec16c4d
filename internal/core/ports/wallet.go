package ports

import (
	"context"

	"github.com/tdex-network/gdk-electrum/internal/core/domain"
)

// Wallet is the key management and transaction construction collaborator.
type Wallet interface {
	// Login validates the given credentials and returns the master keys of the
	// wallet. Xprv is set only for non watch-only credentials.
	Login(ctx context.Context, creds domain.Credentials) (domain.MasterKeys, error)
	// DeriveAccount returns the state of the subaccount described by meta.
	DeriveAccount(
		ctx context.Context, keys domain.MasterKeys, meta domain.AccountMetadata,
	) (*domain.Account, error)
	// DeriveAddress derives the address at chain/index of the given account.
	DeriveAddress(
		ctx context.Context, account domain.Account, chain, index uint32,
	) (string, error)
	// CreateTransaction builds a transaction for req spending from the given
	// utxos only.
	CreateTransaction(
		ctx context.Context, account domain.Account,
		req domain.CreateTransaction, utxos []domain.Utxo, feeRate uint64,
	) (*domain.Transaction, error)
	SignTransaction(
		ctx context.Context, keys domain.MasterKeys, tx domain.Transaction,
	) (*domain.Transaction, error)
	// DecodeTransaction returns the hash and the spent outpoints of the given
	// serialized transaction.
	DecodeTransaction(txHex string) (string, []domain.Outpoint, error)
	// TransactionDetails decodes the given serialized transaction.
	TransactionDetails(txHex string) (*domain.TransactionDetails, error)
}
