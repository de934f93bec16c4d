package ports

import (
	"context"
	"time"

	"github.com/tdex-network/gdk-electrum/internal/core/domain"
)

// Blockchain is the networking collaborator, an indexer the session queries
// blockchain state from and broadcasts transactions through.
type Blockchain interface {
	GetBlockHeight(ctx context.Context) (uint32, error)
	GetFeeEstimates(ctx context.Context) ([]domain.FeeEstimate, error)
	GetTransactionHex(ctx context.Context, txid string) (string, error)
	GetTransactions(
		ctx context.Context, addresses []string,
	) ([]domain.TxSummary, error)
	GetUnspents(ctx context.Context, addresses []string) ([]domain.Utxo, error)
	GetOutspend(
		ctx context.Context, outpoint domain.Outpoint,
	) (domain.Outspend, error)
	BroadcastTransaction(ctx context.Context, txHex string) (string, error)
	Close()
}

// BlockchainOpts defines the parameters needed for connecting a Blockchain.
type BlockchainOpts struct {
	Target  domain.EndpointTarget
	Proxy   string
	Timeout time.Duration
	// OnCallResult, if defined, is invoked with the outcome of every network
	// call.
	OnCallResult func(err error)
}

// BlockchainFactory connects a Blockchain to the given target.
type BlockchainFactory func(opts BlockchainOpts) (Blockchain, error)
