package session

import "github.com/tdex-network/gdk-electrum/internal/core/domain"

type PollStatus struct {
	UserWantsToSync          bool `json:"user_wants_to_sync"`
	LastNetworkCallSucceeded bool `json:"last_network_call_succeeded"`
	WorkersRunning           bool `json:"workers_running"`
}

// ConnectOpts overrides, for a single connection, the timeout (in seconds) and
// the proxy the session was created with.
type ConnectOpts struct {
	Timeout *uint32
	Proxy   *string
}

type LoginResult struct {
	WalletHashID string `json:"wallet_hash_id"`
	WatchOnly    bool   `json:"watch_only"`
}

type CreateAccountArgs struct {
	Name string
	Type string
	// Index, if defined, is the index requested for the new subaccount,
	// otherwise the next free one is used.
	Index *uint32
}

type TransactionsPage struct {
	Subaccount uint32
	First      uint32
	// Count limits the number of returned transactions, zero means no limit.
	Count uint32
}

// UnspentOutputs groups utxos by asset.
type UnspentOutputs map[string][]domain.Utxo

type SendResult struct {
	Txid string `json:"txid"`
}
