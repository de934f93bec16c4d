package domain

import "sort"

// FeeEstimate is a fee rate expressed in satoshi per 1000 virtual bytes.
type FeeEstimate uint64

// TxSummary is a transaction of an account as returned by get_transactions.
type TxSummary struct {
	Txid      string `json:"txhash"`
	Height    uint32 `json:"block_height"`
	Confirmed bool   `json:"confirmed"`
	Fee       uint64 `json:"fee"`
	Memo      string `json:"memo"`
}

// TxOutput is an output of a decoded transaction. Asset and Satoshi are
// defined only for unconfidential outputs, an empty script marks the fee
// output.
type TxOutput struct {
	Script       string `json:"script"`
	Asset        string `json:"asset_id,omitempty"`
	Satoshi      uint64 `json:"satoshi"`
	Confidential bool   `json:"is_confidential"`
}

// TransactionDetails is the decoded form of a serialized transaction.
type TransactionDetails struct {
	Txid        string     `json:"txhash"`
	Hex         string     `json:"transaction"`
	Version     int32      `json:"transaction_version"`
	Locktime    uint32     `json:"transaction_locktime"`
	Size        int        `json:"transaction_size"`
	VirtualSize int        `json:"transaction_vsize"`
	Weight      int        `json:"transaction_weight"`
	Inputs      []Outpoint `json:"inputs"`
	Outputs     []TxOutput `json:"outputs"`
}

// SortNewestFirst orders txs by block height, newest first. Unconfirmed
// transactions come before any confirmed one.
func SortNewestFirst(txs []TxSummary) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Confirmed != txs[j].Confirmed {
			return !txs[i].Confirmed
		}
		return txs[i].Height > txs[j].Height
	})
}

// Addressee is a recipient of a transaction being created.
type Addressee struct {
	Address string `json:"address"`
	Satoshi uint64 `json:"satoshi"`
	AssetID string `json:"asset_id,omitempty"`
}

// CreateTransaction is the request for building a new transaction.
type CreateTransaction struct {
	Subaccount   uint32      `json:"subaccount"`
	Addressees   []Addressee `json:"addressees"`
	FeeRate      *uint64     `json:"fee_rate,omitempty"`
	UtxoStrategy string      `json:"utxo_strategy,omitempty"`
	Memo         string      `json:"memo,omitempty"`
}

// Transaction is a transaction constructed, and optionally signed, by the
// wallet. Hex is set once the transaction is serialized.
type Transaction struct {
	Subaccount    uint32            `json:"subaccount"`
	Addressees    []Addressee       `json:"addressees"`
	UsedUtxos     []Utxo            `json:"used_utxos"`
	Change        map[string]uint64 `json:"change_amount,omitempty"`
	ChangeAddress string            `json:"change_address,omitempty"`
	FeeRate       uint64            `json:"fee_rate"`
	Fee           uint64            `json:"fee"`
	Memo          string            `json:"memo,omitempty"`
	Hex           string            `json:"transaction,omitempty"`
	Signed        bool              `json:"is_signed"`
}

// Inputs returns the outpoints spent by the transaction.
func (t Transaction) Inputs() []Outpoint {
	ins := make([]Outpoint, 0, len(t.UsedUtxos))
	for _, u := range t.UsedUtxos {
		ins = append(ins, u.Outpoint)
	}
	return ins
}

// AddressRecord is a freshly derived address of an account.
type AddressRecord struct {
	Address     string `json:"address"`
	Pointer     uint32 `json:"pointer"`
	Subaccount  uint32 `json:"subaccount"`
	AddressType string `json:"address_type"`
	IsInternal  bool   `json:"is_internal"`
}

const (
	NotificationNetwork     = "network"
	NotificationBlock       = "block"
	NotificationTransaction = "transaction"
	NotificationSubaccount  = "subaccount"
)

// Notification is an event pushed to the user interface.
type Notification struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}
