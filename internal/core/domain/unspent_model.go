package domain

import "fmt"

// Outpoint identifies an output of a transaction, composed by its txid and
// vout.
type Outpoint struct {
	Txid string `json:"txhash"`
	Vout uint32 `json:"pt_idx"`
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.Txid, o.Vout)
}

// Utxo is an unspent output owned by one of the addresses of an account.
type Utxo struct {
	Outpoint
	Address   string `json:"address"`
	Asset     string `json:"asset_id"`
	Value     uint64 `json:"satoshi"`
	Confirmed bool   `json:"confirmed"`
	Height    uint32 `json:"block_height"`
}

// Outspend reports whether, and how, an output has been spent.
type Outspend struct {
	Spent        bool
	Confirmed    bool
	SpendingTxid string
}

// Balance maps asset ids to satoshi amounts.
type Balance map[string]int64

// FilterUtxos returns the utxos that are not reported as spent by isSpent.
func FilterUtxos(utxos []Utxo, isSpent func(Outpoint) bool) []Utxo {
	filtered := make([]Utxo, 0, len(utxos))
	for _, u := range utxos {
		if isSpent(u.Outpoint) {
			continue
		}
		filtered = append(filtered, u)
	}
	return filtered
}

// BalanceOf sums up the values of the given utxos by asset, counting only
// those with at least numConfs confirmations.
func BalanceOf(utxos []Utxo, numConfs uint32) Balance {
	balance := Balance{}
	for _, u := range utxos {
		if numConfs > 0 && !u.Confirmed {
			continue
		}
		balance[u.Asset] += int64(u.Value)
	}
	return balance
}
