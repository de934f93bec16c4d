package esplora

import "github.com/tdex-network/gdk-electrum/internal/core/domain"

type txStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight uint32 `json:"block_height"`
}

type esploraTx struct {
	Txid   string   `json:"txid"`
	Fee    uint64   `json:"fee"`
	Status txStatus `json:"status"`
}

func (t esploraTx) toDomain() domain.TxSummary {
	return domain.TxSummary{
		Txid:      t.Txid,
		Height:    t.Status.BlockHeight,
		Confirmed: t.Status.Confirmed,
		Fee:       t.Fee,
	}
}

// witnessUtxo is an unspent as listed by the address endpoint. Confidential
// outputs come with commitments in place of the asset and the value.
type witnessUtxo struct {
	Txid            string   `json:"txid"`
	Vout            uint32   `json:"vout"`
	Value           uint64   `json:"value"`
	Asset           string   `json:"asset"`
	ValueCommitment string   `json:"valuecommitment"`
	AssetCommitment string   `json:"assetcommitment"`
	Status          txStatus `json:"status"`
}

func (u witnessUtxo) IsConfidential() bool {
	return u.ValueCommitment != "" || u.AssetCommitment != ""
}

func (u witnessUtxo) toDomain(address string) domain.Utxo {
	return domain.Utxo{
		Outpoint:  domain.Outpoint{Txid: u.Txid, Vout: u.Vout},
		Address:   address,
		Asset:     u.Asset,
		Value:     u.Value,
		Confirmed: u.Status.Confirmed,
		Height:    u.Status.BlockHeight,
	}
}

type outspend struct {
	Spent  bool     `json:"spent"`
	Txid   string   `json:"txid"`
	Vin    uint32   `json:"vin"`
	Status txStatus `json:"status"`
}

func (o outspend) toDomain() domain.Outspend {
	return domain.Outspend{
		Spent:        o.Spent,
		Confirmed:    o.Spent && o.Status.Confirmed,
		SpendingTxid: o.Txid,
	}
}
