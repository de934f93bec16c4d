package hdwallet

import (
	"sort"

	"github.com/tdex-network/gdk-electrum/internal/core/domain"
)

// selectUnspents picks the utxos of targetAsset to cover targetAmount,
// largest first, so that as few coins as possible are spent. It returns the
// selected coins and the change, or domain.ErrInsufficientFunds.
func selectUnspents(
	utxos []domain.Utxo, targetAmount uint64, targetAsset string,
) ([]domain.Utxo, uint64, error) {
	if targetAmount == 0 {
		return nil, 0, nil
	}

	candidates := make([]domain.Utxo, 0, len(utxos))
	for _, u := range utxos {
		if u.Asset == targetAsset {
			candidates = append(candidates, u)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Value > candidates[j].Value
	})

	var total uint64
	for i, u := range candidates {
		total += u.Value
		if total >= targetAmount {
			return candidates[:i+1], total - targetAmount, nil
		}
	}
	return nil, 0, domain.ErrInsufficientFunds
}
