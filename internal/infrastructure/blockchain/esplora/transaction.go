package esplora

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tdex-network/gdk-electrum/internal/core/domain"
)

func (e *esplora) GetTransactionHex(
	ctx context.Context, txid string,
) (string, error) {
	return e.get(ctx, fmt.Sprintf("/tx/%s/hex", txid))
}

// GetTransactions returns the transactions involving any of the given
// addresses, each listed once.
func (e *esplora) GetTransactions(
	ctx context.Context, addresses []string,
) ([]domain.TxSummary, error) {
	txs := make([]domain.TxSummary, 0)
	seen := make(map[string]bool)

	for _, addr := range addresses {
		resp, err := e.get(ctx, fmt.Sprintf("/address/%s/txs", addr))
		if err != nil {
			return nil, err
		}

		var list []esploraTx
		if err := json.Unmarshal([]byte(resp), &list); err != nil {
			return nil, fmt.Errorf("failed to parse transactions of %s: %w", addr, err)
		}
		for _, tx := range list {
			if seen[tx.Txid] {
				continue
			}
			seen[tx.Txid] = true
			txs = append(txs, tx.toDomain())
		}
	}

	return txs, nil
}

func (e *esplora) GetOutspend(
	ctx context.Context, outpoint domain.Outpoint,
) (domain.Outspend, error) {
	resp, err := e.get(
		ctx, fmt.Sprintf("/tx/%s/outspend/%d", outpoint.Txid, outpoint.Vout),
	)
	if err != nil {
		return domain.Outspend{}, err
	}

	var out outspend
	if err := json.Unmarshal([]byte(resp), &out); err != nil {
		return domain.Outspend{}, err
	}
	return out.toDomain(), nil
}

func (e *esplora) BroadcastTransaction(
	ctx context.Context, txHex string,
) (string, error) {
	headers := map[string]string{
		"Content-Type": "text/plain",
	}
	return e.newHTTPRequest(ctx, http.MethodPost, "/tx", txHex, headers)
}
