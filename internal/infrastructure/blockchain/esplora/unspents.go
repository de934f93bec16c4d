package esplora

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentRequests caps the number of addresses queried in parallel.
const maxConcurrentRequests = 4

// GetUnspents returns the unspents of the given addresses, in the same order.
// Confidential outputs are skipped since they can't be unblinded here.
func (e *esplora) GetUnspents(
	ctx context.Context, addresses []string,
) ([]domain.Utxo, error) {
	results := make([][]domain.Utxo, len(addresses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRequests)
	for i, addr := range addresses {
		i, addr := i, addr
		g.Go(func() error {
			utxos, err := e.getUnspents(gctx, addr)
			if err != nil {
				return err
			}
			results[i] = utxos
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	unspents := make([]domain.Utxo, 0)
	for _, utxos := range results {
		unspents = append(unspents, utxos...)
	}
	return unspents, nil
}

func (e *esplora) getUnspents(
	ctx context.Context, addr string,
) ([]domain.Utxo, error) {
	resp, err := e.get(ctx, fmt.Sprintf("/address/%s/utxo", addr))
	if err != nil {
		return nil, fmt.Errorf("error on retrieving utxos: %w", err)
	}

	var witnessOuts []witnessUtxo
	if err := json.Unmarshal([]byte(resp), &witnessOuts); err != nil {
		return nil, fmt.Errorf("error on retrieving utxos: %w", err)
	}

	unspents := make([]domain.Utxo, 0, len(witnessOuts))
	for _, out := range witnessOuts {
		if out.IsConfidential() {
			log.Debugf(
				"skipping confidential utxo %s:%d of %s", out.Txid, out.Vout, addr,
			)
			continue
		}
		unspents = append(unspents, out.toDomain(addr))
	}
	return unspents, nil
}
