package session

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
	"github.com/tdex-network/gdk-electrum/internal/core/ports"
	"go.uber.org/ratelimit"
)

// syncer holds the background workers that keep a connected session up to
// date with the indexer.
type syncer struct {
	state      *State
	blockchain ports.Blockchain
	notifier   ports.Notifier
	interval   time.Duration
	limiter    ratelimit.Limiter
}

func newSyncer(
	state *State, bc ports.Blockchain, notifier ports.Notifier,
	interval time.Duration, rateLimit int,
) *syncer {
	return &syncer{
		state:      state,
		blockchain: bc,
		notifier:   notifier,
		interval:   interval,
		limiter:    ratelimit.New(rateLimit),
	}
}

// watchTip notifies every change of the chain tip.
func (s *syncer) watchTip(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var lastHeight uint32
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if !s.state.UserWantsToSync() {
			continue
		}

		s.limiter.Take()
		height, err := s.blockchain.GetBlockHeight(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.WithError(err).Warn("tip watcher: failed to get block height")
			continue
		}
		if height == lastHeight {
			continue
		}

		log.Debugf("tip watcher: new block %d", height)
		lastHeight = height
		s.notifier.Notify(domain.Notification{
			Event:   domain.NotificationBlock,
			Payload: map[string]interface{}{"block_height": height},
		})
	}
}

// reconcileSpent forgets the outpoints spent by the session once the indexer
// reports their spending transaction as confirmed.
func (s *syncer) reconcileSpent(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if !s.state.UserWantsToSync() {
			continue
		}

		for _, op := range s.state.SpentOutpoints() {
			if ctx.Err() != nil {
				return nil
			}

			s.limiter.Take()
			outspend, err := s.blockchain.GetOutspend(ctx, op)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.WithError(err).Warnf(
					"spent reconciler: failed to get outspend of %s", op,
				)
				continue
			}
			if !s.state.ClearIfConfirmed(op, outspend) {
				continue
			}

			log.Debugf("spent reconciler: spend of %s confirmed", op)
			s.notifier.Notify(domain.Notification{
				Event: domain.NotificationTransaction,
				Payload: map[string]interface{}{
					"txhash":   outspend.SpendingTxid,
					"type":     "confirmed",
					"outpoint": op.String(),
				},
			})
		}
	}
}
