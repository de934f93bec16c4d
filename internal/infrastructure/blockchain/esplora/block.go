package esplora

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
)

// numFeeTargets is the number of fee estimates returned, the one at index 0 is
// the minimum relay fee, the one at index i targets confirmation within i
// blocks.
const numFeeTargets = 25

func (e *esplora) GetBlockHeight(ctx context.Context) (uint32, error) {
	resp, err := e.get(ctx, "/blocks/tip/height")
	if err != nil {
		return 0, err
	}

	blockHeight, err := strconv.ParseUint(resp, 10, 32)
	if err != nil {
		return 0, err
	}

	return uint32(blockHeight), nil
}

// GetFeeEstimates converts the estimates in sat/vB by confirmation target
// into sat/kvB rates. Targets not covered by the indexer get the estimate of
// the nearest greater target, or the one of the greatest target otherwise.
// No estimates are returned if the indexer doesn't know any.
func (e *esplora) GetFeeEstimates(
	ctx context.Context,
) ([]domain.FeeEstimate, error) {
	resp, err := e.get(ctx, "/fee-estimates")
	if err != nil {
		return nil, err
	}

	var estimates map[string]float64
	if err := json.Unmarshal([]byte(resp), &estimates); err != nil {
		return nil, err
	}
	return toFeeRates(estimates)
}

func toFeeRates(estimates map[string]float64) ([]domain.FeeEstimate, error) {
	if len(estimates) == 0 {
		return nil, nil
	}

	type estimate struct {
		target int
		rate   domain.FeeEstimate
	}
	sorted := make([]estimate, 0, len(estimates))
	for k, v := range estimates {
		target, err := strconv.Atoi(k)
		if err != nil {
			return nil, err
		}
		rate := domain.FeeEstimate(decimal.NewFromFloat(v).Shift(3).Ceil().IntPart())
		if rate < domain.MinFeeRate {
			rate = domain.MinFeeRate
		}
		sorted = append(sorted, estimate{target, rate})
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].target < sorted[j].target
	})

	rates := make([]domain.FeeEstimate, numFeeTargets)
	rates[0] = domain.MinFeeRate
	for i := 1; i < numFeeTargets; i++ {
		idx := sort.Search(len(sorted), func(j int) bool {
			return sorted[j].target >= i
		})
		if idx == len(sorted) {
			idx = len(sorted) - 1
		}
		rates[i] = sorted[idx].rate
	}
	return rates, nil
}
