package session

import (
	"context"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
)

func (s *Session) GetBlockHeight(ctx context.Context) (uint32, error) {
	bc, err := s.getBlockchain()
	if err != nil {
		return 0, err
	}
	height, err := bc.GetBlockHeight(ctx)
	if err != nil {
		return 0, domain.ErrNetwork.Wrap(err)
	}
	return height, nil
}

// GetFeeEstimates returns the fee rates estimated by the indexer, ordered by
// confirmation target.
func (s *Session) GetFeeEstimates(
	ctx context.Context,
) ([]domain.FeeEstimate, error) {
	bc, err := s.getBlockchain()
	if err != nil {
		return nil, err
	}
	fees, err := bc.GetFeeEstimates(ctx)
	if err != nil {
		return nil, domain.ErrNetwork.Wrap(err)
	}
	return fees, nil
}

func (s *Session) GetTransactionHex(
	ctx context.Context, txid string,
) (string, error) {
	bc, err := s.getBlockchain()
	if err != nil {
		return "", err
	}
	txHex, err := bc.GetTransactionHex(ctx, txid)
	if err != nil {
		return "", domain.ErrNetwork.Wrap(err)
	}
	return txHex, nil
}

// GetTransactionDetails fetches the given transaction and decodes it.
func (s *Session) GetTransactionDetails(
	ctx context.Context, txid string,
) (*domain.TransactionDetails, error) {
	txHex, err := s.GetTransactionHex(ctx, txid)
	if err != nil {
		return nil, err
	}
	details, err := s.wallet.TransactionDetails(txHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction %s: %w", txid, err)
	}
	return details, nil
}

// GetTransactions returns a page of the transactions of the given subaccount,
// newest first, along with their memos.
func (s *Session) GetTransactions(
	ctx context.Context, page TransactionsPage,
) ([]domain.TxSummary, error) {
	store, err := s.getStore()
	if err != nil {
		return nil, err
	}
	bc, err := s.getBlockchain()
	if err != nil {
		return nil, err
	}
	account, ok := s.state.Account(page.Subaccount)
	if !ok {
		return nil, domain.ErrSubaccountNotFound
	}

	txs, err := bc.GetTransactions(ctx, account.Addresses)
	if err != nil {
		return nil, domain.ErrNetwork.Wrap(err)
	}
	domain.SortNewestFirst(txs)

	if int(page.First) >= len(txs) {
		return []domain.TxSummary{}, nil
	}
	txs = txs[page.First:]
	if page.Count > 0 && int(page.Count) < len(txs) {
		txs = txs[:page.Count]
	}

	for i, tx := range txs {
		memo, err := store.GetMemo(ctx, tx.Txid)
		if err != nil {
			return nil, fmt.Errorf("failed to get memo of %s: %w", tx.Txid, err)
		}
		txs[i].Memo = memo
	}
	return txs, nil
}

// GetBalance returns the balance of the subaccount per asset. Outputs spent by
// the session, but not yet reported as such by the indexer, are excluded.
func (s *Session) GetBalance(
	ctx context.Context, index uint32, numConfs uint32,
) (domain.Balance, error) {
	utxos, err := s.selectableUtxos(ctx, index)
	if err != nil {
		return nil, err
	}
	return domain.BalanceOf(utxos, numConfs), nil
}

// GetUnspentOutputs returns the spendable coins of the subaccount grouped by
// asset, largest first. With numConfs greater than zero only confirmed coins
// are returned.
func (s *Session) GetUnspentOutputs(
	ctx context.Context, index uint32, numConfs uint32,
) (UnspentOutputs, error) {
	utxos, err := s.selectableUtxos(ctx, index)
	if err != nil {
		return nil, err
	}

	unspents := UnspentOutputs{}
	for _, u := range utxos {
		if numConfs > 0 && !u.Confirmed {
			continue
		}
		unspents[u.Asset] = append(unspents[u.Asset], u)
	}
	for _, list := range unspents {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Value > list[j].Value
		})
	}
	return unspents, nil
}

// CreateTransaction builds a transaction for the given request, spending only
// coins not already spent by the session.
func (s *Session) CreateTransaction(
	ctx context.Context, req domain.CreateTransaction,
) (*domain.Transaction, error) {
	if len(req.Addressees) == 0 {
		return nil, domain.ErrInvalidAddress
	}
	for _, a := range req.Addressees {
		if a.Satoshi == 0 {
			return nil, domain.ErrNoAmountSpecified
		}
	}

	account, ok := s.state.Account(req.Subaccount)
	if !ok {
		if _, err := s.getMasterKeys(); err != nil {
			return nil, err
		}
		return nil, domain.ErrSubaccountNotFound
	}
	utxos, err := s.selectableUtxos(ctx, req.Subaccount)
	if err != nil {
		return nil, err
	}

	feeRate, err := s.feeRate(ctx, req.FeeRate)
	if err != nil {
		return nil, err
	}

	tx, err := s.wallet.CreateTransaction(ctx, account, req, utxos, feeRate)
	if err != nil {
		return nil, err
	}
	tx.Memo = req.Memo
	return tx, nil
}

func (s *Session) SignTransaction(
	ctx context.Context, tx domain.Transaction,
) (*domain.Transaction, error) {
	keys, err := s.getMasterKeys()
	if err != nil {
		return nil, err
	}
	if keys.IsWatchOnly() {
		return nil, domain.ErrWatchOnly
	}
	return s.wallet.SignTransaction(ctx, keys, tx)
}

// SendTransaction broadcasts a signed transaction, stores its memo and moves
// the change pointer of the subaccount past the used change address.
func (s *Session) SendTransaction(
	ctx context.Context, tx domain.Transaction,
) (*SendResult, error) {
	if !tx.Signed || tx.Hex == "" {
		return nil, domain.NewDomainError("transaction is not signed")
	}

	txid, err := s.BroadcastTransaction(ctx, tx.Hex)
	if err != nil {
		return nil, err
	}

	if tx.Memo != "" {
		if err := s.SetTransactionMemo(ctx, txid, tx.Memo); err != nil {
			log.WithError(err).Warnf("failed to store memo of tx %s", txid)
		}
	}

	if tx.ChangeAddress != "" {
		account, err := s.state.UpdateAccount(
			tx.Subaccount, func(a *domain.Account) error {
				a.NextChange++
				if !a.HasAddress(tx.ChangeAddress) {
					a.Addresses = append(a.Addresses, tx.ChangeAddress)
				}
				return nil
			},
		)
		if err == nil {
			err = s.saveAccount(ctx, account.Metadata())
		}
		if err != nil {
			log.WithError(err).Warnf(
				"failed to update change pointer of subaccount %d", tx.Subaccount,
			)
		}
	}

	return &SendResult{Txid: txid}, nil
}

// BroadcastTransaction publishes the given raw transaction and records its
// inputs as spent.
func (s *Session) BroadcastTransaction(
	ctx context.Context, txHex string,
) (string, error) {
	bc, err := s.getBlockchain()
	if err != nil {
		return "", err
	}
	_, inputs, err := s.wallet.DecodeTransaction(txHex)
	if err != nil {
		return "", domain.NewDomainError("invalid transaction").Wrap(err)
	}

	txid, err := bc.BroadcastTransaction(ctx, txHex)
	if err != nil {
		return "", domain.ErrNetwork.Wrap(err)
	}

	s.state.MarkSpent(inputs...)
	s.notify(domain.NotificationTransaction, map[string]interface{}{
		"txhash": txid,
		"type":   "outgoing",
	})
	log.Debugf("broadcasted tx %s spending %d inputs", txid, len(inputs))
	return txid, nil
}

func (s *Session) SetTransactionMemo(
	ctx context.Context, txid, memo string,
) error {
	store, err := s.getStore()
	if err != nil {
		return err
	}
	return store.SetMemo(ctx, txid, memo)
}

func (s *Session) GetSettings(ctx context.Context) (*domain.Settings, error) {
	store, err := s.getStore()
	if err != nil {
		return nil, err
	}
	settings, err := store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		defaults := domain.DefaultSettings()
		settings = &defaults
	}
	return settings, nil
}

func (s *Session) ChangeSettings(
	ctx context.Context, settings domain.Settings,
) error {
	if err := settings.Validate(); err != nil {
		return domain.NewDomainError("invalid settings").Wrap(err)
	}
	store, err := s.getStore()
	if err != nil {
		return err
	}
	return store.SetSettings(ctx, settings)
}

// ConvertAmount expresses the given amount, either in satoshi or in btc, in
// every supported unit.
func (s *Session) ConvertAmount(satoshi *int64, btc *string) (*domain.Amount, error) {
	switch {
	case satoshi != nil:
		if *satoshi < 0 {
			return nil, domain.ErrInvalidAmount
		}
		amount := domain.NewAmountFromSatoshi(*satoshi)
		return &amount, nil
	case btc != nil:
		amount, err := domain.NewAmountFromBTC(*btc)
		if err != nil {
			return nil, err
		}
		return &amount, nil
	default:
		return nil, domain.ErrNoAmountSpecified
	}
}

func (s *Session) selectableUtxos(
	ctx context.Context, index uint32,
) ([]domain.Utxo, error) {
	if _, err := s.getMasterKeys(); err != nil {
		return nil, err
	}
	bc, err := s.getBlockchain()
	if err != nil {
		return nil, err
	}
	account, ok := s.state.Account(index)
	if !ok {
		return nil, domain.ErrSubaccountNotFound
	}

	utxos, err := bc.GetUnspents(ctx, account.Addresses)
	if err != nil {
		return nil, domain.ErrNetwork.Wrap(err)
	}
	return s.state.SelectableUtxos(index, utxos)
}

// feeRate returns the requested fee rate or, if missing, the one estimated
// for confirmation within the next block. The first estimate is the minimum
// relay fee rate and is used only when no other is available. The result is
// never below the minimum relay fee rate.
func (s *Session) feeRate(
	ctx context.Context, requested *uint64,
) (uint64, error) {
	if requested != nil {
		if *requested < domain.MinFeeRate {
			return 0, domain.ErrFeeRateTooLow
		}
		return *requested, nil
	}

	fees, err := s.GetFeeEstimates(ctx)
	if err != nil {
		return 0, err
	}
	if len(fees) == 0 {
		return domain.MinFeeRate, nil
	}
	rate := uint64(fees[0])
	if len(fees) > 1 {
		rate = uint64(fees[1])
	}
	if rate < domain.MinFeeRate {
		rate = domain.MinFeeRate
	}
	return rate, nil
}
