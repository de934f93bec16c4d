package hdwallet

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/txscript"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
	"github.com/tdex-network/gdk-electrum/pkg/bufferutil"
	"github.com/vulpemventures/go-elements/address"
	"github.com/vulpemventures/go-elements/payment"
	"github.com/vulpemventures/go-elements/transaction"
)

const (
	txVersion = 2
	// maxAddressSearch bounds the number of addresses per chain scanned when
	// looking for the keys of the inputs to sign.
	maxAddressSearch = 1000
)

// CreateTransaction builds an unsigned transaction with explicit outputs.
// Coins are selected per asset, the fee is paid in the policy asset of the
// network and any change is sent to the next change address of the account.
func (s *service) CreateTransaction(
	ctx context.Context, account domain.Account,
	req domain.CreateTransaction, utxos []domain.Utxo, feeRate uint64,
) (*domain.Transaction, error) {
	if feeRate < domain.MinFeeRate {
		return nil, domain.ErrFeeRateTooLow
	}

	policyAsset := s.params.net.AssetID
	addressees := make([]domain.Addressee, 0, len(req.Addressees))
	targets := map[string]uint64{}
	for _, a := range req.Addressees {
		if _, err := address.ToOutputScript(a.Address); err != nil {
			return nil, domain.ErrInvalidAddress.Wrap(err)
		}
		if a.Satoshi == 0 {
			return nil, domain.ErrNoAmountSpecified
		}
		if a.AssetID == "" {
			a.AssetID = policyAsset
		}
		targets[a.AssetID] += a.Satoshi
		addressees = append(addressees, a)
	}

	assets := make([]string, 0, len(targets))
	for asset := range targets {
		if asset != policyAsset {
			assets = append(assets, asset)
		}
	}
	sort.Strings(assets)

	selected := make([]domain.Utxo, 0)
	change := map[string]uint64{}
	for _, asset := range assets {
		coins, amount, err := selectUnspents(utxos, targets[asset], asset)
		if err != nil {
			return nil, err
		}
		selected = append(selected, coins...)
		if amount > 0 {
			change[asset] = amount
		}
	}

	policyCoins, policyChange, fee, err := s.selectWithFee(
		utxos, targets[policyAsset], len(selected), len(addressees)+len(change),
		feeRate,
	)
	if err != nil {
		return nil, err
	}
	selected = append(selected, policyCoins...)
	if policyChange > 0 {
		change[policyAsset] = policyChange
	}

	tx := &domain.Transaction{
		Subaccount: account.Index,
		Addressees: addressees,
		UsedUtxos:  selected,
		FeeRate:    feeRate,
		Fee:        fee,
	}
	if len(change) > 0 {
		changeAddress, err := s.DeriveAddress(
			ctx, account, domain.InternalChain, account.NextChange,
		)
		if err != nil {
			return nil, err
		}
		tx.Change = change
		tx.ChangeAddress = changeAddress
	}

	txHex, err := s.serialize(tx, policyAsset)
	if err != nil {
		return nil, err
	}
	tx.Hex = txHex
	return tx, nil
}

// selectWithFee selects the policy asset coins to cover amount plus the fee of
// the transaction, that grows with the number of selected coins.
func (s *service) selectWithFee(
	utxos []domain.Utxo, amount uint64, numInputs, numOutputs int,
	feeRate uint64,
) ([]domain.Utxo, uint64, uint64, error) {
	policyAsset := s.params.net.AssetID
	fee := estimateFee(numInputs, numOutputs, feeRate)
	for {
		coins, change, err := selectUnspents(utxos, amount+fee, policyAsset)
		if err != nil {
			return nil, 0, 0, err
		}
		outputs := numOutputs
		if change > 0 {
			outputs++
		}
		required := estimateFee(numInputs+len(coins), outputs, feeRate)
		if required <= fee {
			return coins, change, fee, nil
		}
		fee = required
	}
}

func (s *service) serialize(
	tx *domain.Transaction, policyAsset string,
) (string, error) {
	etx := transaction.NewTx(txVersion)

	for _, u := range tx.UsedUtxos {
		hash, err := bufferutil.TxIDToBytes(u.Txid)
		if err != nil {
			return "", fmt.Errorf("invalid utxo %s: %w", u.Outpoint, err)
		}
		etx.AddInput(transaction.NewTxInput(hash, u.Vout))
	}

	for _, a := range tx.Addressees {
		out, err := newTxOutput(a.AssetID, a.Satoshi, a.Address)
		if err != nil {
			return "", err
		}
		etx.AddOutput(out)
	}

	changeAssets := make([]string, 0, len(tx.Change))
	for asset := range tx.Change {
		changeAssets = append(changeAssets, asset)
	}
	sort.Strings(changeAssets)
	for _, asset := range changeAssets {
		out, err := newTxOutput(asset, tx.Change[asset], tx.ChangeAddress)
		if err != nil {
			return "", err
		}
		etx.AddOutput(out)
	}

	feeOut, err := newTxOutput(policyAsset, tx.Fee, "")
	if err != nil {
		return "", err
	}
	etx.AddOutput(feeOut)

	return etx.ToHex()
}

// SignTransaction signs every input of the given transaction with the keys of
// its subaccount.
func (s *service) SignTransaction(
	_ context.Context, keys domain.MasterKeys, tx domain.Transaction,
) (*domain.Transaction, error) {
	if keys.IsWatchOnly() {
		return nil, domain.ErrWatchOnly
	}
	if tx.Hex == "" {
		return nil, domain.NewDomainError("missing transaction to sign")
	}

	etx, err := transaction.NewTxFromHex(tx.Hex)
	if err != nil {
		return nil, domain.NewDomainError("invalid transaction").Wrap(err)
	}

	root, err := hdkeychain.NewKeyFromString(*keys.Xprv)
	if err != nil {
		return nil, fmt.Errorf("invalid master key: %w", err)
	}
	accountKey, err := root.Derive(tx.Subaccount)
	if err != nil {
		return nil, err
	}

	utxosByOutpoint := make(map[domain.Outpoint]domain.Utxo, len(tx.UsedUtxos))
	addresses := make(map[string]bool)
	for _, u := range tx.UsedUtxos {
		utxosByOutpoint[u.Outpoint] = u
		addresses[u.Address] = true
	}
	signingKeys, err := s.findKeys(accountKey, addresses)
	if err != nil {
		return nil, err
	}

	for i, in := range etx.Inputs {
		outpoint := domain.Outpoint{
			Txid: bufferutil.TxIDFromBytes(in.Hash),
			Vout: in.Index,
		}
		utxo, ok := utxosByOutpoint[outpoint]
		if !ok {
			return nil, fmt.Errorf("missing utxo for input %s", outpoint)
		}
		if err := signInput(etx, i, utxo, signingKeys[utxo.Address]); err != nil {
			return nil, err
		}
	}

	txHex, err := etx.ToHex()
	if err != nil {
		return nil, err
	}

	signed := tx
	signed.Hex = txHex
	signed.Signed = true
	log.Debugf("signed %d inputs of tx %s", len(etx.Inputs), etx.TxHash().String())
	return &signed, nil
}

// findKeys returns the private keys of the given addresses of the account.
func (s *service) findKeys(
	accountKey *hdkeychain.ExtendedKey, addresses map[string]bool,
) (map[string]*hdkeychain.ExtendedKey, error) {
	found := make(map[string]*hdkeychain.ExtendedKey, len(addresses))

	for _, chain := range []uint32{domain.ExternalChain, domain.InternalChain} {
		chainKey, err := accountKey.Derive(chain)
		if err != nil {
			return nil, err
		}
		for i := uint32(0); i < maxAddressSearch && len(found) < len(addresses); i++ {
			key, err := chainKey.Derive(i)
			if err != nil {
				return nil, err
			}
			pubkey, err := key.ECPubKey()
			if err != nil {
				return nil, err
			}
			addr, err := payment.FromPublicKey(pubkey, s.params.net, nil).WitnessPubKeyHash()
			if err != nil {
				return nil, err
			}
			if addresses[addr] {
				found[addr] = key
			}
		}
	}

	if len(found) < len(addresses) {
		return nil, domain.NewDomainError("missing keys for some of the inputs")
	}
	return found, nil
}

func signInput(
	tx *transaction.Transaction, inIndex int, utxo domain.Utxo,
	key *hdkeychain.ExtendedKey,
) error {
	prvkey, err := key.ECPrivKey()
	if err != nil {
		return err
	}
	pubkey := prvkey.PubKey()

	script, err := address.ToOutputScript(utxo.Address)
	if err != nil {
		return err
	}
	pay, err := payment.FromScript(script, nil, nil)
	if err != nil {
		return err
	}
	value, err := bufferutil.ValueToBytes(utxo.Value)
	if err != nil {
		return err
	}

	hashForSignature := tx.HashForWitnessV0(
		inIndex, pay.Script, value, txscript.SigHashAll,
	)
	signature := ecdsa.Sign(prvkey, hashForSignature[:])
	if !signature.Verify(hashForSignature[:], pubkey) {
		return fmt.Errorf("signature verification failed for input %d", inIndex)
	}

	sigWithSigHashType := append(signature.Serialize(), byte(txscript.SigHashAll))
	tx.Inputs[inIndex].Witness = [][]byte{
		sigWithSigHashType, pubkey.SerializeCompressed(),
	}
	return nil
}

// DecodeTransaction returns the hash and the outpoints spent by the given
// serialized transaction.
func (s *service) DecodeTransaction(txHex string) (string, []domain.Outpoint, error) {
	tx, err := transaction.NewTxFromHex(txHex)
	if err != nil {
		return "", nil, err
	}

	outpoints := make([]domain.Outpoint, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		outpoints = append(outpoints, domain.Outpoint{
			Txid: bufferutil.TxIDFromBytes(in.Hash),
			Vout: in.Index,
		})
	}
	return tx.TxHash().String(), outpoints, nil
}

// TransactionDetails decodes the given serialized transaction, reporting
// asset and amount of its unconfidential outputs.
func (s *service) TransactionDetails(
	txHex string,
) (*domain.TransactionDetails, error) {
	tx, err := transaction.NewTxFromHex(txHex)
	if err != nil {
		return nil, err
	}

	inputs := make([]domain.Outpoint, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		inputs = append(inputs, domain.Outpoint{
			Txid: bufferutil.TxIDFromBytes(in.Hash),
			Vout: in.Index,
		})
	}

	outputs := make([]domain.TxOutput, 0, len(tx.Outputs))
	for _, out := range tx.Outputs {
		o := domain.TxOutput{Script: hex.EncodeToString(out.Script)}
		if bufferutil.IsConfidential(out.Asset, out.Value) {
			o.Confidential = true
			outputs = append(outputs, o)
			continue
		}
		if o.Asset, err = bufferutil.AssetHashFromBytes(out.Asset); err != nil {
			return nil, err
		}
		if o.Satoshi, err = bufferutil.ValueFromBytes(out.Value); err != nil {
			return nil, err
		}
		outputs = append(outputs, o)
	}

	return &domain.TransactionDetails{
		Txid:        tx.TxHash().String(),
		Hex:         txHex,
		Version:     tx.Version,
		Locktime:    tx.Locktime,
		Size:        len(txHex) / 2,
		VirtualSize: tx.VirtualSize(),
		Weight:      tx.Weight(),
		Inputs:      inputs,
		Outputs:     outputs,
	}, nil
}

func newTxOutput(
	asset string, value uint64, addr string,
) (*transaction.TxOutput, error) {
	assetBytes, err := bufferutil.AssetHashToBytes(asset)
	if err != nil {
		return nil, fmt.Errorf("invalid asset %s: %w", asset, err)
	}
	valueBytes, err := bufferutil.ValueToBytes(value)
	if err != nil {
		return nil, err
	}
	script := []byte{}
	if addr != "" {
		if script, err = address.ToOutputScript(addr); err != nil {
			return nil, domain.ErrInvalidAddress.Wrap(err)
		}
	}
	return transaction.NewTxOutput(assetBytes, valueBytes, script), nil
}
