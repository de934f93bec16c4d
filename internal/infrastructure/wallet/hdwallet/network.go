package hdwallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/vulpemventures/go-elements/network"
)

// params groups the chain specific settings of the wallet.
type params struct {
	// net is used for addresses and the policy asset.
	net *network.Network
	// keys is used for the serialization of extended keys.
	keys *chaincfg.Params
	// coinType is the second (hardened) level of the derivation root
	// m/84'/coinType'.
	coinType uint32
}

func (p params) rootPath() []uint32 {
	return []uint32{
		hdkeychain.HardenedKeyStart + 84,
		hdkeychain.HardenedKeyStart + p.coinType,
	}
}

func paramsByName(name string) (params, error) {
	switch name {
	case "", "liquid", "mainnet":
		return params{&network.Liquid, &chaincfg.MainNetParams, 1776}, nil
	case "testnet", "testnet-liquid":
		return params{&network.Testnet, &chaincfg.TestNet3Params, 1}, nil
	case "regtest", "localtest-liquid", "electrum-localtest-liquid":
		return params{&network.Regtest, &chaincfg.RegressionNetParams, 1}, nil
	default:
		return params{}, fmt.Errorf("unknown network %q", name)
	}
}
