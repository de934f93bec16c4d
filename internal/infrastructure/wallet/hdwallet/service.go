package hdwallet

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
	"github.com/tdex-network/gdk-electrum/internal/core/ports"
	"github.com/tyler-smith/go-bip39"
	"github.com/vulpemventures/go-elements/payment"
)

// DefaultGapLimit is the number of unused addresses derived ahead of the
// receive and change pointers of every subaccount.
const DefaultGapLimit = 20

// Opts defines the parameters needed for creating a wallet service.
type Opts struct {
	Network  string
	GapLimit uint32
}

func (o Opts) validate() error {
	if _, err := paramsByName(o.Network); err != nil {
		return err
	}
	return nil
}

type service struct {
	params   params
	gapLimit uint32
}

// NewService returns a ports.Wallet deriving singlesig p2wpkh subaccounts
// from a bip39 mnemonic or from a master extended public key.
//
// Subaccount n is derived at m/84'/coin'/n, non hardened, so that watch-only
// sessions can derive the same subaccounts as full ones.
func NewService(opts Opts) (ports.Wallet, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	p, _ := paramsByName(opts.Network)
	gapLimit := opts.GapLimit
	if gapLimit == 0 {
		gapLimit = DefaultGapLimit
	}
	return &service{p, gapLimit}, nil
}

func (s *service) Login(
	_ context.Context, creds domain.Credentials,
) (domain.MasterKeys, error) {
	if creds.Xpub != "" {
		return s.loginWatchOnly(creds.Xpub)
	}

	if !bip39.IsMnemonicValid(creds.Mnemonic) {
		return domain.MasterKeys{}, domain.ErrInvalidCredentials
	}
	seed := bip39.NewSeed(creds.Mnemonic, creds.Password)

	master, err := hdkeychain.NewMaster(seed, s.params.keys)
	if err != nil {
		return domain.MasterKeys{}, domain.ErrInvalidCredentials.Wrap(err)
	}
	root, err := deriveChildren(master, s.params.rootPath()...)
	if err != nil {
		return domain.MasterKeys{}, err
	}
	xpub, err := root.Neuter()
	if err != nil {
		return domain.MasterKeys{}, err
	}

	xprv := root.String()
	return domain.MasterKeys{Xpub: xpub.String(), Xprv: &xprv}, nil
}

func (s *service) loginWatchOnly(xpub string) (domain.MasterKeys, error) {
	key, err := hdkeychain.NewKeyFromString(xpub)
	if err != nil {
		return domain.MasterKeys{}, domain.ErrInvalidCredentials.Wrap(err)
	}
	if key.IsPrivate() {
		return domain.MasterKeys{}, domain.ErrInvalidCredentials.Wrap(
			fmt.Errorf("expected public key, got private one"),
		)
	}
	if !key.IsForNet(s.params.keys) {
		return domain.MasterKeys{}, domain.ErrInvalidCredentials.Wrap(
			fmt.Errorf("key is for a different network"),
		)
	}
	return domain.MasterKeys{Xpub: xpub}, nil
}

// DeriveAccount returns the subaccount described by meta, with the addresses
// derived up to the gap limit past its receive and change pointers.
func (s *service) DeriveAccount(
	_ context.Context, keys domain.MasterKeys, meta domain.AccountMetadata,
) (*domain.Account, error) {
	root, err := hdkeychain.NewKeyFromString(keys.Xpub)
	if err != nil {
		return nil, fmt.Errorf("invalid master key: %w", err)
	}
	accountKey, err := root.Derive(meta.Index)
	if err != nil {
		return nil, err
	}

	accountType := meta.Type
	if accountType == "" {
		accountType = domain.AccountTypeP2WPKH
	}
	account := &domain.Account{
		Index:       meta.Index,
		Name:        meta.Name,
		Type:        accountType,
		Xpub:        accountKey.String(),
		Hidden:      meta.Hidden,
		NextReceive: meta.NextReceive,
		NextChange:  meta.NextChange,
		Path:        append(s.params.rootPath(), meta.Index),
	}

	chains := []struct {
		chain uint32
		next  uint32
	}{
		{domain.ExternalChain, meta.NextReceive},
		{domain.InternalChain, meta.NextChange},
	}
	for _, c := range chains {
		chainKey, err := accountKey.Derive(c.chain)
		if err != nil {
			return nil, err
		}
		for i := uint32(0); i < c.next+s.gapLimit; i++ {
			addr, err := s.addressAt(chainKey, i)
			if err != nil {
				return nil, err
			}
			account.Addresses = append(account.Addresses, addr)
		}
	}

	return account, nil
}

func (s *service) DeriveAddress(
	_ context.Context, account domain.Account, chain, index uint32,
) (string, error) {
	accountKey, err := hdkeychain.NewKeyFromString(account.Xpub)
	if err != nil {
		return "", fmt.Errorf("invalid subaccount key: %w", err)
	}
	chainKey, err := accountKey.Derive(chain)
	if err != nil {
		return "", err
	}
	return s.addressAt(chainKey, index)
}

func (s *service) addressAt(chainKey *hdkeychain.ExtendedKey, index uint32) (string, error) {
	key, err := chainKey.Derive(index)
	if err != nil {
		return "", err
	}
	pubkey, err := key.ECPubKey()
	if err != nil {
		return "", err
	}
	return payment.FromPublicKey(pubkey, s.params.net, nil).WitnessPubKeyHash()
}

func deriveChildren(
	key *hdkeychain.ExtendedKey, path ...uint32,
) (*hdkeychain.ExtendedKey, error) {
	var err error
	for _, step := range path {
		if key, err = key.Derive(step); err != nil {
			return nil, err
		}
	}
	return key, nil
}
