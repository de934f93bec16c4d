package session

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
)

func (s *Session) GetSubaccountNums(ctx context.Context) ([]uint32, error) {
	if _, err := s.getMasterKeys(); err != nil {
		return nil, err
	}
	return s.state.AccountIndexes(), nil
}

func (s *Session) GetSubaccounts(
	ctx context.Context,
) ([]domain.AccountSummary, error) {
	if _, err := s.getMasterKeys(); err != nil {
		return nil, err
	}

	accounts := s.state.Accounts()
	summaries := make([]domain.AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		summaries = append(summaries, a.Summary())
	}
	return summaries, nil
}

func (s *Session) GetSubaccount(
	ctx context.Context, index uint32,
) (*domain.AccountSummary, error) {
	if _, err := s.getMasterKeys(); err != nil {
		return nil, err
	}

	account, ok := s.state.Account(index)
	if !ok {
		return nil, domain.ErrSubaccountNotFound
	}
	summary := account.Summary()
	return &summary, nil
}

func (s *Session) WalletHashID(ctx context.Context) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.masterKeys == nil {
		return "", domain.ErrNotLoggedIn
	}
	return s.walletHashID, nil
}

// GetPreviousAddresses returns every address derived so far by the
// subaccount.
func (s *Session) GetPreviousAddresses(
	ctx context.Context, index uint32,
) ([]string, error) {
	if _, err := s.getMasterKeys(); err != nil {
		return nil, err
	}

	account, ok := s.state.Account(index)
	if !ok {
		return nil, domain.ErrSubaccountNotFound
	}
	return account.Addresses, nil
}

func (s *Session) GetNextSubaccount(ctx context.Context) (uint32, error) {
	if _, err := s.getMasterKeys(); err != nil {
		return 0, err
	}
	return s.state.NextAccountIndex(), nil
}

// CreateSubaccount derives and registers a new subaccount, then persists its
// metadata.
func (s *Session) CreateSubaccount(
	ctx context.Context, args CreateAccountArgs,
) (*domain.AccountSummary, error) {
	keys, err := s.getMasterKeys()
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(args.Name)
	if name == "" {
		return nil, domain.NewDomainError("subaccount name must not be empty")
	}
	accountType := args.Type
	if accountType == "" {
		accountType = domain.AccountTypeP2WPKH
	}
	index := s.state.NextAccountIndex()
	if args.Index != nil {
		index = *args.Index
	}
	if _, ok := s.state.Account(index); ok {
		return nil, domain.ErrSubaccountExists
	}

	meta := domain.AccountMetadata{Index: index, Name: name, Type: accountType}
	account, err := s.wallet.DeriveAccount(ctx, keys, meta)
	if err != nil {
		return nil, err
	}
	if err := s.state.AddAccount(*account); err != nil {
		return nil, err
	}
	if err := s.saveAccount(ctx, meta); err != nil {
		s.state.RemoveAccount(index)
		return nil, err
	}

	summary := account.Summary()
	s.notify(domain.NotificationSubaccount, map[string]interface{}{
		"pointer": index,
		"event":   "new",
	})
	log.Debugf("created subaccount %d (%s)", index, name)
	return &summary, nil
}

func (s *Session) RenameSubaccount(
	ctx context.Context, index uint32, newName string,
) error {
	if _, err := s.getMasterKeys(); err != nil {
		return err
	}

	newName = strings.TrimSpace(newName)
	if newName == "" {
		return domain.NewDomainError("subaccount name must not be empty")
	}
	account, err := s.state.UpdateAccount(
		index, func(a *domain.Account) error {
			a.Name = newName
			return nil
		},
	)
	if err != nil {
		return err
	}
	return s.saveAccount(ctx, account.Metadata())
}

// UpdateSubaccount renames and/or hides the given subaccount. Fields left
// undefined are not changed.
func (s *Session) UpdateSubaccount(
	ctx context.Context, index uint32, name *string, hidden *bool,
) error {
	if _, err := s.getMasterKeys(); err != nil {
		return err
	}

	var newName string
	if name != nil {
		if newName = strings.TrimSpace(*name); newName == "" {
			return domain.NewDomainError("subaccount name must not be empty")
		}
	}
	account, err := s.state.UpdateAccount(
		index, func(a *domain.Account) error {
			if name != nil {
				a.Name = newName
			}
			if hidden != nil {
				a.Hidden = *hidden
			}
			return nil
		},
	)
	if err != nil {
		return err
	}
	return s.saveAccount(ctx, account.Metadata())
}

func (s *Session) GetSubaccountXpub(
	ctx context.Context, index uint32,
) (string, error) {
	if _, err := s.getMasterKeys(); err != nil {
		return "", err
	}

	account, ok := s.state.Account(index)
	if !ok {
		return "", domain.ErrSubaccountNotFound
	}
	return account.Xpub, nil
}

// GetSubaccountRootPath returns the derivation path of the subaccount key.
func (s *Session) GetSubaccountRootPath(
	ctx context.Context, index uint32,
) ([]uint32, error) {
	if _, err := s.getMasterKeys(); err != nil {
		return nil, err
	}

	account, ok := s.state.Account(index)
	if !ok {
		return nil, domain.ErrSubaccountNotFound
	}
	return account.Path, nil
}

func (s *Session) SetSubaccountHidden(
	ctx context.Context, index uint32, hidden bool,
) error {
	if _, err := s.getMasterKeys(); err != nil {
		return err
	}

	account, err := s.state.UpdateAccount(
		index, func(a *domain.Account) error {
			a.Hidden = hidden
			return nil
		},
	)
	if err != nil {
		return err
	}
	return s.saveAccount(ctx, account.Metadata())
}

// GetReceiveAddress derives the next unused receive address of the given
// subaccount.
func (s *Session) GetReceiveAddress(
	ctx context.Context, index uint32,
) (*domain.AddressRecord, error) {
	if _, err := s.getMasterKeys(); err != nil {
		return nil, err
	}

	var (
		pointer uint32
		addr    string
	)
	account, err := s.state.UpdateAccount(
		index, func(a *domain.Account) error {
			var err error
			addr, err = s.wallet.DeriveAddress(
				ctx, *a, domain.ExternalChain, a.NextReceive,
			)
			if err != nil {
				return err
			}
			pointer = a.NextReceive
			a.NextReceive++
			if !a.HasAddress(addr) {
				a.Addresses = append(a.Addresses, addr)
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	if err := s.saveAccount(ctx, account.Metadata()); err != nil {
		return nil, err
	}

	return &domain.AddressRecord{
		Address:     addr,
		Pointer:     pointer,
		Subaccount:  index,
		AddressType: account.Type,
	}, nil
}

func (s *Session) saveAccount(
	ctx context.Context, meta domain.AccountMetadata,
) error {
	store, err := s.getStore()
	if err != nil {
		return err
	}
	if err := store.SaveAccount(ctx, meta); err != nil {
		return fmt.Errorf("failed to persist subaccount %d: %w", meta.Index, err)
	}
	return nil
}
