package domain

// Account defines the state of a subaccount of the wallet: an independently
// addressable partition of the wallet's derived keys.
type Account struct {
	Index       uint32
	Name        string
	Type        string
	Xpub        string
	Hidden      bool
	NextReceive uint32
	NextChange  uint32
	// Path is the derivation path of the account key from the wallet seed.
	Path []uint32
	// Addresses lists every derived address of the account, receive and change
	// ones, in derivation order.
	Addresses []string
}

// Copy returns a deep copy of the account so that snapshots handed out of the
// session never alias its internal state.
func (a Account) Copy() Account {
	c := a
	c.Path = append([]uint32(nil), a.Path...)
	c.Addresses = append([]string(nil), a.Addresses...)
	return c
}

// HasAddress returns whether addr was derived by the account.
func (a Account) HasAddress(addr string) bool {
	for _, v := range a.Addresses {
		if v == addr {
			return true
		}
	}
	return false
}

// Summary returns the public view of the account.
func (a Account) Summary() AccountSummary {
	return AccountSummary{
		Pointer:     a.Index,
		Name:        a.Name,
		Type:        a.Type,
		Hidden:      a.Hidden,
		Xpub:        a.Xpub,
		NextReceive: a.NextReceive,
	}
}

// AccountSummary is the subaccount record returned to callers.
type AccountSummary struct {
	Pointer     uint32 `json:"pointer"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Hidden      bool   `json:"hidden"`
	Xpub        string `json:"xpub"`
	NextReceive uint32 `json:"receiving_id"`
}

// AccountMetadata is the persisted, user editable part of an account.
type AccountMetadata struct {
	Index       uint32
	Name        string
	Type        string
	Hidden      bool
	NextReceive uint32
	NextChange  uint32
}

func (a Account) Metadata() AccountMetadata {
	return AccountMetadata{
		Index:       a.Index,
		Name:        a.Name,
		Type:        a.Type,
		Hidden:      a.Hidden,
		NextReceive: a.NextReceive,
		NextChange:  a.NextChange,
	}
}

// MasterKeys holds the derivation root of the wallet. Xprv is present only for
// sessions unlocked with private key material, and in that case Xpub is
// derived from it.
type MasterKeys struct {
	Xpub string
	Xprv *string
}

func (k MasterKeys) IsWatchOnly() bool {
	return k.Xprv == nil
}

// Credentials are given on login: either a mnemonic (with optional bip39
// password) or a master extended public key for watch-only access.
type Credentials struct {
	Mnemonic string
	Password string
	Xpub     string
}
