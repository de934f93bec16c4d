package domain

const (
	// MainAccount is the subaccount every wallet is created with.
	MainAccount = 0

	ExternalChain = 0
	InternalChain = 1

	// AccountTypeP2WPKH is the default (and only) script type of subaccounts.
	AccountTypeP2WPKH = "p2wpkh"

	// MinFeeRate is the minimum fee rate accepted when creating transactions,
	// in satoshi per 1000 virtual bytes.
	MinFeeRate = 100
)
