package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// Amount is a value expressed in all the units supported by convert_amount.
type Amount struct {
	Satoshi int64  `json:"satoshi"`
	BTC     string `json:"btc"`
	MBTC    string `json:"mbtc"`
	UBTC    string `json:"ubtc"`
	Bits    string `json:"bits"`
	Sats    string `json:"sats"`
}

const satoshiExp = 8

var maxSatoshi = decimal.NewFromInt(math.MaxInt64)

// NewAmountFromSatoshi returns the amount in every supported unit.
func NewAmountFromSatoshi(sats int64) Amount {
	v := decimal.NewFromInt(sats)
	return Amount{
		Satoshi: sats,
		BTC:     v.Shift(-satoshiExp).StringFixed(8),
		MBTC:    v.Shift(-5).StringFixed(5),
		UBTC:    v.Shift(-2).StringFixed(2),
		Bits:    v.Shift(-2).StringFixed(2),
		Sats:    v.String(),
	}
}

// NewAmountFromBTC parses an amount given in BTC units. Amounts with more than
// 8 decimals, negative or not representable in satoshis are invalid.
func NewAmountFromBTC(btc string) (Amount, error) {
	v, err := decimal.NewFromString(btc)
	if err != nil {
		return Amount{}, ErrInvalidAmount.Wrap(err)
	}
	if v.IsNegative() {
		return Amount{}, ErrInvalidAmount
	}
	sats := v.Shift(satoshiExp)
	if !sats.Equal(sats.Truncate(0)) || sats.GreaterThan(maxSatoshi) {
		return Amount{}, ErrInvalidAmount
	}
	return NewAmountFromSatoshi(sats.IntPart()), nil
}
