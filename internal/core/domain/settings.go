package domain

import "fmt"

var validUnits = map[string]bool{
	"btc": true, "mbtc": true, "ubtc": true, "bits": true, "sats": true,
}

// Settings are the user preferences persisted per wallet.
type Settings struct {
	Unit              string  `json:"unit"`
	RequiredNumBlocks uint32  `json:"required_num_blocks"`
	Altimeout         uint32  `json:"altimeout"`
	Pricing           Pricing `json:"pricing"`
}

type Pricing struct {
	Currency string `json:"currency"`
	Exchange string `json:"exchange"`
}

// DefaultSettings returns the settings of a freshly created wallet.
func DefaultSettings() Settings {
	return Settings{
		Unit:              "btc",
		RequiredNumBlocks: 12,
		Altimeout:         5,
		Pricing:           Pricing{Currency: "USD", Exchange: "BITFINEX"},
	}
}

func (s Settings) Validate() error {
	if !validUnits[s.Unit] {
		return fmt.Errorf("unknown unit %q", s.Unit)
	}
	if s.RequiredNumBlocks == 0 {
		return fmt.Errorf("required_num_blocks must be greater than zero")
	}
	return nil
}
