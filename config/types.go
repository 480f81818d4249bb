package config

// Config describes one ledger deployment: its identities, the collaborators
// registered with it and the markets opened at start-up. Accounts and
// collaborators are named by labels; addresses are derived from the labels.
type Config struct {
	Service     string `toml:"Service"`
	Environment string `toml:"Environment"`

	Ledger     Ledger      `toml:"ledger"`
	Logging    Logging     `toml:"logging"`
	Pauses     Pauses      `toml:"pauses"`
	Quota      Quota       `toml:"quota"`
	Tokens     []Token     `toml:"tokens"`
	Oracles    []Oracle    `toml:"oracles"`
	RateModels []RateModel `toml:"rate_models"`
	Markets    []Market    `toml:"markets"`
}

// Ledger names the ledger account, its owner and the fee recipient.
type Ledger struct {
	Address      string `toml:"Address"`
	Owner        string `toml:"Owner"`
	FeeRecipient string `toml:"FeeRecipient"`
}

// Logging controls the optional rotating log file.
type Logging struct {
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

// Pauses holds the module switch and the per-flow switches applied at start-up.
type Pauses struct {
	Lending   bool `toml:"Lending"`
	Supply    bool `toml:"Supply"`
	Borrow    bool `toml:"Borrow"`
	Repay     bool `toml:"Repay"`
	Liquidate bool `toml:"Liquidate"`
}

// Quota defines per-account call limits enforced by drivers.
type Quota struct {
	MaxCallsPerEpoch  uint32 `toml:"MaxCallsPerEpoch"`
	MaxVolumePerEpoch uint64 `toml:"MaxVolumePerEpoch"` // whole token units
	EpochSeconds      uint32 `toml:"EpochSeconds"`
}

// Token is an in-memory fungible token.
type Token struct {
	Name     string `toml:"Name"`
	Symbol   string `toml:"Symbol"`
	Decimals uint8  `toml:"Decimals"`
}

// Oracle is a settable feed quoting Collateral in Loan units. Price is a
// human decimal such as "2500.5".
type Oracle struct {
	Name       string `toml:"Name"`
	Collateral string `toml:"Collateral"`
	Loan       string `toml:"Loan"`
	Price      string `toml:"Price"`
}

// RateModel is either an adaptive curve or a fixed-rate model. Rates and
// speeds are annual decimals: "0.04" is 4% per year.
type RateModel struct {
	Name string `toml:"Name"`
	Kind string `toml:"Kind"`

	// Fixed models.
	APR string `toml:"APR"`

	// Adaptive models. Empty values fall back to the defaults.
	CurveSteepness      string `toml:"CurveSteepness"`
	AdjustmentSpeed     string `toml:"AdjustmentSpeed"`
	TargetUtilization   string `toml:"TargetUtilization"`
	InitialRateAtTarget string `toml:"InitialRateAtTarget"`
}

// Market opens an isolated market. An empty RateModel creates an
// interest-free market.
type Market struct {
	Name            string `toml:"Name"`
	LoanToken       string `toml:"LoanToken"`
	CollateralToken string `toml:"CollateralToken"`
	Oracle          string `toml:"Oracle"`
	RateModel       string `toml:"RateModel"`
	LLTV            string `toml:"LLTV"`
	Fee             string `toml:"Fee"`
}

// Rate model kinds.
const (
	KindAdaptive = "adaptive"
	KindFixed    = "fixed"
)
