package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load loads the deployment from the given path. A missing file is replaced
// by the default deployment, which is written to path.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.normalize()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	return persist(path, cfg)
}

// Default returns a single-market deployment lending USDC against WETH under
// the adaptive curve model.
func Default() *Config {
	return &Config{
		Service:     "isoledger",
		Environment: "local",
		Ledger: Ledger{
			Address:      "ledger",
			Owner:        "owner",
			FeeRecipient: "treasury",
		},
		Logging: Logging{MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28},
		Quota:   Quota{MaxCallsPerEpoch: 1_000, EpochSeconds: 3_600},
		Tokens: []Token{
			{Name: "usdc", Symbol: "USDC", Decimals: 6},
			{Name: "weth", Symbol: "WETH", Decimals: 18},
		},
		Oracles: []Oracle{
			{Name: "weth-usdc", Collateral: "weth", Loan: "usdc", Price: "2500"},
		},
		RateModels: []RateModel{
			{Name: "adaptive", Kind: KindAdaptive},
		},
		Markets: []Market{{
			Name:            "weth-usdc-86",
			LoanToken:       "usdc",
			CollateralToken: "weth",
			Oracle:          "weth-usdc",
			RateModel:       "adaptive",
			LLTV:            "0.86",
			Fee:             "0.1",
		}},
	}
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.Service) == "" {
		c.Service = "isoledger"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if strings.TrimSpace(c.Ledger.Address) == "" {
		c.Ledger.Address = "ledger"
	}
	for i := range c.RateModels {
		c.RateModels[i].Kind = strings.ToLower(strings.TrimSpace(c.RateModels[i].Kind))
		if c.RateModels[i].Kind == "" {
			c.RateModels[i].Kind = KindAdaptive
		}
	}
	if c.Quota.EpochSeconds == 0 {
		c.Quota.EpochSeconds = 3_600
	}
}

// createDefault creates and saves the default deployment.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
