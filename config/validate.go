package config

import (
	"fmt"
	"strings"

	"isoledger/native/lending"
	"isoledger/native/lending/mathlib"
)

// Validate checks that every reference in the deployment resolves and every
// numeric value is within the ledger's bounds.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil deployment")
	}
	if strings.TrimSpace(cfg.Ledger.Owner) == "" {
		return fmt.Errorf("ledger: Owner is required")
	}
	for name, label := range map[string]string{
		"Address":      cfg.Ledger.Address,
		"Owner":        cfg.Ledger.Owner,
		"FeeRecipient": cfg.Ledger.FeeRecipient,
	} {
		if strings.TrimSpace(label) == "" {
			continue
		}
		if _, err := ResolveAddress(label); err != nil {
			return fmt.Errorf("ledger: %s: %w", name, err)
		}
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxBackups < 0 || cfg.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging: rotation limits must not be negative")
	}
	if cfg.Quota.EpochSeconds == 0 {
		return fmt.Errorf("quota: EpochSeconds must be positive")
	}

	tokens := make(map[string]Token, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		if err := checkName("token", t.Name, tokens); err != nil {
			return err
		}
		if t.Decimals > 36 {
			return fmt.Errorf("token %s: decimals %d above 36", t.Name, t.Decimals)
		}
		tokens[t.Name] = t
	}

	oracles := make(map[string]Oracle, len(cfg.Oracles))
	for _, o := range cfg.Oracles {
		if err := checkName("oracle", o.Name, oracles); err != nil {
			return err
		}
		if _, ok := tokens[o.Collateral]; !ok {
			return fmt.Errorf("oracle %s: unknown collateral token %q", o.Name, o.Collateral)
		}
		if _, ok := tokens[o.Loan]; !ok {
			return fmt.Errorf("oracle %s: unknown loan token %q", o.Name, o.Loan)
		}
		if _, err := o.ParsePrice(); err != nil {
			return err
		}
		oracles[o.Name] = o
	}

	models := make(map[string]RateModel, len(cfg.RateModels))
	for _, r := range cfg.RateModels {
		if err := checkName("rate model", r.Name, models); err != nil {
			return err
		}
		switch r.Kind {
		case KindAdaptive:
			if _, err := r.AdaptiveParams(); err != nil {
				return err
			}
		case KindFixed:
			if _, err := r.FixedAPR(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("rate model %s: unknown kind %q", r.Name, r.Kind)
		}
		models[r.Name] = r
	}

	markets := make(map[string]Market, len(cfg.Markets))
	for _, m := range cfg.Markets {
		if err := checkName("market", m.Name, markets); err != nil {
			return err
		}
		if _, ok := tokens[m.LoanToken]; !ok {
			return fmt.Errorf("market %s: unknown loan token %q", m.Name, m.LoanToken)
		}
		if _, ok := tokens[m.CollateralToken]; !ok {
			return fmt.Errorf("market %s: unknown collateral token %q", m.Name, m.CollateralToken)
		}
		o, ok := oracles[m.Oracle]
		if !ok {
			return fmt.Errorf("market %s: unknown oracle %q", m.Name, m.Oracle)
		}
		if o.Collateral != m.CollateralToken || o.Loan != m.LoanToken {
			return fmt.Errorf("market %s: oracle %s quotes %s in %s", m.Name, o.Name, o.Collateral, o.Loan)
		}
		if m.RateModel != "" {
			if _, ok := models[m.RateModel]; !ok {
				return fmt.Errorf("market %s: unknown rate model %q", m.Name, m.RateModel)
			}
		}
		lltv, err := m.ParseLLTV()
		if err != nil {
			return err
		}
		if lltv.Cmp(mathlib.WAD) >= 0 {
			return fmt.Errorf("market %s: lltv %s must be below 1", m.Name, m.LLTV)
		}
		fee, err := m.ParseFee()
		if err != nil {
			return err
		}
		if fee.Gt(lending.MaxFee) {
			return fmt.Errorf("market %s: fee %s above %s", m.Name, m.Fee, FormatWad(lending.MaxFee))
		}
		if !fee.IsZero() && strings.TrimSpace(cfg.Ledger.FeeRecipient) == "" {
			return fmt.Errorf("market %s: fee requires ledger.FeeRecipient", m.Name)
		}
		markets[m.Name] = m
	}
	return nil
}

func checkName[T any](kind, name string, seen map[string]T) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s: Name is required", kind)
	}
	if _, dup := seen[name]; dup {
		return fmt.Errorf("%s %s: duplicate name", kind, name)
	}
	return nil
}
