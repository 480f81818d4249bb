package sim

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Step actions understood by the runner.
const (
	ActionAdvance            = "advance"
	ActionSetPrice           = "set_price"
	ActionSupply             = "supply"
	ActionWithdraw           = "withdraw"
	ActionSupplyCollateral   = "supply_collateral"
	ActionWithdrawCollateral = "withdraw_collateral"
	ActionBorrow             = "borrow"
	ActionRepay              = "repay"
	ActionLiquidate          = "liquidate"
	ActionAccrue             = "accrue"
	ActionFlashLoan          = "flash_loan"
	ActionAuthorize          = "authorize"
	ActionAuthorizeWithSig   = "authorize_with_sig"
	ActionSetFee             = "set_fee"
	ActionPause              = "pause"
	ActionResume             = "resume"
)

var knownActions = map[string]bool{
	ActionAdvance: true, ActionSetPrice: true, ActionSupply: true, ActionWithdraw: true,
	ActionSupplyCollateral: true, ActionWithdrawCollateral: true, ActionBorrow: true,
	ActionRepay: true, ActionLiquidate: true, ActionAccrue: true, ActionFlashLoan: true,
	ActionAuthorize: true, ActionAuthorizeWithSig: true, ActionSetFee: true,
	ActionPause: true, ActionResume: true,
}

// SignerAccount is the account name bound to the signing key.
const SignerAccount = "signer"

// Scenario is a scripted sequence of ledger calls.
type Scenario struct {
	Name     string    `yaml:"name"`
	Start    uint64    `yaml:"start"`
	Accounts []Account `yaml:"accounts"`
	Steps    []Step    `yaml:"steps"`
}

// Account is funded with human token amounts before the first step and
// approves the ledger for every token.
type Account struct {
	Name  string            `yaml:"name"`
	Funds map[string]string `yaml:"funds"`
}

// Step is one scripted call. Amounts are human token amounts; shares are raw
// integers. Expect, when set, is a substring the call's error must contain.
type Step struct {
	Action   string `yaml:"action"`
	Actor    string `yaml:"actor"`
	Market   string `yaml:"market"`
	Amount   string `yaml:"amount"`
	Shares   string `yaml:"shares"`
	OnBehalf string `yaml:"on_behalf"`
	Receiver string `yaml:"receiver"`
	Borrower string `yaml:"borrower"`
	Seize    string `yaml:"seize"`
	Oracle   string `yaml:"oracle"`
	Price    string `yaml:"price"`
	Seconds  uint64 `yaml:"seconds"`
	Token    string `yaml:"token"`
	Operator string `yaml:"operator"`
	Revoke   bool   `yaml:"revoke"`
	Deadline uint64 `yaml:"deadline"`
	Fee      string `yaml:"fee"`
	Flow     string `yaml:"flow"`
	Expect   string `yaml:"expect"`
}

// LoadScenario reads a YAML scenario from disk.
func LoadScenario(path string) (*Scenario, error) {
	if path == "" {
		return nil, fmt.Errorf("scenario path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer file.Close()
	return ParseScenario(file)
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(r io.Reader) (*Scenario, error) {
	sc := &Scenario{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	sc.normalize()
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Scenario) normalize() {
	sc.Name = strings.TrimSpace(sc.Name)
	for i := range sc.Steps {
		sc.Steps[i].Action = strings.ToLower(strings.TrimSpace(sc.Steps[i].Action))
		sc.Steps[i].Actor = strings.TrimSpace(sc.Steps[i].Actor)
	}
}

func (sc *Scenario) validate() error {
	seen := make(map[string]bool, len(sc.Accounts))
	for _, a := range sc.Accounts {
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("account: name is required")
		}
		if seen[a.Name] {
			return fmt.Errorf("account %s: duplicate name", a.Name)
		}
		seen[a.Name] = true
	}
	for i, step := range sc.Steps {
		if !knownActions[step.Action] {
			return fmt.Errorf("step %d: unknown action %q", i, step.Action)
		}
		switch step.Action {
		case ActionAdvance, ActionSetPrice, ActionPause, ActionResume, ActionSetFee:
		default:
			if step.Actor == "" {
				return fmt.Errorf("step %d: %s requires an actor", i, step.Action)
			}
		}
	}
	return nil
}

// NeedsSigner reports whether any step signs an authorization.
func (sc *Scenario) NeedsSigner() bool {
	for _, step := range sc.Steps {
		if step.Action == ActionAuthorizeWithSig {
			return true
		}
	}
	return false
}
