// Package sim drives an in-memory ledger deployment through a scripted
// scenario and reports the resulting market state.
package sim

import (
	"fmt"

	"github.com/holiman/uint256"

	"isoledger/config"
	"isoledger/core/events"
	"isoledger/core/journal"
	"isoledger/crypto"
	nativecommon "isoledger/native/common"
	"isoledger/native/irm"
	"isoledger/native/lending"
	"isoledger/native/oracle"
	"isoledger/native/registry"
	"isoledger/native/token"
)

const lendingModule = "lending"

// TokenInfo pairs a deployed token with its address.
type TokenInfo struct {
	Address crypto.Address
	Token   *token.Token
}

// OracleInfo pairs a settable feed with the tokens it quotes.
type OracleInfo struct {
	Address    crypto.Address
	Feed       *oracle.Static
	Collateral string
	Loan       string
}

// ModelInfo is a deployed rate model.
type ModelInfo struct {
	Address  crypto.Address
	Model    lending.RateModel
	Adaptive *irm.AdaptiveCurve
}

// MarketInfo is a created market.
type MarketInfo struct {
	Name       string
	Params     lending.MarketParams
	ID         lending.MarketID
	Loan       string
	Collateral string
}

// Deployment is a ledger wired to in-memory collaborators built from a
// config.Config.
type Deployment struct {
	Config   *config.Config
	Journal  *journal.Journal
	Registry *registry.Registry
	Engine   *lending.Engine
	Pauses   *nativecommon.Pauses

	Ledger crypto.Address
	Owner  crypto.Address
	// Start is the time the markets were created at.
	Start uint64

	Tokens  map[string]TokenInfo
	Oracles map[string]OracleInfo
	Models  map[string]ModelInfo
	Markets []MarketInfo
}

// collaboratorAddress namespaces labels so a token and an oracle sharing a
// name still get distinct addresses.
func collaboratorAddress(kind, name string) crypto.Address {
	return crypto.DeriveAddress(kind + "/" + name)
}

// Deploy builds the ledger described by cfg at time now. The emitter
// receives the events of the set-up calls and of every later call.
func Deploy(cfg *config.Config, emitter events.Emitter, now uint64) (*Deployment, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	ledgerAddr, err := config.ResolveAddress(cfg.Ledger.Address)
	if err != nil {
		return nil, fmt.Errorf("ledger address: %w", err)
	}
	owner, err := config.ResolveAddress(cfg.Ledger.Owner)
	if err != nil {
		return nil, fmt.Errorf("ledger owner: %w", err)
	}

	d := &Deployment{
		Config:   cfg,
		Journal:  journal.New(),
		Registry: registry.New(),
		Ledger:   ledgerAddr,
		Owner:    owner,
		Start:    now,
		Tokens:   make(map[string]TokenInfo, len(cfg.Tokens)),
		Oracles:  make(map[string]OracleInfo, len(cfg.Oracles)),
		Models:   make(map[string]ModelInfo, len(cfg.RateModels)),
	}
	if err := d.deployCollaborators(emitter); err != nil {
		return nil, err
	}

	engine, err := lending.NewEngine(lending.Config{
		Address:  ledgerAddr,
		Owner:    owner,
		Resolver: d.Registry,
		Journal:  d.Journal,
	})
	if err != nil {
		return nil, err
	}
	engine.SetEmitter(emitter)
	d.Engine = engine

	if err := d.createMarkets(now); err != nil {
		return nil, err
	}

	d.Pauses = nativecommon.NewPauses()
	d.Pauses.Set(lendingModule, cfg.Pauses.Lending)
	engine.SetPauses(d.Pauses)
	engine.SetActionPauses(lending.ActionPauses{
		Supply:    cfg.Pauses.Supply,
		Borrow:    cfg.Pauses.Borrow,
		Repay:     cfg.Pauses.Repay,
		Liquidate: cfg.Pauses.Liquidate,
	})
	return d, nil
}

func (d *Deployment) deployCollaborators(emitter events.Emitter) error {
	for _, t := range d.Config.Tokens {
		addr := collaboratorAddress("token", t.Name)
		tok := token.New(t.Symbol, t.Decimals, d.Journal)
		if err := d.Registry.RegisterToken(addr, t.Name, tok); err != nil {
			return fmt.Errorf("token %s: %w", t.Name, err)
		}
		d.Tokens[t.Name] = TokenInfo{Address: addr, Token: tok}
	}

	for _, o := range d.Config.Oracles {
		price, err := d.scaledPrice(o)
		if err != nil {
			return err
		}
		addr := collaboratorAddress("oracle", o.Name)
		feed := oracle.NewStatic(price)
		if err := d.Registry.RegisterOracle(addr, o.Name, feed); err != nil {
			return fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		d.Oracles[o.Name] = OracleInfo{Address: addr, Feed: feed, Collateral: o.Collateral, Loan: o.Loan}
	}

	for _, r := range d.Config.RateModels {
		addr := collaboratorAddress("irm", r.Name)
		info := ModelInfo{Address: addr}
		switch r.Kind {
		case config.KindAdaptive:
			params, err := r.AdaptiveParams()
			if err != nil {
				return err
			}
			model, err := irm.NewAdaptiveCurve(d.Ledger, params)
			if err != nil {
				return fmt.Errorf("rate model %s: %w", r.Name, err)
			}
			model.SetEmitter(emitter)
			info.Model, info.Adaptive = model, model
		case config.KindFixed:
			apr, err := r.FixedAPR()
			if err != nil {
				return err
			}
			info.Model = irm.NewFixedAPR(apr)
		}
		if err := d.Registry.RegisterRateModel(addr, r.Name, info.Model); err != nil {
			return fmt.Errorf("rate model %s: %w", r.Name, err)
		}
		d.Models[r.Name] = info
	}
	return nil
}

func (d *Deployment) scaledPrice(o config.Oracle) (*uint256.Int, error) {
	human, err := o.ParsePrice()
	if err != nil {
		return nil, err
	}
	coll, loan := d.tokenDecimals(o.Collateral), d.tokenDecimals(o.Loan)
	price, err := oracle.ScalePrice(human, coll, loan)
	if err != nil {
		return nil, fmt.Errorf("oracle %s: %w", o.Name, err)
	}
	return price, nil
}

func (d *Deployment) tokenDecimals(name string) uint8 {
	for _, t := range d.Config.Tokens {
		if t.Name == name {
			return t.Decimals
		}
	}
	return 0
}

// Model returns the deployed rate model at addr.
func (d *Deployment) Model(addr crypto.Address) (ModelInfo, bool) {
	for _, info := range d.Models {
		if info.Address == addr {
			return info, true
		}
	}
	return ModelInfo{}, false
}

// createMarkets allow-lists what the configured markets need, then creates
// them and applies their fees.
func (d *Deployment) createMarkets(now uint64) error {
	env := lending.Env{Sender: d.Owner, Now: now}
	if label := d.Config.Ledger.FeeRecipient; label != "" {
		recipient, err := config.ResolveAddress(label)
		if err != nil {
			return fmt.Errorf("fee recipient: %w", err)
		}
		if err := d.Engine.SetFeeRecipient(env, recipient); err != nil {
			return fmt.Errorf("fee recipient: %w", err)
		}
	}

	for _, m := range d.Config.Markets {
		lltv, err := m.ParseLLTV()
		if err != nil {
			return err
		}
		fee, err := m.ParseFee()
		if err != nil {
			return err
		}
		params := lending.MarketParams{
			LoanToken:       d.Tokens[m.LoanToken].Address,
			CollateralToken: d.Tokens[m.CollateralToken].Address,
			Oracle:          d.Oracles[m.Oracle].Address,
			LLTV:            *lltv,
		}
		if m.RateModel != "" {
			params.IRM = d.Models[m.RateModel].Address
		}

		if !d.Engine.IsIRMEnabled(params.IRM) {
			if err := d.Engine.EnableIRM(env, params.IRM); err != nil {
				return fmt.Errorf("market %s: enable irm: %w", m.Name, err)
			}
		}
		if !d.Engine.IsLLTVEnabled(lltv) {
			if err := d.Engine.EnableLLTV(env, lltv); err != nil {
				return fmt.Errorf("market %s: enable lltv: %w", m.Name, err)
			}
		}
		id, err := d.Engine.CreateMarket(env, params)
		if err != nil {
			return fmt.Errorf("market %s: %w", m.Name, err)
		}
		if !fee.IsZero() {
			if err := d.Engine.SetFee(env, params, fee); err != nil {
				return fmt.Errorf("market %s: fee: %w", m.Name, err)
			}
		}
		d.Markets = append(d.Markets, MarketInfo{
			Name:       m.Name,
			Params:     params,
			ID:         id,
			Loan:       m.LoanToken,
			Collateral: m.CollateralToken,
		})
	}
	return nil
}

// Market returns the created market named name.
func (d *Deployment) Market(name string) (MarketInfo, bool) {
	for _, m := range d.Markets {
		if m.Name == name {
			return m, true
		}
	}
	return MarketInfo{}, false
}

// RateModel returns the model of a market, or nil for an interest-free one.
func (d *Deployment) RateModel(m MarketInfo) (lending.RateModel, bool) {
	if m.Params.IRM.IsZero() {
		return nil, false
	}
	return d.Registry.RateModel(m.Params.IRM)
}
