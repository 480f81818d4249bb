package sim

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"isoledger/config"
	"isoledger/native/irm"
)

// Report summarises a scenario run.
type Report struct {
	RunID       string           `json:"runId"`
	Scenario    string           `json:"scenario"`
	Service     string           `json:"service"`
	Environment string           `json:"environment"`
	Start       uint64           `json:"start"`
	End         uint64           `json:"end"`
	Failures    int              `json:"failures"`
	Steps       []StepResult     `json:"steps"`
	Markets     []MarketReport   `json:"markets"`
	Positions   []PositionReport `json:"positions"`
}

// StepResult records the outcome of one step.
type StepResult struct {
	Index   int    `json:"index"`
	Action  string `json:"action"`
	Actor   string `json:"actor,omitempty"`
	Time    uint64 `json:"time"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Expect  string `json:"expect,omitempty"`
	Matched bool   `json:"matched"`
}

// MarketReport is the end state of one market. Asset amounts are in human
// loan token units; rates are annualised.
type MarketReport struct {
	Name         string `json:"name"`
	ID           string `json:"id"`
	SupplyAssets string `json:"supplyAssets"`
	BorrowAssets string `json:"borrowAssets"`
	SupplyShares string `json:"supplyShares"`
	BorrowShares string `json:"borrowShares"`
	Utilization  string `json:"utilization"`
	BorrowAPR    string `json:"borrowApr"`
	RateAtTarget string `json:"rateAtTargetApr,omitempty"`
	Fee          string `json:"fee"`
	LastUpdate   uint64 `json:"lastUpdate"`
}

// PositionReport is the end state of one scenario account in one market,
// with interest accrued up to the end of the run.
type PositionReport struct {
	Account      string `json:"account"`
	Market       string `json:"market"`
	SupplyAssets string `json:"supplyAssets"`
	BorrowAssets string `json:"borrowAssets"`
	Collateral   string `json:"collateral"`
	Healthy      *bool  `json:"healthy,omitempty"`
}

const rateDecimals = 6

var secondsPerYear = decimal.NewFromInt(irm.SecondsPerYear)

// annualise converts a WAD-scaled per-second rate into a yearly decimal.
func annualise(rate *uint256.Int) string {
	if rate == nil {
		return decimal.Zero.StringFixed(rateDecimals)
	}
	perSecond := decimal.NewFromBigInt(rate.ToBig(), -18)
	return perSecond.Mul(secondsPerYear).StringFixed(rateDecimals)
}

func units(v *uint256.Int, decimals uint8) string {
	return decimal.NewFromBigInt(v.ToBig(), -int32(decimals)).String()
}

func utilization(borrow, supply *uint256.Int) string {
	if supply.IsZero() {
		return decimal.Zero.StringFixed(rateDecimals)
	}
	b := decimal.NewFromBigInt(borrow.ToBig(), 0)
	s := decimal.NewFromBigInt(supply.ToBig(), 0)
	return b.DivRound(s, rateDecimals).StringFixed(rateDecimals)
}

func (r *Runner) marketReports() []MarketReport {
	out := make([]MarketReport, 0, len(r.dep.Markets))
	for _, m := range r.dep.Markets {
		market, ok := r.dep.Engine.Market(m.ID)
		if !ok {
			continue
		}
		decimals := r.dep.tokenDecimals(m.Loan)
		rep := MarketReport{
			Name:         m.Name,
			ID:           m.ID.Hex(),
			SupplyAssets: units(&market.TotalSupplyAssets, decimals),
			BorrowAssets: units(&market.TotalBorrowAssets, decimals),
			SupplyShares: market.TotalSupplyShares.Dec(),
			BorrowShares: market.TotalBorrowShares.Dec(),
			Utilization:  utilization(&market.TotalBorrowAssets, &market.TotalSupplyAssets),
			BorrowAPR:    annualise(nil),
			Fee:          config.FormatWad(&market.Fee),
			LastUpdate:   market.LastUpdate,
		}
		if model, ok := r.dep.RateModel(m); ok {
			if rate, err := model.BorrowRateView(m.Params, market, r.now); err == nil {
				rep.BorrowAPR = annualise(rate)
			} else {
				r.logger.Warn("borrow rate unavailable", "market", m.Name, "error", err)
			}
		}
		if info, ok := r.dep.Model(m.Params.IRM); ok && info.Adaptive != nil {
			if target, overflow := uint256.FromBig(info.Adaptive.RateAtTarget(m.ID)); !overflow {
				rep.RateAtTarget = annualise(target)
			}
		}
		out = append(out, rep)
	}
	return out
}

func (r *Runner) positionReports() []PositionReport {
	var out []PositionReport
	for _, name := range r.accounts {
		addr, err := r.account(name)
		if err != nil {
			continue
		}
		for _, m := range r.dep.Markets {
			pos := r.dep.Engine.Position(m.ID, addr)
			if pos.IsZero() {
				continue
			}
			rep := PositionReport{
				Account:    name,
				Market:     m.Name,
				Collateral: units(&pos.Collateral, r.dep.tokenDecimals(m.Collateral)),
			}
			decimals := r.dep.tokenDecimals(m.Loan)
			if supplied, err := r.dep.Engine.ExpectedSupplyAssets(m.Params, addr, r.now); err == nil {
				rep.SupplyAssets = units(supplied, decimals)
			}
			if borrowed, err := r.dep.Engine.ExpectedBorrowAssets(m.Params, addr, r.now); err == nil {
				rep.BorrowAssets = units(borrowed, decimals)
			}
			if healthy, err := r.dep.Engine.IsHealthy(m.Params, addr, r.now); err == nil {
				rep.Healthy = &healthy
			}
			out = append(out, rep)
		}
	}
	return out
}
