package metrics

import (
	"sync"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"isoledger/core/events"
	"isoledger/native/lending"
)

var wad = decimal.New(1, 18)

// LendingMetrics tracks market totals and the flows reported by ledger and
// rate model events. Amounts are exported in raw token units.
type LendingMetrics struct {
	supplyAssets *prometheus.GaugeVec
	borrowAssets *prometheus.GaugeVec
	utilization  *prometheus.GaugeVec
	borrowRate   *prometheus.GaugeVec
	rateAtTarget *prometheus.GaugeVec
	interest     *prometheus.CounterVec
	liquidations *prometheus.CounterVec
	seized       *prometheus.CounterVec
	badDebt      *prometheus.CounterVec
	flashLoans   prometheus.Counter
}

var (
	lendingOnce     sync.Once
	lendingRegistry *LendingMetrics
)

// Lending returns the process-wide collectors registered with the default
// Prometheus registerer.
func Lending() *LendingMetrics {
	lendingOnce.Do(func() {
		lendingRegistry = NewLending(prometheus.DefaultRegisterer)
	})
	return lendingRegistry
}

// NewLending builds the collectors and registers them with reg.
func NewLending(reg prometheus.Registerer) *LendingMetrics {
	m := &LendingMetrics{
		supplyAssets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lending_total_supply_assets",
			Help: "Loan assets owed to suppliers, interest included.",
		}, []string{"market"}),
		borrowAssets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lending_total_borrow_assets",
			Help: "Loan assets owed by borrowers, interest included.",
		}, []string{"market"}),
		utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lending_utilization_ratio",
			Help: "Borrowed over supplied assets.",
		}, []string{"market"}),
		borrowRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lending_borrow_rate_per_second",
			Help: "Average borrow rate served on the last accrual.",
		}, []string{"market"}),
		rateAtTarget: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lending_rate_at_target_per_second",
			Help: "Rate at target stored by the adaptive rate model.",
		}, []string{"market"}),
		interest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lending_interest_accrued_total",
			Help: "Interest added to borrow and supply totals.",
		}, []string{"market"}),
		liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lending_liquidations_total",
			Help: "Count of liquidations segmented by whether bad debt was realised.",
		}, []string{"market", "bad_debt"}),
		seized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lending_seized_collateral_total",
			Help: "Collateral seized by liquidators.",
		}, []string{"market"}),
		badDebt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lending_bad_debt_total",
			Help: "Loan assets written off against suppliers.",
		}, []string{"market"}),
		flashLoans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lending_flash_loans_total",
			Help: "Count of flash loans served.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.supplyAssets,
			m.borrowAssets,
			m.utilization,
			m.borrowRate,
			m.rateAtTarget,
			m.interest,
			m.liquidations,
			m.seized,
			m.badDebt,
			m.flashLoans,
		)
	}
	return m
}

func toFloat(x *uint256.Int) float64 {
	if x == nil {
		return 0
	}
	return decimal.NewFromBigInt(x.ToBig(), 0).InexactFloat64()
}

func fromWad(x *uint256.Int) float64 {
	if x == nil {
		return 0
	}
	return decimal.NewFromBigInt(x.ToBig(), 0).Div(wad).InexactFloat64()
}

// ObserveMarket publishes the totals of a market.
func (m *LendingMetrics) ObserveMarket(id lending.MarketID, market lending.Market) {
	if m == nil {
		return
	}
	label := id.Hex()
	supply := toFloat(&market.TotalSupplyAssets)
	borrow := toFloat(&market.TotalBorrowAssets)
	m.supplyAssets.WithLabelValues(label).Set(supply)
	m.borrowAssets.WithLabelValues(label).Set(borrow)
	utilization := 0.0
	if supply > 0 {
		utilization = borrow / supply
	}
	m.utilization.WithLabelValues(label).Set(utilization)
}

// Emit implements events.Emitter.
func (m *LendingMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	switch e := evt.(type) {
	case events.LendingAccrueInterest:
		m.interest.WithLabelValues(e.MarketID).Add(toFloat(e.Interest))
		m.borrowRate.WithLabelValues(e.MarketID).Set(fromWad(e.PrevBorrowRate))
	case events.LendingLiquidate:
		badDebt := e.BadDebtAssets != nil && !e.BadDebtAssets.IsZero()
		flag := "false"
		if badDebt {
			flag = "true"
		}
		m.liquidations.WithLabelValues(e.MarketID, flag).Inc()
		m.seized.WithLabelValues(e.MarketID).Add(toFloat(e.SeizedAssets))
		if badDebt {
			m.badDebt.WithLabelValues(e.MarketID).Add(toFloat(e.BadDebtAssets))
		}
	case events.LendingFlashLoan:
		m.flashLoans.Inc()
	case events.IRMBorrowRateUpdate:
		m.rateAtTarget.WithLabelValues(e.MarketID).Set(fromWad(e.RateAtTarget))
	}
}
