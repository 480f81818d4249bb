package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"isoledger/cmd/internal/sim"
	"isoledger/config"
	"isoledger/core/events"
	"isoledger/native/lending"
)

type marketAudit struct {
	Name                 string `json:"name"`
	ID                   string `json:"id"`
	LoanToken            string `json:"loanToken"`
	CollateralToken      string `json:"collateralToken"`
	Oracle               string `json:"oracle"`
	IRM                  string `json:"irm"`
	LLTV                 string `json:"lltv"`
	LiquidationIncentive string `json:"liquidationIncentive"`
	Fee                  string `json:"fee"`
}

type auditReport struct {
	Ledger       string        `json:"ledger"`
	Owner        string        `json:"owner"`
	FeeRecipient string        `json:"feeRecipient"`
	Markets      []marketAudit `json:"markets"`
}

func main() {
	configPath := flag.String("config", "./deployment.toml", "Path to the ledger deployment file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	dep, err := sim.Deploy(cfg, events.NoopEmitter{}, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to deploy markets: %v\n", err)
		os.Exit(1)
	}

	report := auditReport{
		Ledger:       dep.Ledger.String(),
		Owner:        dep.Owner.String(),
		FeeRecipient: dep.Engine.FeeRecipient().String(),
	}
	for _, m := range dep.Markets {
		market, _ := dep.Engine.Market(m.ID)
		report.Markets = append(report.Markets, marketAudit{
			Name:                 m.Name,
			ID:                   m.ID.Hex(),
			LoanToken:            m.Params.LoanToken.String(),
			CollateralToken:      m.Params.CollateralToken.String(),
			Oracle:               m.Params.Oracle.String(),
			IRM:                  m.Params.IRM.String(),
			LLTV:                 config.FormatWad(&m.Params.LLTV),
			LiquidationIncentive: config.FormatWad(lending.LiquidationIncentiveFactor(&m.Params.LLTV)),
			Fee:                  config.FormatWad(&market.Fee),
		})
	}

	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(output))
}
