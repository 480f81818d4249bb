package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"isoledger/cmd/internal/signerkey"
	"isoledger/cmd/internal/sim"
	"isoledger/config"
	"isoledger/core/events"
	"isoledger/observability"
	"isoledger/observability/logging"
	"isoledger/observability/metrics"
)

const signerKeyEnv = "ISOLEDGER_SIGNER_KEY"

func main() {
	configPath := flag.String("config", "./deployment.toml", "Path to the ledger deployment file")
	scenarioPath := flag.String("scenario", "", "Path to the YAML scenario to run")
	reportPath := flag.String("report", "", "Write the JSON report here instead of stdout")
	signerKeyPath := flag.String("signer-key", "", "File holding the hex key of the signer account (overridden by "+signerKeyEnv+")")
	start := flag.Uint64("start", uint64(time.Now().Unix()), "Unix time the markets are created at")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var logger *slog.Logger
	if cfg.Logging.File != "" {
		var closer io.Closer
		logger, closer = logging.SetupWithFile(cfg.Service, cfg.Environment, logging.FileOptions{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		})
		defer closer.Close()
	} else {
		logger = logging.Setup(cfg.Service, cfg.Environment)
	}

	if err := run(cfg, logger, *scenarioPath, *reportPath, *signerKeyPath, *start); err != nil {
		logger.Error("simulation failed", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "simulation failed: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, scenarioPath, reportPath, signerKeyPath string, start uint64) error {
	scenario, err := sim.LoadScenario(scenarioPath)
	if err != nil {
		return err
	}

	emitter := events.Fanout{
		logging.NewEventLogger(logger),
		observability.Events(),
		metrics.Lending(),
	}
	dep, err := sim.Deploy(cfg, emitter, start)
	if err != nil {
		return fmt.Errorf("deploy: %w", err)
	}

	opts := []sim.Option{
		sim.WithLogger(logger),
		sim.WithRunID(uuid.NewString()),
	}
	if scenario.NeedsSigner() {
		key, err := signerkey.NewSource(signerKeyEnv, signerKeyPath).Get()
		if err != nil {
			return err
		}
		opts = append(opts, sim.WithSigner(key))
	}
	runner, err := sim.NewRunner(dep, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	report, runErr := runner.Run(ctx, scenario)
	if report != nil {
		if err := writeReport(reportPath, report); err != nil {
			return err
		}
	}
	if errors.Is(runErr, sim.ErrUnexpectedOutcome) {
		logger.Warn("scenario diverged from its expectations", slog.Int("failures", report.Failures))
	}
	return runErr
}

func writeReport(path string, report *sim.Report) error {
	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if path == "" {
		fmt.Println(string(output))
		return nil
	}
	return os.WriteFile(path, append(output, '\n'), 0o644)
}
