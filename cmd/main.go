package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"metarisk/config"
	"metarisk/diag"
	"metarisk/hasher"
	"metarisk/history"
	"metarisk/logger"
	"metarisk/output"
	"metarisk/risk"
	"metarisk/scanner"
	"metarisk/systeminfo"
	"metarisk/tracing"
)

func main() {
	if err := tracing.Start(os.Getenv("METARISK_TRACE_FILE")); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start trace: %v\n", err)
	} else {
		defer tracing.Stop()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	if cfg.TraceFlight {
		if err := tracing.StartFlightRecorder(cfg.TraceFlightMaxBytes, cfg.TraceFlightMinAge); err != nil {
			logger.Warnf("Failed to start flight recorder: %v", err)
		} else {
			defer func() {
				if err := tracing.WriteFlightRecorder(cfg.TraceFlightFile); err != nil {
					logger.Warnf("Failed to write flight recorder: %v", err)
				}
				tracing.StopFlightRecorder()
			}()
		}
	}

	analyzer, err := risk.New(risk.WithCustomRules(cfg.CustomRules))
	if err != nil {
		logger.Fatalf("Invalid custom rules: %v", err)
	}

	var opts []scanner.Option
	if cfg.HistoryDir != "" {
		store, err := history.Open(cfg.HistoryDir)
		if err != nil {
			logger.Fatalf("Failed to open history: %v", err)
		}
		defer store.Close()
		if cfg.HistoryRecent > 0 {
			if err := showRecent(os.Stdout, store, cfg.HistoryRecent); err != nil {
				logger.Errorf("Failed to list history: %v", err)
			}
			return
		}
		opts = append(opts, scanner.WithHistory(store))
	}
	if cfg.KnownHashesFile != "" {
		known, err := hasher.LoadKnownSet(cfg.KnownHashesFile)
		if err != nil {
			logger.Fatalf("Failed to load known hashes: %v", err)
		}
		logger.Infof("Loaded %d known digests", known.Len())
		opts = append(opts, scanner.WithKnownSet(known))
	}

	metrics := output.Metrics{
		StartTime: time.Now().Format(time.RFC3339),
	}

	sysInfo, err := systeminfo.GetSystemInfo(cfg)
	if err != nil {
		logger.Errorf("Failed to gather system information: %v", err)
	}

	writer, err := output.New(cfg, sysInfo, &metrics)
	if err != nil {
		logger.Fatalf("Failed to initialize output: %v", err)
	}
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go handleSignalEvent(cancel, sigChan)

	watchdog := diag.NewWatchdog(diag.Options{
		StallThreshold: cfg.DiagSlowScanThreshold,
		Dir:            cfg.DiagDir,
		GoroutineDump:  cfg.DiagGoroutineLeak,
		FilesDone:      func() int64 { return int64(writer.FilesScanned()) },
		DumpTrace:      flightDumper(cfg.TraceFlight),
	})
	watchdog.Start(ctx)
	defer watchdog.Close()

	var summary *risk.BatchSummary
	if cfg.InputFile != "" {
		summary, err = scanner.AnalyzeEntries(ctx, cfg.InputFile, analyzer, &metrics, writer)
	} else {
		summary, err = scanner.ScanFiles(ctx, cfg, analyzer, &metrics, writer, opts...)
	}
	switch {
	case errors.Is(err, context.Canceled):
		logger.Warn("Analysis interrupted; writing partial report.")
	case err != nil:
		logger.Fatalf("Analysis failed: %v", err)
	}

	writer.SetSummary(summary)
	metrics.EndTime = time.Now().Format(time.RFC3339)
	metrics.FilesScanned = writer.FilesScanned()
	metrics.FilesProcessed = writer.FilesProcessed()
	writer.SetMetrics(metrics)

	if summary != nil {
		logger.Infof("Analyzed %d files: %d high, %d medium, %d low risk. Report: %s",
			summary.TotalFiles,
			summary.RiskCounts[risk.LevelHigh],
			summary.RiskCounts[risk.LevelMedium],
			summary.RiskCounts[risk.LevelLow],
			writer.Name())
	}
}

// handleSignalEvent cancels the analysis on the first signal. Workers finish
// the file they hold and main still writes the partial report.
func handleSignalEvent(cancelFunc context.CancelFunc, sigChan <-chan os.Signal) {
	if _, ok := <-sigChan; !ok {
		return
	}
	logger.Info("Interrupt signal received. Shutting down...")
	cancelFunc()
}

// showRecent lists the newest stored assessments instead of running an
// analysis.
func showRecent(w io.Writer, store *history.Store, limit int) error {
	entries, err := store.Recent(limit)
	if err != nil {
		return err
	}
	return output.WriteRecent(w, entries)
}

func flightDumper(enabled bool) func(path string) error {
	if !enabled {
		return nil
	}
	return tracing.WriteFlightRecorder
}
