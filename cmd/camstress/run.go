package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"camstress/internal/collector"
	"camstress/internal/progress"
	"camstress/internal/scenario"
	"camstress/internal/telemetry"
)

var metricsOut string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full staged stress scenario",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return exitWith(ExitError, err)
		}
		logger := newLogger()

		agg := collector.NewAggregator()
		prog := progress.NewProgress(agg, quiet)

		opts := scenario.Options{
			Logger:     logger,
			Printer:    prog,
			Aggregator: agg,
			Debug:      debugLogger(logger),
		}
		var exporter *telemetry.Exporter
		if metricsOut != "" {
			exporter = telemetry.NewExporter()
			opts.Recorder = exporter
		}

		orch, err := scenario.New(cfg, opts)
		if err != nil {
			return exitWith(ExitError, err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			if !quiet && errors.Is(ctx.Err(), context.Canceled) {
				fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, finishing in-flight requests...")
			}
		}()

		prog.Start()
		report, runErr := orch.Run(ctx)
		prog.Stop()

		if output == "json" {
			if err := scenario.WriteJSON(os.Stdout, report); err != nil {
				return exitWith(ExitError, err)
			}
		} else {
			collector.FormatText(os.Stdout, report.Summary, report.Thresholds)
		}

		if exporter != nil {
			if err := exporter.WriteFile(metricsOut); err != nil {
				logger.Error().Err(err).Str("path", metricsOut).Msg("writing metrics failed")
			}
		}

		return runExit(report, runErr)
	},
}

// runExit maps a scenario outcome to the process exit code.
func runExit(report *scenario.Report, err error) error {
	switch {
	case err != nil:
		return exitWith(ExitFailed, err)
	case report.Interrupted:
		return nil
	case !report.Passed:
		return exitWith(ExitFailed, nil)
	default:
		return nil
	}
}

func init() {
	runCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write Prometheus text metrics to this file after the run")
	rootCmd.AddCommand(runCmd)
}
