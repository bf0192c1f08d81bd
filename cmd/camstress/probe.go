package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"camstress/internal/classify"
	"camstress/internal/collector"
	"camstress/internal/coordinator"
	"camstress/internal/probe"
)

var (
	probeRequests int
	probeWorkers  int
	probeRPS      float64
)

var probeCmd = &cobra.Command{
	Use:   "probe <name>",
	Short: "Fire one ad-hoc burst at a single endpoint",
	Long: "Fire one ad-hoc burst at a single endpoint and print its summary.\n\n" +
		"Probes: health, status, config-get, config-post, stream-start, stream-stop, quick-photo, full-photo",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return exitWith(ExitError, err)
		}
		if probeRequests < 1 || probeWorkers < 1 {
			return exitWith(ExitError, fmt.Errorf("-n and -w must be >= 1"))
		}
		logger := newLogger()

		agg := collector.NewAggregator()
		client := probe.NewClient(cfg.BaseURL, cfg.Timeout, probeWorkers)
		client.Debug = debugLogger(logger)
		set, err := probe.NewSet(client, agg, classify.New(classify.Options{StrictBusy: cfg.StrictBusy}), cfg.ConfigPayload)
		if err != nil {
			return exitWith(ExitError, err)
		}
		fn, ok := set.Lookup(args[0])
		if !ok {
			return exitWith(ExitError, fmt.Errorf("unknown probe %q, want one of %v", args[0], set.Names()))
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		res, err := coordinator.NewCoordinator(agg, logger).RunBurst(ctx, coordinator.Descriptor{
			Label:    args[0],
			Probe:    fn,
			Requests: probeRequests,
			Workers:  probeWorkers,
			RPS:      probeRPS,
		})
		if err != nil {
			return exitWith(ExitError, err)
		}

		summary := agg.Summary()
		thresholds := cfg.Thresholds.Check(summary)
		if output == "json" {
			if err := collector.FormatJSON(os.Stdout, summary, thresholds); err != nil {
				return exitWith(ExitError, err)
			}
		} else {
			collector.FormatText(os.Stdout, summary, thresholds)
		}

		if ctx.Err() == nil && (res.Succeeded != res.Requests || !thresholds.Passed) {
			return exitWith(ExitFailed, nil)
		}
		return nil
	},
}

func init() {
	probeCmd.Flags().IntVarP(&probeRequests, "requests", "n", 10, "Number of requests in the burst")
	probeCmd.Flags().IntVarP(&probeWorkers, "workers", "w", 5, "Number of concurrent workers")
	probeCmd.Flags().Float64Var(&probeRPS, "rps", 0, "Cap on dispatch rate (0 = unlimited)")
	probeCmd.ValidArgs = []string{
		probe.NameHealth, probe.NameStatus, probe.NameConfigGet, probe.NameConfigPost,
		probe.NameStreamStart, probe.NameStreamStop, probe.NameQuickPhoto, probe.NameFullPhoto,
	}
	rootCmd.AddCommand(probeCmd)
}
