// Command camsim serves a simulated camera server for rehearsing stress runs.
//
// Usage:
//
//	camsim [flags]
//
// Flags:
//
//	--addr                  Address to listen on (default: localhost:8080)
//	--capture-slots         Concurrent captures before answering 429 (default: 1, 0 = unlimited)
//	--capture-delay         Time each capture takes (default: 150ms)
//	--health-status         Status code returned by /health (default: 200)
//	--kill-stream-on-full   Stop the stream after every full-resolution capture
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"camstress/internal/camsim"
)

var (
	addr             string
	captureSlots     int
	captureDelay     time.Duration
	killStreamOnFull bool
	healthStatus     int
	prettyLogs       bool
)

var rootCmd = &cobra.Command{
	Use:          "camsim",
	Short:        "Simulated camera server",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		var out io.Writer = os.Stderr
		if prettyLogs {
			out = zerolog.ConsoleWriter{Out: os.Stderr}
		}
		logger := zerolog.New(out).With().Timestamp().Logger()

		sim := camsim.NewServer(camsim.Options{
			CaptureSlots:            captureSlots,
			CaptureDelay:            captureDelay,
			KillStreamOnFullCapture: killStreamOnFull,
		})
		if healthStatus != http.StatusOK {
			sim.SetHealthStatus(healthStatus)
		}

		srv := &http.Server{Addr: addr, Handler: sim.Handler(), ReadHeaderTimeout: 5 * time.Second}

		fmt.Println("camsim - simulated camera server")
		fmt.Println("================================")
		fmt.Printf("Listening on http://%s\n\n", addr)
		fmt.Println("Endpoints:")
		fmt.Println("  GET  /health          - Health check")
		fmt.Println("  GET  /status          - Camera and server status")
		fmt.Println("  GET  /stream/config   - Current stream config")
		fmt.Println("  POST /stream/config   - Replace stream config")
		fmt.Println("  POST /stream/start    - Start the stream")
		fmt.Println("  POST /stream/stop     - Stop the stream")
		fmt.Println("  POST /photo/quick     - Capture from the preview stream")
		fmt.Println("  POST /photo           - Full-resolution capture")
		fmt.Println()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&addr, "addr", "localhost:8080", "Address to listen on")
	flags.IntVar(&captureSlots, "capture-slots", 1, "Concurrent captures before answering 429 (0 = unlimited)")
	flags.DurationVar(&captureDelay, "capture-delay", 150*time.Millisecond, "Time each capture takes")
	flags.BoolVar(&killStreamOnFull, "kill-stream-on-full", false, "Stop the stream after every full-resolution capture")
	flags.IntVar(&healthStatus, "health-status", http.StatusOK, "Status code returned by /health")
	flags.BoolVar(&prettyLogs, "pretty", false, "Use pretty console logging instead of structured JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("camsim failed")
	}
}
