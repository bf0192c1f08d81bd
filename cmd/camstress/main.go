// Command camstress fires staged bursts of concurrent requests at a camera
// server and checks that its video stream survives them.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"camstress/internal/config"
	"camstress/internal/probe"
)

const (
	ExitSuccess = 0
	ExitFailed  = 1
	ExitError   = 2
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

var (
	configPath string
	baseURL    string
	timeout    time.Duration
	strictBusy bool
	output     string
	quiet      bool
	verbose    bool
	prettyLogs bool
)

var rootCmd = &cobra.Command{
	Use:           "camstress",
	Short:         "Concurrent stress tester for the camera HTTP server",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func newLogger() zerolog.Logger {
	var out io.Writer = os.Stderr
	if prettyLogs {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = baseURL
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("strict-busy") {
		cfg.StrictBusy = strictBusy
	}

	if output != "text" && output != "json" {
		return nil, fmt.Errorf("--output must be 'text' or 'json', got %q", output)
	}
	return cfg, cfg.Validate()
}

func debugLogger(log zerolog.Logger) *probe.DebugLogger {
	if !verbose {
		return nil
	}
	return probe.NewDebugLogger(log)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	flags.StringVar(&baseURL, "base-url", "http://localhost:8080", "Base URL of the camera server")
	flags.DurationVar(&timeout, "timeout", 10*time.Second, "Deadline for each request")
	flags.BoolVar(&strictBusy, "strict-busy", false, "Count 429 from capture endpoints as failures")
	flags.StringVarP(&output, "output", "o", "text", "Summary format: text, json")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Suppress stage lines and live progress")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log every request and response")
	flags.BoolVar(&prettyLogs, "pretty", false, "Use pretty console logging instead of structured JSON")
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		os.Exit(ExitSuccess)
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			logger := newLogger()
			logger.Error().Err(exit.err).Msg("camstress failed")
		}
		os.Exit(exit.code)
	}

	logger := newLogger()
	logger.Error().Err(err).Msg("invalid invocation")
	os.Exit(ExitError)
}
