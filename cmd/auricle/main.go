// Command auricle analyzes audio journal transcripts: it chunks each
// transcript, runs the configured NLP models over every chunk, enriches the
// chunks with astrological context, and writes one analysis document per
// recording.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Injected at build time via ldflags.
var version = "dev"

// defaultConfigPath is where commands look for the configuration when
// --config is not given.
const defaultConfigPath = "analysis.yaml"

func main() {
	os.Exit(run())
}

func run() int {
	// A .env file is optional; most setups configure through the YAML file.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitCode(err)
	}
	return 0
}

// ── Command tree ──────────────────────────────────────────────────────────────

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "auricle",
		Short:   "Analyze audio journal transcripts",
		Version: version,
		Long: `Auricle turns whisper-style transcript JSON files into analysis documents.

Each transcript is split into pause-delimited chunks, every chunk is run
through the configured NLP model sequence and astrological enrichment, and
the results are rolled up into one JSON document per recording. Documents
can additionally be archived into PostgreSQL for vector search.`,
		// Errors and usage are printed by run so exit codes stay in one place.
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newLabelsCmd())
	cmd.AddCommand(newConfigCmd())
	return cmd
}

// ── Exit codes ────────────────────────────────────────────────────────────────

// errConfig marks failures the operator fixes by editing configuration or
// invocation rather than by retrying: unreadable or invalid config files,
// missing assets, bad provider settings. They exit with the usage code.
var errConfig = errors.New("configuration error")

// cobra reports flag and argument mistakes as untyped errors, so usage
// problems are recognised by message. These substrings are stable across
// cobra releases.
var cobraUsagePatterns = []string{
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"unknown command",
	"flag needs an argument",
	"invalid argument",
	"accepts ",
}

// exitCode maps an error from the command tree to the process exit code:
// 0 for success, 2 for usage and configuration errors, 1 for everything
// else.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, errConfig) {
		return 2
	}
	msg := err.Error()
	for _, p := range cobraUsagePatterns {
		if strings.Contains(msg, p) {
			return 2
		}
	}
	return 1
}
