// Package cli implements the pocgen command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultAPIURL = "http://127.0.0.1:7001"

// apiURL is the persistent flag used by every command that talks to a
// running controller.
var apiURL string

var (
	// Version is injected during build.
	Version = "dev"
	// Commit is injected during build.
	Commit = "none"
	// BuildDate is injected during build.
	BuildDate = "unknown"
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "pocgen",
	Short: "pocgen intercepts HTTP traffic and replays captured requests",
	Long: `pocgen runs a forward proxy that captures HTTP requests into a bounded
in-memory window and exposes them over a small control API for inspection,
raw extraction and verbatim replay against an arbitrary destination.

Point a browser or script at the proxy, then drive the captures with the
list, get and replay commands or with the HTTP API directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("POCGEN_API_URL", defaultAPIURL), "control API base URL")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
