package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "triway",
	Short: "Triway - 3-way match forensics for invoice factoring",
	Long: `Triway cross-checks the three documents of a factoring submission -
invoice, purchase order, and proof of delivery - against each other.

It extracts fields from positioned OCR output, normalizes OCR-damaged
values, and runs rule-based validation: quantities, authorized amounts,
date sequence, line-item arithmetic, and party names. Every reported
value carries a confidence score; low-confidence critical fields are
flagged for human review instead of silently trusted.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("triway v0.3.2")
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the slog logger the commands share. Verbose drops the
// level to debug; everything goes to stderr so stdout stays parseable.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
