// Package cmd provides the objdiff CLI: cobra commands wired on top of
// pkg/objdiffapi's Diff pipeline and pkg/object/loader's ELF/COFF
// reader. The cobra+viper wiring pattern (persistent flags registered in
// init(), config file/env load deferred to cobra.OnInitialize) is kept
// exactly as the teacher's cmd/root.go does it; only the command tree
// underneath changes to match this tool's domain.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/objdiffgo/objdiff/pkg/config"
	"github.com/objdiffgo/objdiff/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	logFile string

	logger    *slog.Logger
	logCloser func() error = func() error { return nil }
)

// RootCmd is the base command when objdiff is run with no subcommand.
var RootCmd = &cobra.Command{
	Use:   "objdiff",
	Short: "A multi-architecture object-file differ for decompilation workflows",
	Long: `objdiff compares two relocatable object files — one built by a reference
toolchain, one by a reimplementation — and reports exactly which
instructions or bytes differ, per function and per data symbol, driving
an iterative decompilation workflow.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logCloser()
	},
}

// Execute adds all child commands to RootCmd and runs it. Called once
// from main.main, same shape as the teacher's Execute().
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(diffCmd, dumpCmd, viewCmd, exploreCmd)
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	RootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON diagnostics to this file")
	config.Init(RootCmd, &cfgFile)
	cobra.OnInitialize(initLogging)
}

// initLogging mirrors the teacher's initConfig: deferred, run-once setup
// triggered by cobra after flags are parsed but before any command body
// runs.
func initLogging() {
	l, closer, err := logging.Init(verbose, logFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "objdiff: failed to initialize logging:", err)
		os.Exit(1)
	}
	logger = l
	logCloser = closer
}

// loadOptions reads the merged config (file + env + flags), the same
// call every subcommand needing a diff pipeline makes before touching
// pkg/objdiffapi.
func loadOptions() (config.Options, error) {
	return config.Load(cfgFile)
}
