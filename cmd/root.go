package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Default values may be set at compile time.
	version          = "0.1.0"
	buildDate        = "2024-01-01T00:00+0000"
	stackDumpOnPanic bool
	configFile       string
)

var rootCmd = &cobra.Command{
	Use:   "pinetl",
	Short: "Load the weekly land title extract into the PIN database",
	Long: `pinetl loads the weekly land title registry extract into the PIN database.

Each run fetches the latest extract folder, joins titles, parcels and owners into
Active PIN records, cleans them with the published rules, loads them without
duplicating rows from earlier runs and expires the PINs of cancelled titles.
Every run is recorded in etl_log and a folder is only processed successfully once.

Flags may also be set with environment variables named PINETL_<FLAG_NAME>,
or in the YAML config file. Flags take priority over the environment, which takes
priority over the config file.`,
	SilenceUsage: true,
}

func init() {
	// General setup.
	cobra.EnableCommandSorting = false
	// Global flags.
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config `<file>` (default: ~/.pinetl/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&stackDumpOnPanic, "print-stack", false, "Print a stack dump if there is a panic")
	_ = rootCmd.PersistentFlags().MarkHidden("print-stack")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Execute() prints the error.
		os.Exit(1)
	}
}
