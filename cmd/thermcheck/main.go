package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "thermcheck",
		Short: "Check predicted temperatures of a command load against thermal limits",
		Long: `thermcheck predicts a load's temperatures with the thermal model service,
finds every interval where a limit is breached after the load starts, and
writes a report per check type. Runs of a check are chained so each load
starts from the previous load's final temperatures.`,
		SilenceUsage: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the thermcheck version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
)

// #region main

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to thermcheck.yaml (built-in dpa/cea checks when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	runCmd.Flags().StringSliceVar(&runChecks, "check", nil, "check types to run (default: all configured)")
	runCmd.Flags().StringVar(&runSchedule, "schedule", "", "path to the load schedule JSON")
	runCmd.Flags().StringVar(&runMode, "mode", "prediction", "prediction, validation or auto")
	runCmd.Flags().StringVar(&runOut, "out", "", "directory for <check>.json reports (stdout summary only when empty)")
	runCmd.Flags().StringVar(&runMetrics, "metrics-file", "", "write Prometheus metrics of this run to a textfile-collector file")
	_ = runCmd.MarkFlagRequired("schedule")

	rootCmd.AddCommand(runCmd, versionCmd)
}

// #endregion main
