package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	appName    = "mjbridge"
	appVersion = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Bridge a mahjong engine to an external agent process",
	Long: `mjbridge runs an agent executable as a child process and speaks a
line based text protocol with it over stdin/stdout:
  - engine events (draw, wait) are written to the agent
  - agent lines are answered as state queries or applied as actions

Use 'mjbridge probe' to exercise an agent against a scripted round.`,
	Version:       appVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", appName, appVersion)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default $XDG_CONFIG_HOME/mjbridge/config.kdl)")
	rootCmd.PersistentFlags().String("env-file", "", "Load environment variables from this file (default .env)")

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.SetVersionTemplate(fmt.Sprintf("%s v%s\n", appName, appVersion))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
