package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/standardbeagle/mjbridge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the mjbridge config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Write a documented default config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GlobalConfigPath()
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("cannot determine config path, pass one explicitly")
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config (file, .env and environment merged)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), cfg.KDL())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

// loadConfig resolves the effective config: the file named by --config (or
// the global one), then .env, then MJBRIDGE_* variables.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	var err error
	if envFile != "" {
		err = config.LoadDotEnv(envFile)
	} else {
		err = config.LoadDotEnv()
	}
	if err != nil {
		return nil, err
	}

	var cfg *config.Config
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadConfigFile(path)
	} else {
		cfg, err = config.LoadGlobalConfig()
	}
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}
