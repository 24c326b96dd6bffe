// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the beaconloc CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// log is configured from --log-level before any command runs.
var log = logrus.New()

// rootCmd is the base command for the beaconloc CLI.
var rootCmd = &cobra.Command{
	Use:   "beaconloc",
	Short: "Position estimation and path-loss calibration from BLE RSSI",
	Long: `beaconloc estimates device positions from BLE signal-strength readings
and calibrates the log-distance path-loss parameters against surveyed
points.

locate runs one solver with fixed parameters. calibrate sweeps the
parameter grid for one solver. evaluate sweeps it for every solver and
stores the error, surface and best-parameter tables. synth writes
synthetic datasets, and results lists and exports stored runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = viper.GetString("log_level")
		}
		if level == "" {
			return nil
		}
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		log.SetLevel(lvl)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./beaconloc.yaml or ~/.config/beaconloc/beaconloc.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("beaconloc")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "beaconloc"))
		}
	}

	viper.SetEnvPrefix("BEACONLOC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
