// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the repopipe CLI. repopipe moves a
// CSV file from one GitHub repository to another as JSON: one read, one
// row-to-record transform, one guarded write.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meshintel/repopipe/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the repopipe CLI.
var rootCmd = &cobra.Command{
	Use:   "repopipe",
	Short: "Copy a CSV file between GitHub repositories as JSON",
	Long: `repopipe reads a CSV file from a source GitHub repository through the
Contents API, converts its rows to a JSON array of records, and writes the
JSON to a destination repository. Updates carry the destination file's blob
SHA so a concurrent change surfaces as a conflict instead of being
overwritten.

The pipeline stages are also exposed individually: transform converts a
local CSV file without touching the network, and history lists past runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./repopipe.yaml or ~/.config/repopipe/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("repopipe")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "repopipe"))
		}
	}

	viper.SetEnvPrefix("REPOPIPE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
