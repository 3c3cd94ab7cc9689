// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the mardi-importer CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mardi4nfdi/importer/internal/logging"
	"github.com/mardi4nfdi/importer/internal/secrets"
	"github.com/mardi4nfdi/importer/internal/telemetry"
	"github.com/mardi4nfdi/importer/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the configuration assembled from defaults, the config file,
	// MARDI_IMPORTER_* variables and .secrets/.
	cfg types.Config

	logger            = zap.NewNop()
	shutdownTelemetry telemetry.ShutdownFunc
)

// rootCmd is the base command for the mardi-importer CLI.
var rootCmd = &cobra.Command{
	Use:   "mardi-importer",
	Short: "Mirror Wikidata entities into a local knowledge graph",
	Long: `mardi-importer copies items and properties from Wikidata into a local
knowledge graph. Referenced entities are imported first, so every statement
points at a local record, and a mapping store remembers which foreign id
became which local id.

Subcommands import, update and overwrite entities, inspect the mapping and
the local store, and cluster contributor mentions into people.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		_ = logger.Sync()
		if shutdownTelemetry != nil {
			return shutdownTelemetry(context.Background())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./mardi-importer.yaml or ~/.config/mardi-importer/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of secret files")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Ignoring .env:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mardi-importer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mardi-importer"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("MARDI_IMPORTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so that environment
// variables can override keys absent from the config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("importer.remote_api_url", "https://www.wikidata.org/w/api.php")
	v.SetDefault("importer.remote_concept_prefix", "www.wikidata.org/")
	v.SetDefault("importer.local_concept_base", "")
	v.SetDefault("importer.languages", []string{"en", "de"})
	v.SetDefault("importer.excluded_properties", []string{})
	v.SetDefault("importer.excluded_kinds", types.DefaultExcludedKinds)
	v.SetDefault("importer.timeout", "30s")
	v.SetDefault("importer.user_agent", "")
	v.SetDefault("importer.max_retries", 5)

	v.SetDefault("mapping.driver", "sqlite3")
	v.SetDefault("mapping.dsn", "")

	v.SetDefault("local_store.dir", "graph")
	v.SetDefault("local_store.max_results", 20)

	v.SetDefault("identity.language", "en")
	v.SetDefault("identity.description", "researcher")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.production", false)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "mardi-importer")
}

// setup loads configuration and secrets and installs logging and
// telemetry before any subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	var c types.Config
	if err := viper.Unmarshal(&c); err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}

	l, err := logging.New(c.Log.Level, c.Log.Production)
	if err != nil {
		return err
	}
	logger = l

	dir, _ := cmd.Flags().GetString("secrets-dir")
	s, err := secrets.Load(dir, logger)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", s.Keys())
	}
	s.Apply(&c)

	if c.Mapping.DSN == "" && (c.Mapping.Driver == "" || c.Mapping.Driver == "sqlite3") {
		c.Mapping.DSN = filepath.Join(c.LocalStore.Dir, "index", "mapping.db")
	}
	cfg = c

	shutdownTelemetry, err = telemetry.Init(cmd.Context(), cfg.Telemetry, version, os.Stderr)
	if err != nil {
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
