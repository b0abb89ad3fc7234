// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the omnisense CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/omnisense/internal/logging"
	"github.com/pdiddy/omnisense/internal/secrets"
	"github.com/pdiddy/omnisense/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the resolved configuration, set before any command runs.
	cfg types.Config

	// logger is built from cfg.Log in PersistentPreRunE.
	logger = zap.NewNop()
)

// rootCmd is the base command for the omnisense CLI.
var rootCmd = &cobra.Command{
	Use:   "omnisense",
	Short: "Research assistant for web pages and screenshots",
	Long: `omnisense sends a URL, a question, or a screenshot to Gemini and keeps
the reports it gets back. Reports mentioning a price drop or a new release
also raise an alert.

History and alerts are stored locally (files, SQLite, or Redis) and can be
browsed, filtered, compared, and exported. The serve command exposes the
same operations as a local JSON API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			c.Log.Level = lvl
		}

		l, err := logging.New(c.Log.Level, c.Log.Format)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		logger = l

		s, err := secrets.Load(secrets.DefaultDir, logger)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		c.Provider.APIKey = secrets.Resolve(s, secrets.GeminiAPIKey, c.Provider.APIKey)

		cfg = c
		if f := viper.ConfigFileUsed(); f != "" {
			logger.Debug("using config file", zap.String("path", f))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./omnisense.yaml or ~/.config/omnisense/omnisense.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("backend", "", "storage backend: file, sqlite, or redis")
	rootCmd.PersistentFlags().String("data-dir", "", "directory for the file and sqlite backends")

	viper.BindPFlag("storage.backend", rootCmd.PersistentFlags().Lookup("backend"))
	viper.BindPFlag("storage.data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("omnisense")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "omnisense"))
		}
	}

	viper.SetEnvPrefix("OMNISENSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.BindEnv("provider.api_key", "OMNISENSE_API_KEY", "GEMINI_API_KEY")

	setDefaults(viper.GetViper(), types.DefaultConfig())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "warning: reading config:", err)
		}
	}
}

// setDefaults registers every key so AutomaticEnv overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("provider.base_url", d.Provider.BaseURL)
	v.SetDefault("provider.fast_model", d.Provider.FastModel)
	v.SetDefault("provider.deep_model", d.Provider.DeepModel)
	v.SetDefault("provider.temperature", d.Provider.Temperature)
	v.SetDefault("provider.thinking_budget", d.Provider.ThinkingBudget)
	v.SetDefault("storage.backend", string(d.Storage.Backend))
	v.SetDefault("storage.data_dir", d.Storage.DataDir)
	v.SetDefault("storage.redis_addr", d.Storage.RedisAddr)
	v.SetDefault("storage.redis_prefix", d.Storage.RedisPrefix)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

func loadConfig() (types.Config, error) {
	return configFrom(viper.GetViper())
}

func configFrom(v *viper.Viper) (types.Config, error) {
	c := types.DefaultConfig()
	if err := v.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("parsing config: %w", err)
	}
	// BindEnv keys are not always visited by Unmarshal.
	if k := v.GetString("provider.api_key"); k != "" {
		c.Provider.APIKey = k
	}
	return c, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
