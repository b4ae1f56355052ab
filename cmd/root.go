package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/candidate-screener/internal/filtering"
	"github.com/spigell/candidate-screener/internal/logger"
	"github.com/spigell/candidate-screener/internal/ruleset"
	"github.com/spigell/candidate-screener/internal/scoring"
	"github.com/spigell/candidate-screener/internal/secrets"
	"github.com/spigell/candidate-screener/internal/storage"
)

const (
	app       = "screener"
	envPrefix = "SCREENER"
)

type Config struct {
	Scoring scoring.Config   `mapstructure:"scoring"`
	Storage storage.Config   `mapstructure:"storage"`
	Filters filtering.Config `mapstructure:"filters"`
	Rules   RulesConfig      `mapstructure:"rules"`
	Metrics MetricsConfig    `mapstructure:"metrics"`
	AI      *AIConfig        `mapstructure:"ai"`
}

type RulesConfig struct {
	// Format of the stored rule set the score command uses.
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

type AIConfig struct {
	Provider      string        `mapstructure:"provider"`
	Instructions  string        `mapstructure:"instructions"`
	HistoryLength int           `mapstructure:"history-length"`
	Gemini        *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "screener scores candidate records against configurable rule sets",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("storage", "", "storage backend: file, memory, sqlite or redis")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("storage.type", rootCmd.PersistentFlags().Lookup("storage"))

	viper.SetDefault("scoring.mode", string(scoring.ModeManual))
	viper.SetDefault("storage.type", "file")
	viper.SetDefault("rules.format", string(ruleset.Simple))
	viper.SetDefault("ai.history-length", 20)
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config is fine: everything has defaults or env overrides.
	// An explicit file that cannot be read or parsed is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}

	return config, nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(logger.Config{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// openRepository opens the configured store and wraps it into a rule set repository.
// The returned store must be closed by the caller.
func openRepository(ctx context.Context, cfg storage.Config, logger *zap.Logger) (storage.Store, *ruleset.Repository, error) {
	password, err := secrets.Optional(secrets.Source{
		Name:  "redis password",
		Value: cfg.RedisPassword,
		File:  cfg.RedisPasswordFile,
		Env:   envPrefix + "_REDIS_PASSWORD",
	})
	if err != nil {
		return nil, nil, err
	}
	cfg.RedisPassword = password

	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %q storage: %w", cfg.Type, err)
	}

	logger.Debug("storage opened", zap.String("type", cfg.Type))
	return store, ruleset.NewRepository(store, logger), nil
}
