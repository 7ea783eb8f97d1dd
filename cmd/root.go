package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/ingredient-matcher/internal/catalog"
	"github.com/spigell/ingredient-matcher/internal/logger"
	"github.com/spigell/ingredient-matcher/internal/matcher"
	"github.com/spigell/ingredient-matcher/internal/normalizer"
)

const (
	app = "ingredient-matcher"
)

type Config struct {
	IngredientsFile string               `mapstructure:"ingredients-file"`
	Threshold       float64              `mapstructure:"threshold"`
	Normalization   *NormalizationConfig `mapstructure:"normalization"`
	Batch           *BatchConfig         `mapstructure:"batch"`
	Serve           *ServeConfig         `mapstructure:"serve"`
}

// NormalizationConfig overrides the built-in unit and stop-word tables.
// A list left out of the config keeps its default.
type NormalizationConfig struct {
	Units     []string `mapstructure:"units"`
	StopWords []string `mapstructure:"stop-words"`
}

type BatchConfig struct {
	SupplierFile string `mapstructure:"supplier-file"`
	OutputFile   string `mapstructure:"output-file"`
	Workers      int    `mapstructure:"workers"`
}

type ServeConfig struct {
	Address        string        `mapstructure:"address"`
	TokenFile      string        `mapstructure:"token-file"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	Watch          bool          `mapstructure:"watch"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "ingredient-matcher maps free-text supplier item names to canonical ingredients",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ingredients-file", "INGREDIENT_MATCHER_INGREDIENTS_FILE"); err != nil {
		log.Fatalf("binding INGREDIENT_MATCHER_INGREDIENTS_FILE environment variable: %v", err)
	}

	viper.SetDefault("ingredients-file", "data/ingredients_master.csv")
	viper.SetDefault("threshold", matcher.DefaultThreshold)
	viper.SetDefault("batch.supplier-file", "data/supplier_items.csv")
	viper.SetDefault("batch.output-file", "matches.csv")
	viper.SetDefault("serve.address", ":8000")
	viper.SetDefault("serve.request-timeout", 5*time.Second)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is ingredient-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("ingredients-file", "i", "", "canonical ingredients table (ingredient_id,name)")
	rootCmd.PersistentFlags().Float64P("threshold", "t", matcher.DefaultThreshold, "minimum fuzzy score (0-100) accepted as a match")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("ingredients-file", rootCmd.PersistentFlags().Lookup("ingredients-file"))
	viper.BindPFlag("threshold", rootCmd.PersistentFlags().Lookup("threshold"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless given explicitly.
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
	if config.Batch == nil {
		config.Batch = &BatchConfig{}
	}
	if config.Serve == nil {
		config.Serve = &ServeConfig{}
	}

	return config, nil
}

// setup builds the logger and config shared by all matching commands.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config.Threshold < 0 || config.Threshold > 100 {
		logger.Fatal("threshold must be within 0-100", zap.Float64("threshold", config.Threshold))
	}

	logger.Debug("starting with config",
		zap.String("ingredients_file", config.IngredientsFile),
		zap.Float64("threshold", config.Threshold),
		zap.String("config_file", viper.ConfigFileUsed()),
	)

	return logger, config
}

// openStore loads the canonical set. Nothing can be matched without it.
func openStore(config *Config, logger *zap.Logger) *catalog.Store {
	store, err := catalog.Open(config.IngredientsFile, newNormalizer(config), logger)
	if err != nil {
		logger.Fatal("loading canonical ingredients",
			zap.Error(err),
			zap.String("hint", "set --ingredients-file, INGREDIENT_MATCHER_INGREDIENTS_FILE or the 'ingredients-file' key in the configuration file"),
		)
	}

	return store
}

func newNormalizer(config *Config) *normalizer.Normalizer {
	policy := normalizer.DefaultPolicy()
	if config.Normalization != nil {
		if config.Normalization.Units != nil {
			policy.Units = config.Normalization.Units
		}
		if config.Normalization.StopWords != nil {
			policy.StopWords = config.Normalization.StopWords
		}
	}

	return normalizer.New(policy)
}
