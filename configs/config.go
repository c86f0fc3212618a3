package configs

import (
	"errors"
	"time"

	"github.com/dominousfamous/stock-sim-website/internal/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	JWT struct {
		SECRET string `mapstructure:"secret"`
	} `mapstructure:"jwt"`
	Quote struct {
		APIKey  string        `mapstructure:"api_key"`
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"quote"`
	Registration struct {
		DefaultCash string `mapstructure:"default_cash"`
	} `mapstructure:"registration"`
}

var AppConfig Config

func LoadConfig() {
	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.BindEnv("quote.api_key", "API_KEY")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("quote.base_url", "https://cloud.iexapis.com")
	viper.SetDefault("quote.timeout", 5*time.Second)
	viper.SetDefault("registration.default_cash", "10000.00")

	var fileLookupError viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil {
		if errors.As(err, &fileLookupError) {
			logger.Log.Fatal("config file not found", zap.Error(err))
		}
		logger.Log.Fatal("failed to read config", zap.Error(err))
	}

	viper.Unmarshal(&AppConfig)

	// The quote service is unusable without a credential, so refuse to start.
	if AppConfig.Quote.APIKey == "" {
		logger.Log.Fatal("quote API key not set (API_KEY)")
	}
}
