package configs

import (
	"errors"

	"github.com/spf13/viper"
	"github.com/stanmart1/rest-empire-sub000/internal/logger"
	"go.uber.org/zap"
)

type Config struct {
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	JWT struct {
		SECRET string `mapstructure:"secret"`
	} `mapstructure:"jwt"`
	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`
	Commission struct {
		// Per-level unilevel percentages, level 1 first, at most 15 entries.
		LevelPercents []float64 `mapstructure:"level-percents"`
		// Infinity bonus past level 15; 0 disables it.
		InfinityPercent      float64 `mapstructure:"infinity-percent"`
		InfinityMinRankLevel int     `mapstructure:"infinity-min-rank-level"`
	} `mapstructure:"commission"`
	Payout struct {
		FeePercent          float64            `mapstructure:"fee-percent"`
		Minimums            map[string]float64 `mapstructure:"minimums"`
		DailyLimitNGN       float64            `mapstructure:"daily-limit-ngn"`
		WeeklyLimitNGN      float64            `mapstructure:"weekly-limit-ngn"`
		MonthlyLimitNGN     float64            `mapstructure:"monthly-limit-ngn"`
		RequireVerification bool               `mapstructure:"require-verification"`
	} `mapstructure:"payout"`
}

var AppConfig Config

func LoadConfig() {
	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("http.addr", ":8080")
	viper.SetDefault("payout.fee-percent", 2.0)

	viper.AutomaticEnv()

	var fileLookupError viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil {
		if errors.As(err, &fileLookupError) {
			logger.Log.Fatal("config file not found", zap.Error(err))
		}
		logger.Log.Fatal("failed to read config", zap.Error(err))
	}

	viper.Unmarshal(&AppConfig)
}
