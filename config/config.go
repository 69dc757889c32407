package config

import (
	"errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"sync"
	"time"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		viper.SetConfigName("config")
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")

		viper.AutomaticEnv()

		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("exchange_api_url", "EXCHANGE_API_URL")
		viper.BindEnv("exchange_api_key", "EXCHANGE_API_KEY")
		viper.BindEnv("exchange_api_timeout", "EXCHANGE_API_TIMEOUT")
		viper.BindEnv("symbols_refresh_interval", "SYMBOLS_REFRESH_INTERVAL")
		viper.BindEnv("commands", "BOT_COMMANDS")
		viper.BindEnv("workers", "BOT_WORKERS")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("debug", "DEBUG")
		// LANG is usually set by the system locale, so the bot reads its own variable.
		viper.BindEnv("lang", "BOT_LANG")

		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("exchange_api_url", "http://api.exchangerate.host")
		viper.SetDefault("exchange_api_timeout", 10*time.Second)
		viper.SetDefault("symbols_refresh_interval", time.Hour)
		viper.SetDefault("commands", []string{"/ex", "/ec"})
		viper.SetDefault("workers", 16)
		viper.SetDefault("db_path", "data/bot.db")
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")

		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				log.Errorf("could not read config file: %v", err)
			}
		}
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

func GetDuration(key string) time.Duration {
	InitConfig()
	return viper.GetDuration(key)
}

// GetStringSlice reads list values; from the environment they are space separated.
func GetStringSlice(key string) []string {
	InitConfig()
	return viper.GetStringSlice(key)
}
