package main

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/edgehive/provisiond/internal/api/http"
	"github.com/edgehive/provisiond/internal/auth"
	"github.com/edgehive/provisiond/internal/db"
)

type Config struct {
	Log       LogConfig
	Http      http.Config
	Database  db.Config
	Auth      auth.Config
	Provision ProvisionConfig
}

type ProvisionConfig struct {
	// KeyCacheTTL bounds how stale a cached provision-key lookup may be.
	// Small by default so admin-side profile changes converge quickly.
	KeyCacheTTL time.Duration `mapstructure:"key_cache_ttl"`
}

var config Config

func InitConfig() {
	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/provisiond")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("provision.key_cache_ttl", 30*time.Second)
	viper.SetDefault("auth.token_ttl", 12*time.Hour)
	viper.SetDefault("database.max_conns", 10)

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}
	if err := viper.Unmarshal(&config); err != nil {
		panic(err)
	}

	initLogger(config.Log.Level)
}
