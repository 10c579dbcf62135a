// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/todoman/internal/logger"
)

// 実行環境
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Environment
	AppEnv string

	// Database
	DatabaseURL string
	AutoMigrate bool

	// Token
	TokenSecret string
	BcryptCost  int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel slog.Level
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、不足しているものをまとめてエラーとして返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.AppEnv = getEnvString("APP_ENV", EnvDevelopment)
	switch cfg.AppEnv {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		return nil, fmt.Errorf("invalid APP_ENV: %q (must be one of %s, %s, %s)",
			cfg.AppEnv, EnvDevelopment, EnvTest, EnvProduction)
	}

	// Required fields
	var missing []string

	cfg.DatabaseURL = databaseURLFor(cfg.AppEnv)
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.TokenSecret = getEnvString("TOKEN_SECRET", os.Getenv("SECRET_KEY"))
	if cfg.TokenSecret == "" {
		missing = append(missing, "TOKEN_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AutoMigrate = getEnvBool("AUTO_MIGRATE", false)
	cfg.ServerPort = getEnvString("SERVER_PORT", getEnvString("PORT", "8080"))
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")
	cfg.LogLevel = logger.ParseLevel(os.Getenv("LOG_LEVEL"))

	cfg.BcryptCost = getEnvInt("BCRYPT_COST", bcrypt.DefaultCost)
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %d (must be between %d and %d)",
			cfg.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	return cfg, nil
}

// databaseURLFor は実行環境に応じた接続先を返す。
// DATABASE_URLが優先され、未設定の場合はdevelopmentではDEV_DATABASE_URL、
// testではTEST_DATABASE_URLを使う。productionはDATABASE_URLのみ。
func databaseURLFor(appEnv string) string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	switch appEnv {
	case EnvDevelopment:
		return os.Getenv("DEV_DATABASE_URL")
	case EnvTest:
		return os.Getenv("TEST_DATABASE_URL")
	default:
		return ""
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
