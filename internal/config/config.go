// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/miniblog/internal/auth"
)

const (
	DefaultServerPort        = "5000"
	DefaultMaxBodyBytes      = 5 << 20
	DefaultCORSAllowedOrigin = "*"
	DefaultLogLevel          = "info"
)

// Config はアプリケーション全体の設定を保持する。
// 起動時に1回だけ読み込み、以降は変更しない。
type Config struct {
	DatabaseURL string

	JWTSecret string
	TokenTTL  time.Duration

	BcryptCost        int
	AvatarURLTemplate string

	ServerPort        string
	MaxBodyBytes      int64
	CORSAllowedOrigin string

	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// DATABASE_URLとJWT_SECRETは必須で、不足しているものをまとめてエラーで返す。
// 任意項目は不正な値の場合デフォルト値を使う。
func Load() (*Config, error) {
	cfg := &Config{}
	required := []struct {
		key string
		dst *string
	}{
		{"DATABASE_URL", &cfg.DatabaseURL},
		{"JWT_SECRET", &cfg.JWTSecret},
	}

	var missing []string
	for _, r := range required {
		*r.dst = strings.TrimSpace(os.Getenv(r.key))
		if *r.dst == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.TokenTTL = envOr("TOKEN_TTL", auth.DefaultTokenTTL, time.ParseDuration)
	cfg.BcryptCost = envOr("BCRYPT_COST", auth.DefaultBcryptCost, parseBcryptCost)
	cfg.AvatarURLTemplate = envString("AVATAR_URL_TEMPLATE", auth.DefaultAvatarURLTemplate)
	if !auth.ValidAvatarTemplate(cfg.AvatarURLTemplate) {
		cfg.AvatarURLTemplate = auth.DefaultAvatarURLTemplate
	}
	cfg.ServerPort = envString("SERVER_PORT", DefaultServerPort)
	cfg.MaxBodyBytes = envOr("MAX_BODY_BYTES", int64(DefaultMaxBodyBytes), func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
	cfg.CORSAllowedOrigin = envString("CORS_ALLOWED_ORIGIN", DefaultCORSAllowedOrigin)
	cfg.LogLevel = envString("LOG_LEVEL", DefaultLogLevel)

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// envOr はkeyの値をparseで解釈する。未設定、解析失敗、0以下の場合はfallbackを返す。
func envOr[T int | int64 | time.Duration](key string, fallback T, parse func(string) (T, error)) T {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := parse(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseBcryptCost(s string) (int, error) {
	cost, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return 0, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return cost, nil
}
