// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// FeedbackDelivery はフィードバックの配信ポリシーを表す。
// persist: DBへの保存のみ / notify: Slack通知のみ / both: 保存と通知の両方。
type FeedbackDelivery string

const (
	DeliveryPersist FeedbackDelivery = "persist"
	DeliveryNotify  FeedbackDelivery = "notify"
	DeliveryBoth    FeedbackDelivery = "both"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// 各コンポーネントにはコンストラクタ経由で明示的に渡す。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth (Sign in with Vercel)
	VercelClientID     string
	VercelClientSecret string

	// Identity/Access Policy
	AllowedEmailDomain string // この接尾辞を持つEmailのみプライマリログインを許可

	// Session
	SessionMaxAge int // セッション有効期間（秒）

	// Feedback
	FeedbackDelivery FeedbackDelivery

	// Slack通知
	SlackBotToken string

	// 外部API呼び出し（トークン交換、ユーザー情報取得、Slack）のタイムアウト
	OutboundTimeout time.Duration

	// Rate Limit（req/min単位）
	RateLimitGeneral    int
	RateLimitSubmission int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.VercelClientID = os.Getenv("VERCEL_CLIENT_ID")
	if cfg.VercelClientID == "" {
		missing = append(missing, "VERCEL_CLIENT_ID")
	}

	cfg.VercelClientSecret = os.Getenv("VERCEL_CLIENT_SECRET")
	if cfg.VercelClientSecret == "" {
		missing = append(missing, "VERCEL_CLIENT_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AllowedEmailDomain = getEnvString("ALLOWED_EMAIL_DOMAIN", "@vercel.com")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 604800) // 7日
	cfg.SlackBotToken = getEnvString("SLACK_BOT_TOKEN", "")
	cfg.OutboundTimeout = getEnvDuration("OUTBOUND_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSubmission = getEnvInt("RATE_LIMIT_SUBMISSION", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	delivery := FeedbackDelivery(getEnvString("FEEDBACK_DELIVERY", string(DeliveryBoth)))
	switch delivery {
	case DeliveryPersist, DeliveryNotify, DeliveryBoth:
		cfg.FeedbackDelivery = delivery
	default:
		return nil, fmt.Errorf("invalid FEEDBACK_DELIVERY: %q (must be persist, notify or both)", delivery)
	}

	// 通知を行うポリシーではSlackトークンが必須
	if cfg.FeedbackDelivery != DeliveryPersist && cfg.SlackBotToken == "" {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN is required when FEEDBACK_DELIVERY is %q", cfg.FeedbackDelivery)
	}

	return cfg, nil
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

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
