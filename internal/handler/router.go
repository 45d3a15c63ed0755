package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kansou/internal/middleware"
)

// DBPinger はヘルスチェックで使用するDB疎通確認のインターフェース。
// *sql.DBが満たす。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder      middleware.SessionFinder
	CORSAllowedOrigin  string
	RateLimiter        *middleware.RateLimiter
	CSRFConfig         middleware.CSRFConfig
	HTTPStatusRecorder middleware.HTTPStatusRecorder // nil可
	Logger             *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthMetrics LoginMetricsRecorder // nil可
	AuthConfig  AuthHandlerConfig

	// アカウント
	AccountService AccountServiceInterface
	SlackDetector  SlackUserDetector // nil可

	// フィードバック
	FeedbackService FeedbackServiceInterface

	// 運用エンドポイント
	DB             DBPinger
	MetricsHandler http.Handler // nil可
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	SecurityHeaders → CORS → Metrics → Logging → Recovery
//
// OAuthフロー（/login-init等）はセッション検証チェーンの外に配置する。
// ページ遷移にはCookie存在ベースのルートガードのみを適用し、
// APIの認可はセッション検証ミドルウェアが担う。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewMetricsMiddleware(deps.HTTPStatusRecorder))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthMetrics, deps.AuthConfig)
	accountHandler := NewAccountHandler(deps.AccountService, deps.AuthService, deps.SlackDetector, deps.AuthConfig.BaseURL)
	feedbackHandler := NewFeedbackHandler(deps.FeedbackService)
	pageHandler := NewPageHandler()

	// --- 運用エンドポイント ---

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.DB != nil {
			if err := deps.DB.PingContext(req.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- OAuthフロー（セッション検証チェーンの外） ---

	r.Get("/login-init", authHandler.LoginInit)
	r.Get("/login-callback", authHandler.LoginCallback)
	r.Get("/submitter/login-init", authHandler.SubmitterLoginInit)
	r.Get("/submitter/callback", authHandler.SubmitterCallback)
	r.Get("/logout", authHandler.Logout)
	r.Post("/logout", authHandler.Logout)

	// --- ページ（Cookie存在ベースのルートガード） ---

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRouteGuardMiddleware())

		r.Get("/", pageHandler.Home)
		r.Get("/login", pageHandler.Login)
		r.Get("/dashboard", pageHandler.Dashboard)
		r.Get("/settings", pageHandler.Settings)
	})

	// 公開フィードバックフォーム（ガード対象外）
	r.Get("/feedback/{handle}", pageHandler.FeedbackForm)

	// --- 公開API（ログイン不要） ---

	// フィードバック投稿はIP単位のレート制限のみ適用する
	r.With(deps.RateLimiter.SubmissionMiddleware()).Post("/feedback", feedbackHandler.Submit)

	r.Get("/accounts/{handle}", accountHandler.GetPublicProfile)
	r.Get("/accounts/{handle}/qr", accountHandler.GetFeedbackQR)

	// whoamiのGETはハンドラー自身がセッションを解決し、未認証を401 {"account": null}で返す
	r.Get("/session/whoami", accountHandler.Whoami)

	r.Handle("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- セッション検証が必要なAPI ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get("/feedback", feedbackHandler.List)
		r.Patch("/session/whoami", accountHandler.UpdateWhoami)
		r.Post("/session/slack-detect", accountHandler.DetectSlackUser)
		r.Post("/session/manager-detect", accountHandler.DetectManager)
	})

	return r
}
