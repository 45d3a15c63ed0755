// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/kansou/internal/auth"
	"github.com/hitoshi/kansou/internal/model"
)

// sessionCookieName はセッションIDを保持するHTTP Only Cookieの名前。
// middleware.SessionCookieNameと同じ値を指す。
const sessionCookieName = "session_id"

// submitterInfoCookie は送信者識別結果を保持するCookieの名前。
// フロントエンドのフォームがJavaScriptで読み取るため、HttpOnlyではない。
const submitterInfoCookie = "submitter_info"

// submitterInfoMaxAge はsubmitter_info Cookieの有効期間（30分）。
const submitterInfoMaxAge = 1800

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	AuthorizeURL(state, challenge, redirectURI string) string
	HandleLoginCallback(ctx context.Context, code, verifier, redirectURI string) (*model.Session, error)
	HandleSubmitterCallback(ctx context.Context, code, verifier, redirectURI string) (*model.SubmitterIdentity, error)
	Logout(ctx context.Context, sessionID string) error
	CurrentAccount(ctx context.Context, sessionID string) (*model.Account, error)
}

// LoginMetricsRecorder はログイン関連メトリクスの記録インターフェース。
type LoginMetricsRecorder interface {
	RecordLoginOutcome(outcome string)
	RecordOAuthExchangeLatency(duration time.Duration)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
// プライマリログインと送信者識別の2つのフローを扱う。
type AuthHandler struct {
	service AuthServiceInterface
	metrics LoginMetricsRecorder
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。metricsはnilでもよい。
func NewAuthHandler(service AuthServiceInterface, metrics LoginMetricsRecorder, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: metrics,
		config:  config,
	}
}

// LoginInit はプライマリログインのOAuthフローを開始する。
// GET /login-init
// PKCEペアとstateを生成し、pending状態をCookieに預けて認可エンドポイントへ
// リダイレクトする。進行中のログイン試行があれば黙って上書きされる。
func (h *AuthHandler) LoginInit(w http.ResponseWriter, r *http.Request) {
	pending, challenge, err := h.newPending(auth.PurposeLogin, "")
	if err != nil {
		slog.Error("failed to start login flow", slog.String("error", err.Error()))
		http.Redirect(w, r, "/login?error=server_error", http.StatusFound)
		return
	}

	auth.WritePending(w, pending, h.cookieConfig())

	authorizeURL := h.service.AuthorizeURL(pending.State, challenge, h.loginRedirectURI())
	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// LoginCallback はプライマリログインのコールバックを処理する。
// GET /login-callback?code=xxx&state=yyy
//
// 失敗はすべて /login?error=<reason> への302に集約される。
// pending Cookieは結果にかかわらずワンタイム消費される。
func (h *AuthHandler) LoginCallback(w http.ResponseWriter, r *http.Request) {
	pending := auth.ReadAndClearPending(w, r, auth.PurposeLogin, h.cookieConfig())

	reason, session := h.resolveLoginCallback(r, pending)
	if reason != "" {
		h.recordLogin(reason)
		http.Redirect(w, r, "/login?error="+reason, http.StatusFound)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	h.recordLogin("success")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// SubmitterLoginInit は送信者識別のOAuthフローを開始する。
// GET /submitter/login-init?returnTo=/feedback/alice
func (h *AuthHandler) SubmitterLoginInit(w http.ResponseWriter, r *http.Request) {
	returnTo := auth.SanitizeReturnTo(r.URL.Query().Get("returnTo"))

	pending, challenge, err := h.newPending(auth.PurposeSubmitter, returnTo)
	if err != nil {
		slog.Error("failed to start submitter flow", slog.String("error", err.Error()))
		http.Redirect(w, r, returnTo, http.StatusFound)
		return
	}

	auth.WritePending(w, pending, h.cookieConfig())

	authorizeURL := h.service.AuthorizeURL(pending.State, challenge, h.submitterRedirectURI())
	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// SubmitterCallback は送信者識別のコールバックを処理する。
// GET /submitter/callback?code=xxx&state=yyy
//
// 成否にかかわらずreturnToへ302する。ログインと違い、失敗しても
// フィードバック投稿自体は匿名で続行できるため、エラーページには飛ばさない。
// 成功時のみ、フォームが読み取るsubmitter_info Cookieを設定する。
func (h *AuthHandler) SubmitterCallback(w http.ResponseWriter, r *http.Request) {
	pending := auth.ReadAndClearPending(w, r, auth.PurposeSubmitter, h.cookieConfig())

	returnTo := pending.ReturnTo
	if returnTo == "" {
		returnTo = "/"
	}

	identity := h.resolveSubmitterCallback(r, pending)
	if identity != nil {
		if payload, err := json.Marshal(identity); err == nil {
			http.SetCookie(w, &http.Cookie{
				Name:     submitterInfoCookie,
				Value:    url.QueryEscape(string(payload)),
				Path:     "/",
				Domain:   h.config.CookieDomain,
				MaxAge:   submitterInfoMaxAge,
				HttpOnly: false, // フォームがJavaScriptで読み取る
				Secure:   h.config.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}
	}

	http.Redirect(w, r, returnTo, http.StatusFound)
}

// Logout はセッションを破棄してトップページへ戻す。
// GET|POST /logout
// DB削除が失敗してもCookieは必ずクリアする。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusFound)
}

// resolveLoginCallback はログインコールバックの検証と交換を行い、
// 失敗理由コードまたはセッションを返す。
func (h *AuthHandler) resolveLoginCallback(r *http.Request, pending *auth.PendingAuthorization) (string, *model.Session) {
	// IdPがエラーを返した場合（ユーザーの同意拒否など）
	if r.URL.Query().Get("error") != "" {
		return "oauth_error", nil
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		return "oauth_error", nil
	}

	// state検証: 完全一致のみ許可。Cookie欠落時はpending.Stateが空になり、
	// 空文字列のstateパラメータとも一致しない。verifierを欠くpending状態も
	// 不完全なフローとして扱い、コード交換には進まない。
	state := r.URL.Query().Get("state")
	if state == "" || pending.State == "" || state != pending.State || pending.CodeVerifier == "" {
		slog.Warn("oauth state mismatch on login callback")
		return "invalid_state", nil
	}

	exchangeStart := time.Now()
	session, err := h.service.HandleLoginCallback(r.Context(), code, pending.CodeVerifier, h.loginRedirectURI())
	if h.metrics != nil {
		h.metrics.RecordOAuthExchangeLatency(time.Since(exchangeStart))
	}
	if err != nil {
		slog.Error("login callback failed", slog.String("error", err.Error()))
		return loginFailureReason(err), nil
	}

	return "", session
}

// resolveSubmitterCallback は送信者識別コールバックの検証と交換を行う。
// 失敗時はnilを返すだけで理由は伝搬しない。
func (h *AuthHandler) resolveSubmitterCallback(r *http.Request, pending *auth.PendingAuthorization) *model.SubmitterIdentity {
	if r.URL.Query().Get("error") != "" {
		return nil
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		return nil
	}

	state := r.URL.Query().Get("state")
	if state == "" || pending.State == "" || state != pending.State || pending.CodeVerifier == "" {
		slog.Warn("oauth state mismatch on submitter callback")
		return nil
	}

	exchangeStart := time.Now()
	identity, err := h.service.HandleSubmitterCallback(r.Context(), code, pending.CodeVerifier, h.submitterRedirectURI())
	if h.metrics != nil {
		h.metrics.RecordOAuthExchangeLatency(time.Since(exchangeStart))
	}
	if err != nil {
		slog.Error("submitter callback failed", slog.String("error", err.Error()))
		return nil
	}

	return identity
}

// newPending はPKCEペアとstateを生成し、pending状態とchallengeを返す。
func (h *AuthHandler) newPending(purpose auth.FlowPurpose, returnTo string) (*auth.PendingAuthorization, string, error) {
	verifier, err := auth.GenerateCodeVerifier()
	if err != nil {
		return nil, "", err
	}

	state, err := auth.GenerateState()
	if err != nil {
		return nil, "", err
	}

	pending := &auth.PendingAuthorization{
		State:        state,
		CodeVerifier: verifier,
		Purpose:      purpose,
		ReturnTo:     returnTo,
	}

	return pending, auth.DeriveCodeChallenge(verifier), nil
}

// loginFailureReason はサービス層のエラーをリダイレクト用の理由コードに変換する。
func loginFailureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrDomainNotAllowed):
		return "unauthorized"
	case errors.Is(err, auth.ErrTokenExchange):
		return "token_exchange"
	case errors.Is(err, auth.ErrUserInfo):
		return "user_info"
	default:
		return "server_error"
	}
}

// recordLogin はログイン結果メトリクスを記録する。
func (h *AuthHandler) recordLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordLoginOutcome(outcome)
	}
}

func (h *AuthHandler) cookieConfig() auth.CookieConfig {
	return auth.CookieConfig{
		Secure: h.config.CookieSecure,
		Domain: h.config.CookieDomain,
	}
}

func (h *AuthHandler) loginRedirectURI() string {
	return h.config.BaseURL + "/login-callback"
}

func (h *AuthHandler) submitterRedirectURI() string {
	return h.config.BaseURL + "/submitter/callback"
}
