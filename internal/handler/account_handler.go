package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/hitoshi/kansou/internal/middleware"
	"github.com/hitoshi/kansou/internal/model"
)

// AccountServiceInterface はアカウントハンドラーが必要とする永続化インターフェース。
// repository.AccountRepositoryの部分集合として定義する。
type AccountServiceInterface interface {
	FindByID(ctx context.Context, id string) (*model.Account, error)
	FindByUsername(ctx context.Context, username string) (*model.Account, error)
	ApplyPatch(ctx context.Context, id string, patch *model.AccountPatch) (*model.Account, error)
}

// SlackUserDetector はEmailからSlackユーザーIDを検索するインターフェース。
// notify.SlackClientの部分集合として定義する。
type SlackUserDetector interface {
	LookupUserByEmail(ctx context.Context, email string) (string, error)
}

// AccountHandler はアカウント管理のHTTPハンドラー。
type AccountHandler struct {
	accounts AccountServiceInterface
	auth     AuthServiceInterface
	detector SlackUserDetector
	baseURL  string
}

// NewAccountHandler はAccountHandlerを生成する。
// detectorはnilでもよい（通知無効構成ではSlack検出エンドポイントが503を返す）。
func NewAccountHandler(accounts AccountServiceInterface, auth AuthServiceInterface, detector SlackUserDetector, baseURL string) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		auth:     auth,
		detector: detector,
		baseURL:  baseURL,
	}
}

// accountResponse はアカウント情報のAPIレスポンス。
type accountResponse struct {
	ID                 string  `json:"id"`
	Username           string  `json:"username"`
	Email              string  `json:"email"`
	Name               string  `json:"name"`
	AvatarURL          *string `json:"avatarUrl"`
	Role               *string `json:"role"`
	SlackUserID        *string `json:"slackUserId"`
	ManagerEmail       *string `json:"managerEmail"`
	ManagerSlackUserID *string `json:"managerSlackUserId"`
}

// Whoami は現在のログインアカウント情報を返す。
// GET /session/whoami
// 未認証（Cookie欠落・未知のID・期限切れ）はすべて401 {"account": null}になる。
// セッションミドルウェアの外に配置し、ハンドラー自身がセッションを解決する。
func (h *AccountHandler) Whoami(w http.ResponseWriter, r *http.Request) {
	account := h.resolveAccount(r)
	if account == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"account": nil})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"account": toAccountResponse(account)})
}

// UpdateWhoami はログインアカウントのプロフィール設定を部分更新する。
// PATCH /session/whoami
//
// 各フィールドは3状態（未指定 / null / 値あり）で解釈される。
// 型不一致（文字列・null以外）はどのフィールドも書き込まれる前に400で拒否する。
func (h *AccountHandler) UpdateWhoami(w http.ResponseWriter, r *http.Request) {
	accountID, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var patch model.AccountPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPatchError(err.Error()))
		return
	}

	account, err := h.accounts.ApplyPatch(r.Context(), accountID, &patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if account == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewAccountNotFoundError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"account": toAccountResponse(account)})
}

// GetPublicProfile はハンドルから最小限の公開プロフィールを返す。
// GET /accounts/{handle}
// フィードバックフォームが宛先表示に使用する。Emailや通知設定は含まない。
func (h *AccountHandler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	account, err := h.accounts.FindByUsername(r.Context(), handle)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if account == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRecipientNotFoundError(handle))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account.PublicProfile())
}

// GetFeedbackQR はハンドルの公開フィードバックURLをQRコードPNGで返す。
// GET /accounts/{handle}/qr
func (h *AccountHandler) GetFeedbackQR(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	account, err := h.accounts.FindByUsername(r.Context(), handle)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if account == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRecipientNotFoundError(handle))
		return
	}

	feedbackURL := fmt.Sprintf("%s/feedback/%s", h.baseURL, account.Username)
	png, err := qrcode.Encode(feedbackURL, qrcode.Medium, 256)
	if err != nil {
		slog.Error("failed to encode QR code", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// DetectSlackUser はログインアカウントのEmailからSlackユーザーIDを検出し保存する。
// POST /session/slack-detect
func (h *AccountHandler) DetectSlackUser(w http.ResponseWriter, r *http.Request) {
	accountID, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if h.detector == nil {
		http.Error(w, "slack integration disabled", http.StatusServiceUnavailable)
		return
	}

	account, err := h.accounts.FindByID(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if account == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewAccountNotFoundError())
		return
	}

	slackUserID, err := h.detector.LookupUserByEmail(r.Context(), account.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if slackUserID == "" {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewSlackUserNotFoundError(account.Email))
		return
	}

	patch := &model.AccountPatch{
		SlackUserID: model.OptionalString{Set: true, Valid: true, Value: slackUserID},
	}
	updated, err := h.accounts.ApplyPatch(r.Context(), accountID, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"account": toAccountResponse(updated)})
}

// managerDetectRequest はマネージャー検出リクエストのボディ。
type managerDetectRequest struct {
	ManagerEmail string `json:"managerEmail"`
}

// DetectManager はエスカレーション先のEmailからSlackユーザーIDを検出し、
// Emailと検出結果をまとめて保存する。
// POST /session/manager-detect
func (h *AccountHandler) DetectManager(w http.ResponseWriter, r *http.Request) {
	accountID, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if h.detector == nil {
		http.Error(w, "slack integration disabled", http.StatusServiceUnavailable)
		return
	}

	var req managerDetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPatchError(err.Error()))
		return
	}
	if req.ManagerEmail == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError())
		return
	}

	slackUserID, err := h.detector.LookupUserByEmail(r.Context(), req.ManagerEmail)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if slackUserID == "" {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewSlackUserNotFoundError(req.ManagerEmail))
		return
	}

	patch := &model.AccountPatch{
		ManagerEmail:       model.OptionalString{Set: true, Valid: true, Value: req.ManagerEmail},
		ManagerSlackUserID: model.OptionalString{Set: true, Valid: true, Value: slackUserID},
	}
	updated, err := h.accounts.ApplyPatch(r.Context(), accountID, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"account": toAccountResponse(updated)})
}

// resolveAccount はセッションCookieから現在のアカウントを解決する。
// 未認証の場合はnilを返す。
func (h *AccountHandler) resolveAccount(r *http.Request) *model.Account {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	account, err := h.auth.CurrentAccount(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to resolve current account", slog.String("error", err.Error()))
		return nil
	}

	return account
}

// toAccountResponse はmodel.AccountからAPIレスポンスに変換する。
func toAccountResponse(a *model.Account) accountResponse {
	return accountResponse{
		ID:                 a.ID,
		Username:           a.Username,
		Email:              a.Email,
		Name:               a.Name,
		AvatarURL:          a.AvatarURL,
		Role:               a.Role,
		SlackUserID:        a.SlackUserID,
		ManagerEmail:       a.ManagerEmail,
		ManagerSlackUserID: a.ManagerSlackUserID,
	}
}
