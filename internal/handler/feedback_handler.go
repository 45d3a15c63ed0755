package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/kansou/internal/feedback"
	"github.com/hitoshi/kansou/internal/middleware"
	"github.com/hitoshi/kansou/internal/model"
)

// FeedbackServiceInterface はフィードバックハンドラーが必要とするサービスインターフェース。
type FeedbackServiceInterface interface {
	// Submit はフィードバックを検証し、配信ポリシーに従って保存・通知する。
	Submit(ctx context.Context, in *feedback.SubmitInput) (*model.Feedback, error)
	// ListForRecipient は宛先アカウントのフィードバック一覧を新しい順で返す。
	ListForRecipient(ctx context.Context, accountID string) ([]*model.Feedback, error)
}

// FeedbackHandler はフィードバック投稿と閲覧のHTTPハンドラー。
type FeedbackHandler struct {
	service FeedbackServiceInterface
}

// NewFeedbackHandler はFeedbackHandlerを生成する。
func NewFeedbackHandler(service FeedbackServiceInterface) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
	}
}

// submitFeedbackRequest はフィードバック投稿リクエストのボディ。
type submitFeedbackRequest struct {
	RecipientUsername string  `json:"recipientUsername"`
	Sentiment         string  `json:"sentiment"`
	Comment           string  `json:"comment"`
	IsAnonymous       *bool   `json:"isAnonymous"`
	SubmitterName     *string `json:"submitterName"`
	SubmitterEmail    *string `json:"submitterEmail"`
	SubmitterVercelID *string `json:"submitterVercelId"`
}

// feedbackResponse はフィードバックのAPIレスポンス。
type feedbackResponse struct {
	ID                string    `json:"id"`
	RecipientID       string    `json:"recipientId"`
	Sentiment         string    `json:"sentiment"`
	Comment           string    `json:"comment"`
	IsAnonymous       bool      `json:"isAnonymous"`
	SubmitterName     *string   `json:"submitterName"`
	SubmitterEmail    *string   `json:"submitterEmail"`
	SubmitterVercelID *string   `json:"submitterVercelId"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Submit はフィードバック投稿を処理する。
// POST /feedback
// 公開エンドポイント（ログイン不要）。匿名性の強制はサービス層で行われる。
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError())
		return
	}

	fb, err := h.service.Submit(r.Context(), &feedback.SubmitInput{
		RecipientUsername: req.RecipientUsername,
		Sentiment:         req.Sentiment,
		Comment:           req.Comment,
		IsAnonymous:       req.IsAnonymous,
		SubmitterName:     req.SubmitterName,
		SubmitterEmail:    req.SubmitterEmail,
		SubmitterVercelID: req.SubmitterVercelID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toFeedbackResponse(fb))
}

// List はログインアカウント宛てのフィードバック一覧を返す。
// GET /feedback
// 自分宛てのフィードバックのみ閲覧できる。他人の一覧を取得する手段はない。
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	list, err := h.service.ListForRecipient(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]feedbackResponse, 0, len(list))
	for _, fb := range list {
		responses = append(responses, toFeedbackResponse(fb))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"feedback": responses})
}

// --- ヘルパー関数 ---

// toFeedbackResponse はmodel.FeedbackからAPIレスポンスに変換する。
func toFeedbackResponse(fb *model.Feedback) feedbackResponse {
	return feedbackResponse{
		ID:                fb.ID,
		RecipientID:       fb.RecipientID,
		Sentiment:         string(fb.Sentiment),
		Comment:           fb.Comment,
		IsAnonymous:       fb.IsAnonymous,
		SubmitterName:     fb.SubmitterName,
		SubmitterEmail:    fb.SubmitterEmail,
		SubmitterVercelID: fb.SubmitterVercelID,
		CreatedAt:         fb.CreatedAt,
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]*model.APIError{"error": apiErr})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidSentiment, model.ErrCodeMissingFields, model.ErrCodeInvalidPatch:
		return http.StatusBadRequest
	case model.ErrCodeRecipientNotFound, model.ErrCodeAccountNotFound, model.ErrCodeSlackUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeDeliveryFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
