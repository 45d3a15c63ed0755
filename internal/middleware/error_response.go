package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/kansou/internal/model"
)

// errorResponseBody は統一エラーレスポンスのJSON構造。
type errorResponseBody struct {
	Error *model.APIError `json:"error"`
}

// WriteErrorResponse は統一フォーマットのエラーレスポンスを書き込む。
// ハンドラーとミドルウェアの両方から使用される。
func WriteErrorResponse(w http.ResponseWriter, status int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponseBody{Error: apiErr}); err != nil {
		slog.Error("failed to encode error response",
			slog.String("error", err.Error()),
		)
	}
}
