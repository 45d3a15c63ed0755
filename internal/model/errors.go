// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string `json:"code"`     // エラーコード
	Message  string `json:"message"`  // エラーメッセージ
	Category string `json:"category"` // カテゴリ: auth, validation, feedback, system
	Action   string `json:"action"`   // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidSentiment   = "INVALID_SENTIMENT"
	ErrCodeMissingFields      = "MISSING_FIELDS"
	ErrCodeRecipientNotFound  = "RECIPIENT_NOT_FOUND"
	ErrCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	ErrCodeInvalidPatch       = "INVALID_PATCH"
	ErrCodeSlackUserNotFound  = "SLACK_USER_NOT_FOUND"
	ErrCodeDeliveryFailed     = "DELIVERY_FAILED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidSentimentError は感情区分が不正な場合のエラーを生成する。
func NewInvalidSentimentError(sentiment string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSentiment,
		Message:  fmt.Sprintf("無効な感情区分です: %s", sentiment),
		Category: "validation",
		Action:   "sentimentには positive、neutral、negative のいずれかを指定してください。",
	}
}

// NewMissingFieldsError は必須フィールド欠落エラーを生成する。
func NewMissingFieldsError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingFields,
		Message:  "必須フィールドが不足しています。",
		Category: "validation",
		Action:   "recipientUsername、sentiment、commentをすべて指定してください。",
	}
}

// NewRecipientNotFoundError は宛先ユーザーが見つからない場合のエラーを生成する。
func NewRecipientNotFoundError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeRecipientNotFound,
		Message:  fmt.Sprintf("指定された宛先が見つかりません: %s", username),
		Category: "feedback",
		Action:   "フィードバックリンクのハンドル名を確認してください。",
	}
}

// NewAccountNotFoundError はアカウントが見つからない場合のエラーを生成する。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  "アカウントが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidPatchError は部分更新ペイロードが不正な場合のエラーを生成する。
func NewInvalidPatchError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPatch,
		Message:  fmt.Sprintf("更新内容が不正です: %s", reason),
		Category: "validation",
		Action:   "各フィールドには文字列またはnullを指定してください。",
	}
}

// NewSlackUserNotFoundError はSlackユーザーが検出できなかった場合のエラーを生成する。
func NewSlackUserNotFoundError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeSlackUserNotFound,
		Message:  fmt.Sprintf("SlackアカウントがEmail %s で見つかりませんでした。", email),
		Category: "feedback",
		Action:   "Slackに登録しているEmailが異なる可能性があります。SlackユーザーIDを直接入力してください。",
	}
}

// NewDeliveryFailedError は主通知の配信失敗エラーを生成する。
func NewDeliveryFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeDeliveryFailed,
		Message:  "フィードバック通知の配信に失敗しました。",
		Category: "feedback",
		Action:   "しばらく待ってから再度送信してください。",
	}
}
