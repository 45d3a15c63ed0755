// Package security はアプリケーションのセキュリティ機能を提供する。
//
// CommentSanitizerService はフィードバックコメントをサニタイズし、
// ダッシュボードやSlackメッセージに表示される際のXSSリスクを排除する。
// bluemondayライブラリの許可リストベースのポリシーで、
// ごく限られた整形タグのみを通過させる。
package security

import "github.com/microcosm-cc/bluemonday"

// CommentSanitizerService はコメントのサニタイズ機能のインターフェースを定義する。
// フィードバック保存前および通知配信前に使用される。
type CommentSanitizerService interface {
	// Sanitize はコメントをサニタイズして安全なテキストを返す。
	// 許可タグ（br, strong, em, code）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// commentSanitizer はCommentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type commentSanitizer struct {
	policy *bluemonday.Policy
}

// NewCommentSanitizer はCommentSanitizerServiceの新しいインスタンスを生成する。
// コメントはほぼプレーンテキストとして扱い、最小限のインライン整形のみ許可する。
// リンク・画像・埋め込みはフィードバック用途に不要なため一切許可しない。
func NewCommentSanitizer() *commentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements("br", "strong", "em", "code")

	return &commentSanitizer{
		policy: p,
	}
}

// Sanitize はコメントをサニタイズして安全なテキストを返す。
func (s *commentSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
