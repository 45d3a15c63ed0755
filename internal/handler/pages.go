package handler

import (
	"fmt"
	"net/http"
)

// PageHandler は最小限のページを返すハンドラー。
// フロントエンドのレンダリングはスコープ外のため、遷移確認用の
// プレースホルダーHTMLのみを返す。ルートガードの対象になる。
type PageHandler struct{}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Home はトップページを返す。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	writePage(w, "kansou", `<p><a href="/login">ログイン</a></p>`)
}

// Login はログインページを返す。
// GET /login
// クエリのerrorパラメータがある場合、フロントエンドが理由コードを表示する。
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	writePage(w, "ログイン", `<p><a href="/login-init">Vercelでログイン</a></p>`)
}

// Dashboard はダッシュボードページを返す。
// GET /dashboard
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	writePage(w, "ダッシュボード", `<p>受け取ったフィードバックは GET /feedback で取得できます。</p>`)
}

// Settings は設定ページを返す。
// GET /settings
func (h *PageHandler) Settings(w http.ResponseWriter, r *http.Request) {
	writePage(w, "設定", `<p>通知設定は PATCH /session/whoami で更新できます。</p>`)
}

// FeedbackForm は公開フィードバックフォームページを返す。
// GET /feedback/{handle}
func (h *PageHandler) FeedbackForm(w http.ResponseWriter, r *http.Request) {
	writePage(w, "フィードバック", `<p>POST /feedback で投稿できます。</p>`)
}

// writePage は最小限のHTMLページを書き込む。
func writePage(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html><html lang=\"ja\"><head><meta charset=\"utf-8\"><title>%s</title></head><body><h1>%s</h1>%s</body></html>", title, title, body)
}
