// Package model はドメインモデルを定義する。
package model

import "time"

// Account はフィードバックを受け取る社員アカウントを表す。
// 初回ログイン時に作成され、以降のログインでname/email/avatar_urlが上書きされる。
type Account struct {
	ID        string
	VercelID  string // 外部IdPのsubject ID（グローバル一意）
	Username  string // フィードバックURLに使用するハンドル（グローバル一意）
	Email     string
	Name      string
	AvatarURL *string
	Role      *string // 自由記述の役職

	// 通知チャンネル設定。アカウント所有者が直接変更する。
	SlackUserID *string

	// エスカレーション先（マネージャー）の連絡先。
	ManagerEmail       *string
	ManagerSlackUserID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicProfile はフィードバックフォームに表示する最小限の公開プロフィール。
type PublicProfile struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Name      string  `json:"name"`
	Role      *string `json:"role"`
	AvatarURL *string `json:"avatarUrl"`
}

// PublicProfile はAccountから公開プロフィールを抽出する。
func (a *Account) PublicProfile() *PublicProfile {
	return &PublicProfile{
		ID:        a.ID,
		Username:  a.Username,
		Name:      a.Name,
		Role:      a.Role,
		AvatarURL: a.AvatarURL,
	}
}

// Session はユーザーのログインセッションを表す。
// 有効期限は作成時に固定され、延長されない。
type Session struct {
	ID        string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SubmitterIdentity は検証済みだがアカウントを持たない送信者の身元を表す。
// サーバー側には永続化せず、短命なCookieとしてクライアントに保持される。
type SubmitterIdentity struct {
	VercelID string `json:"vercelId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Picture  string `json:"picture"`
}
