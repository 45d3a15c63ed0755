// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/kansou/internal/model"
)

// LoginProfile はIdPから取得したプロフィールのうち、アカウントupsertに必要な情報。
type LoginProfile struct {
	VercelID  string
	Username  string // 新規作成時のみ使用される。既存アカウントのハンドルは変更しない。
	Name      string
	Email     string
	AvatarURL *string
}

// AccountRepository はアカウントデータの永続化インターフェース。
type AccountRepository interface {
	// UpsertOnLogin はvercel_idをキーにアカウントを作成または更新する。
	// 既存の場合はname/email/avatar_url/updated_atのみ上書きする。
	// INSERT ... ON CONFLICTによりDB側で原子的に実行され、
	// 同一identityの同時初回ログインでも重複アカウントは作成されない。
	UpsertOnLogin(ctx context.Context, profile *LoginProfile) (*model.Account, error)

	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// FindByUsername はハンドルでアカウントを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.Account, error)

	// ApplyPatch は指定されたフィールドのみを更新し、更新後のアカウントを返す。
	// patch内のSet=falseのフィールドは変更しない。
	// アカウントが存在しない場合はnilを返す。
	ApplyPatch(ctx context.Context, id string, patch *model.AccountPatch) (*model.Account, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDの有効なセッションを取得する。
	// 未発行・削除済み・期限切れはすべて区別なくnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// FindByIDWithAccount は有効なセッションと所有アカウントをJOINで取得する。
	// セッションが無効な場合は(nil, nil)を返す。
	FindByIDWithAccount(ctx context.Context, id string) (*model.Session, *model.Account, error)

	// DeleteByID は指定IDのセッションを削除する。
	// 存在しないIDの削除はエラーにならない（冪等）。
	DeleteByID(ctx context.Context, id string) error

	// DeleteExpired は期限切れセッションを一括削除し、削除件数を返す。
	// 遅延失効の補助としてワーカーから日次で呼ばれる。
	DeleteExpired(ctx context.Context) (int64, error)
}

// FeedbackRepository はフィードバックデータの永続化インターフェース。
type FeedbackRepository interface {
	// Create はフィードバックを作成する。
	Create(ctx context.Context, fb *model.Feedback) error

	// ListByRecipientID は宛先アカウントのフィードバック一覧を新しい順で返す。
	ListByRecipientID(ctx context.Context, recipientID string) ([]*model.Feedback, error)
}
