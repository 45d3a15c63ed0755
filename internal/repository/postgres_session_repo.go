package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/kansou/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, account_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		session.ID, session.AccountID, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDの有効なセッションを取得する。
// expires_at > now() の厳密な不等号で判定するため、ちょうど期限時刻のセッションは無効。
// 未発行・削除済み・期限切れはすべて同じnilとして返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, expires_at, created_at
		 FROM sessions
		 WHERE id = $1 AND expires_at > now()`,
		id,
	).Scan(&session.ID, &session.AccountID, &session.ExpiresAt, &session.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return session, nil
}

// FindByIDWithAccount は有効なセッションと所有アカウントをJOINで取得する。
// セッションが無効な場合は(nil, nil)を返す。
func (r *PostgresSessionRepo) FindByIDWithAccount(ctx context.Context, id string) (*model.Session, *model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT s.id, s.account_id, s.expires_at, s.created_at, `+prefixedAccountColumns("a")+`
		 FROM sessions s
		 JOIN accounts a ON a.id = s.account_id
		 WHERE s.id = $1 AND s.expires_at > now()`,
		id,
	)

	session := &model.Session{}
	account := &model.Account{}
	var avatarURL, role, slackUserID, managerEmail, managerSlackUserID sql.NullString

	err := row.Scan(
		&session.ID, &session.AccountID, &session.ExpiresAt, &session.CreatedAt,
		&account.ID, &account.VercelID, &account.Username, &account.Email, &account.Name,
		&avatarURL, &role, &slackUserID, &managerEmail, &managerSlackUserID,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find session with account: %w", err)
	}

	account.AvatarURL = nullStringPtr(avatarURL)
	account.Role = nullStringPtr(role)
	account.SlackUserID = nullStringPtr(slackUserID)
	account.ManagerEmail = nullStringPtr(managerEmail)
	account.ManagerSlackUserID = nullStringPtr(managerSlackUserID)

	return session, account, nil
}

// DeleteByID は指定IDのセッションを削除する。
// 存在しないIDの削除はエラーにならない（冪等）。
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れセッションを一括削除し、削除件数を返す。
func (r *PostgresSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return count, nil
}

// prefixedAccountColumns はテーブルエイリアス付きのアカウントカラムリストを返す。
func prefixedAccountColumns(alias string) string {
	return alias + `.id, ` + alias + `.vercel_id, ` + alias + `.username, ` +
		alias + `.email, ` + alias + `.name, ` + alias + `.avatar_url, ` +
		alias + `.role, ` + alias + `.slack_user_id, ` + alias + `.manager_email, ` +
		alias + `.manager_slack_user_id, ` + alias + `.created_at, ` + alias + `.updated_at`
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
