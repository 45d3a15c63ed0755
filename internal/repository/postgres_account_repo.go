package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hitoshi/kansou/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

const accountColumns = `id, vercel_id, username, email, name, avatar_url, role,
	slack_user_id, manager_email, manager_slack_user_id, created_at, updated_at`

// scanAccount は1行をmodel.Accountに読み込む。
func scanAccount(row interface{ Scan(...any) error }) (*model.Account, error) {
	a := &model.Account{}
	var avatarURL, role, slackUserID, managerEmail, managerSlackUserID sql.NullString
	err := row.Scan(
		&a.ID, &a.VercelID, &a.Username, &a.Email, &a.Name,
		&avatarURL, &role, &slackUserID, &managerEmail, &managerSlackUserID,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.AvatarURL = nullStringPtr(avatarURL)
	a.Role = nullStringPtr(role)
	a.SlackUserID = nullStringPtr(slackUserID)
	a.ManagerEmail = nullStringPtr(managerEmail)
	a.ManagerSlackUserID = nullStringPtr(managerSlackUserID)
	return a, nil
}

// UpsertOnLogin はvercel_idをキーにアカウントを作成または更新する。
// ON CONFLICT句により、同一identityの同時初回ログインが競合しても
// 一意制約違反にならず、どちらのリクエストも同じ行を返す。
func (r *PostgresAccountRepo) UpsertOnLogin(ctx context.Context, profile *LoginProfile) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO accounts (id, vercel_id, username, email, name, avatar_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 ON CONFLICT (vercel_id) DO UPDATE
		 SET email = EXCLUDED.email,
		     name = EXCLUDED.name,
		     avatar_url = EXCLUDED.avatar_url,
		     updated_at = now()
		 RETURNING `+accountColumns,
		uuid.New().String(), profile.VercelID, profile.Username,
		profile.Email, profile.Name, nullablePtr(profile.AvatarURL),
	)

	account, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}
	return account, nil
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)

	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by ID: %w", err)
	}
	return account, nil
}

// FindByUsername はハンドルでアカウントを検索する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)

	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by username: %w", err)
	}
	return account, nil
}

// ApplyPatch は指定されたフィールドのみを更新し、更新後のアカウントを返す。
// SET句はpatchで指定されたフィールドからのみ組み立てる。
// アカウントが存在しない場合はnilを返す。
func (r *PostgresAccountRepo) ApplyPatch(ctx context.Context, id string, patch *model.AccountPatch) (*model.Account, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	appendSet := func(column string, o model.OptionalString) {
		if !o.Set {
			return
		}
		args = append(args, nullablePtr(o.Ptr()))
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	appendSet("role", patch.Role)
	appendSet("slack_user_id", patch.SlackUserID)
	appendSet("manager_email", patch.ManagerEmail)
	appendSet("manager_slack_user_id", patch.ManagerSlackUserID)

	query := `UPDATE accounts SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + accountColumns

	row := r.db.QueryRowContext(ctx, query, args...)

	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to patch account: %w", err)
	}
	return account, nil
}

// nullStringPtr はsql.NullStringを*stringに変換する。
func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// nullablePtr は*stringをドライバに渡せる値に変換する。nilはNULLになる。
func nullablePtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
