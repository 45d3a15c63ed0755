package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/kansou/internal/model"
	"github.com/hitoshi/kansou/internal/repository"
)

// ErrDomainNotAllowed は組織ドメイン外のEmailによるログイン試行を表す。
// アップストリーム障害と区別し、ユーザーには意図的なアクセス制限として提示する。
var ErrDomainNotAllowed = errors.New("email domain not allowed")

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge      int    // セッション有効期間（秒）
	AllowedEmailDomain string // プライマリログインを許可するEmail接尾辞（例: "@vercel.com"）
}

// Service は認証に関するビジネスロジックを提供する。
// プライマリログインと送信者識別の2つのフローで同じOAuth交換処理を共有する。
type Service struct {
	oauth       OAuthProvider
	accountRepo repository.AccountRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	accountRepo repository.AccountRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// AuthorizeURL は認可エンドポイントへのリダイレクトURLを生成する。
func (s *Service) AuthorizeURL(state, challenge, redirectURI string) string {
	return s.oauth.AuthorizeURL(state, challenge, redirectURI)
}

// HandleLoginCallback はプライマリログインのコールバックを処理する。
// コード交換→プロフィール取得→ドメインポリシー検査→アカウントupsert→セッション発行。
// ドメインポリシー違反の場合、アカウントもセッションも作成されない。
func (s *Service) HandleLoginCallback(ctx context.Context, code, verifier, redirectURI string) (*model.Session, error) {
	profile, err := s.oauth.Exchange(ctx, code, verifier, redirectURI)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// ドメインポリシー: 組織ドメインのEmailのみ許可
	if !strings.HasSuffix(profile.Email, s.config.AllowedEmailDomain) {
		slog.Warn("login rejected by domain policy",
			slog.String("vercel_id", profile.Sub),
		)
		return nil, fmt.Errorf("%w: %s", ErrDomainNotAllowed, s.config.AllowedEmailDomain)
	}

	account, err := s.accountRepo.UpsertOnLogin(ctx, &repository.LoginProfile{
		VercelID:  profile.Sub,
		Username:  deriveUsername(profile),
		Name:      deriveDisplayName(profile),
		Email:     profile.Email,
		AvatarURL: optionalPicture(profile),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}

	session, err := s.createSession(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("account_id", account.ID),
		slog.String("username", account.Username),
	)

	return session, nil
}

// HandleSubmitterCallback は送信者識別フローのコールバックを処理する。
// ドメインポリシーは適用せず、アカウントもセッションも作成しない。
// 取得した身元はCookie経由でクライアントに渡される。
func (s *Service) HandleSubmitterCallback(ctx context.Context, code, verifier, redirectURI string) (*model.SubmitterIdentity, error) {
	profile, err := s.oauth.Exchange(ctx, code, verifier, redirectURI)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	return &model.SubmitterIdentity{
		VercelID: profile.Sub,
		Name:     profile.Name,
		Email:    profile.Email,
		Picture:  profile.Picture,
	}, nil
}

// Logout はセッションを破棄する。存在しないセッションIDでもエラーにならない。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// CurrentAccount はセッションIDから現在のアカウントを取得する。
// Cookie欠落・未知のID・期限切れのいずれも同じ(nil, nil)を返し、
// 呼び出し側はこれらを区別できない。
func (s *Service) CurrentAccount(ctx context.Context, sessionID string) (*model.Account, error) {
	if sessionID == "" {
		return nil, nil
	}

	_, account, err := s.sessionRepo.FindByIDWithAccount(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return account, nil
}

// createSession はセッションを作成し永続化する。
// アカウントupsertのコミット後にのみ呼ばれるため、孤児セッションは発生しない。
func (s *Service) createSession(ctx context.Context, accountID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		AccountID: accountID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// deriveUsername はプロフィールからハンドルを導出する。
// Emailのローカル部を優先し、Emailがなければ外部identity IDにフォールバックする。
func deriveUsername(profile *Profile) string {
	if profile.Email != "" {
		if local, _, found := strings.Cut(profile.Email, "@"); found && local != "" {
			return local
		}
	}
	return profile.Sub
}

// deriveDisplayName は表示名を導出する。名前→Emailローカル部→"User"の順。
func deriveDisplayName(profile *Profile) string {
	if profile.Name != "" {
		return profile.Name
	}
	if profile.Email != "" {
		if local, _, found := strings.Cut(profile.Email, "@"); found && local != "" {
			return local
		}
	}
	return "User"
}

// optionalPicture はアバターURLを*stringに変換する。空の場合はnil。
func optionalPicture(profile *Profile) *string {
	if profile.Picture == "" {
		return nil
	}
	p := profile.Picture
	return &p
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
