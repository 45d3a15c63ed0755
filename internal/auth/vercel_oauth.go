package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultVercelAuthorizeURL = "https://vercel.com/oauth/authorize"
	defaultVercelTokenURL     = "https://api.vercel.com/login/oauth/token"
	defaultVercelUserInfoURL  = "https://api.vercel.com/login/oauth/userinfo"
)

// 上流呼び出しの失敗段階を区別するためのセンチネルエラー。
// ハンドラーはerrors.Isでリダイレクト時のreasonコードにマッピングする。
var (
	// ErrTokenExchange はトークン交換の失敗を表す。
	ErrTokenExchange = errors.New("token exchange failed")
	// ErrUserInfo はユーザー情報取得の失敗を表す。
	ErrUserInfo = errors.New("user info fetch failed")
)

// Profile はIdPのuserinfoエンドポイントから取得したOIDCプロフィール。
type Profile struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// OAuthProvider はPKCE付きAuthorization Codeフローのプロバイダーインターフェース。
type OAuthProvider interface {
	// AuthorizeURL は認可エンドポイントへのリダイレクトURLを生成する。
	AuthorizeURL(state, challenge, redirectURI string) string
	// Exchange は認可コードとverifierをアクセストークンに交換し、
	// そのトークンでプロフィールを取得する。アクセストークンは使い捨てで、
	// 呼び出し後は保持しない。
	Exchange(ctx context.Context, code, verifier, redirectURI string) (*Profile, error)
}

// VercelOAuthConfig はSign in with Vercelプロバイダーの設定。
type VercelOAuthConfig struct {
	ClientID     string
	ClientSecret string

	// テスト用にオーバーライド可能なURL
	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string

	// 外部呼び出しのタイムアウト。ゼロ値の場合は10秒。
	Timeout time.Duration
}

// VercelOAuthProvider はSign in with Vercelによる認証を提供する。
type VercelOAuthProvider struct {
	config VercelOAuthConfig
	client *http.Client
}

// NewVercelOAuthProvider はVercelOAuthProviderを生成する。
func NewVercelOAuthProvider(config VercelOAuthConfig) *VercelOAuthProvider {
	if config.AuthorizeURL == "" {
		config.AuthorizeURL = defaultVercelAuthorizeURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultVercelTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultVercelUserInfoURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &VercelOAuthProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// AuthorizeURL は認可エンドポイントへのリダイレクトURLを生成する。
// スコープにはopenid, email, profileを含む。
func (p *VercelOAuthProvider) AuthorizeURL(state, challenge, redirectURI string) string {
	params := url.Values{
		"client_id":             {p.config.ClientID},
		"redirect_uri":          {redirectURI},
		"response_type":         {"code"},
		"scope":                 {"openid email profile"},
		"state":                 {state},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
	}
	return p.config.AuthorizeURL + "?" + params.Encode()
}

// vercelTokenResponse はトークンエンドポイントのレスポンス。
type vercelTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Exchange は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
func (p *VercelOAuthProvider) Exchange(ctx context.Context, code, verifier, redirectURI string) (*Profile, error) {
	accessToken, err := p.exchangeToken(ctx, code, verifier, redirectURI)
	if err != nil {
		return nil, err
	}

	profile, err := p.fetchUserInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	return profile, nil
}

// exchangeToken は認可コードとverifierをアクセストークンに交換する。
// 失敗はすべてErrTokenExchangeでラップされる。
func (p *VercelOAuthProvider) exchangeToken(ctx context.Context, code, verifier, redirectURI string) (string, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {verifier},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrTokenExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrTokenExchange, err)
	}

	if resp.StatusCode != http.StatusOK {
		// 上流のエラーボディはログ用にのみ保持し、ユーザーには見せない
		return "", fmt.Errorf("%w: status %d: %s", ErrTokenExchange, resp.StatusCode, string(body))
	}

	var tokenResp vercelTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", ErrTokenExchange, err)
	}

	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token in response", ErrTokenExchange)
	}

	return tokenResp.AccessToken, nil
}

// fetchUserInfo はアクセストークンでOIDCプロフィールを取得する。
// 失敗はすべてErrUserInfoでラップされる。
func (p *VercelOAuthProvider) fetchUserInfo(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrUserInfo, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUserInfo, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUserInfo, resp.StatusCode, string(body))
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrUserInfo, err)
	}

	if profile.Sub == "" {
		return nil, fmt.Errorf("%w: empty sub in response", ErrUserInfo)
	}

	return &profile, nil
}

// compile-time interface check
var _ OAuthProvider = (*VercelOAuthProvider)(nil)
