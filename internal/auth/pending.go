package auth

import (
	"net/http"
	"strings"
)

// FlowPurpose はOAuthフローの用途を表す。
// プライマリログインと送信者識別は独立したフローで、Cookie名が分かれているため
// 互いのpending状態を上書きしない。
type FlowPurpose string

const (
	// PurposeLogin は社員のプライマリログインフロー。
	PurposeLogin FlowPurpose = "login"
	// PurposeSubmitter はフィードバック送信者の身元確認フロー。
	PurposeSubmitter FlowPurpose = "submitter"
)

// pendingAuthMaxAge はpending状態Cookieの有効期間（秒）。
// フローが完了しなくても10分で自然消滅する。
const pendingAuthMaxAge = 600

// 用途ごとのCookie名。
const (
	loginVerifierCookie     = "oauth_code_verifier"
	loginStateCookie        = "oauth_state"
	submitterVerifierCookie = "submitter_code_verifier"
	submitterStateCookie    = "submitter_state"
	submitterReturnToCookie = "submitter_return_to"
)

// PendingAuthorization は進行中のOAuth試行1回分の一時状態を表す。
// DBには保存せず、httponlyな短命Cookieとしてクライアントに預ける。
type PendingAuthorization struct {
	State        string
	CodeVerifier string
	Purpose      FlowPurpose

	// ReturnTo は送信者識別フローの完了後に戻るパス。PurposeSubmitterのみ。
	ReturnTo string
}

// CookieConfig はフロー状態Cookieの属性設定。
type CookieConfig struct {
	Secure bool
	Domain string
}

// WritePending はpending状態を用途別のCookieとして書き込む。
// 同一用途の既存pending状態は黙って上書きされる。
func WritePending(w http.ResponseWriter, p *PendingAuthorization, cfg CookieConfig) {
	verifierName, stateName := cookieNames(p.Purpose)

	setTransientCookie(w, verifierName, p.CodeVerifier, cfg)
	setTransientCookie(w, stateName, p.State, cfg)

	if p.Purpose == PurposeSubmitter {
		setTransientCookie(w, submitterReturnToCookie, p.ReturnTo, cfg)
	}
}

// ReadAndClearPending はpending状態をCookieから読み出し、必ず削除する。
// 結果にかかわらずワンタイム消費されるため、同じコールバックの再送は
// state不一致として扱われる。Cookieが欠けている場合は該当フィールドが空になる。
func ReadAndClearPending(w http.ResponseWriter, r *http.Request, purpose FlowPurpose, cfg CookieConfig) *PendingAuthorization {
	verifierName, stateName := cookieNames(purpose)

	p := &PendingAuthorization{
		Purpose:      purpose,
		State:        cookieValue(r, stateName),
		CodeVerifier: cookieValue(r, verifierName),
	}

	clearCookie(w, verifierName, cfg)
	clearCookie(w, stateName, cfg)

	if purpose == PurposeSubmitter {
		p.ReturnTo = SanitizeReturnTo(cookieValue(r, submitterReturnToCookie))
		clearCookie(w, submitterReturnToCookie, cfg)
	}

	return p
}

// SanitizeReturnTo は戻り先パスを検証する。
// オープンリダイレクトを防ぐため、相対パス以外はすべて"/"に丸める。
func SanitizeReturnTo(returnTo string) string {
	if returnTo == "" || !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") {
		return "/"
	}
	return returnTo
}

// cookieNames は用途に対応するverifier/state Cookie名を返す。
func cookieNames(purpose FlowPurpose) (verifier, state string) {
	if purpose == PurposeSubmitter {
		return submitterVerifierCookie, submitterStateCookie
	}
	return loginVerifierCookie, loginStateCookie
}

// cookieValue はCookieの値を返す。存在しない場合は空文字列。
func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// setTransientCookie はpending用の短命httponly Cookieを設定する。
func setTransientCookie(w http.ResponseWriter, name, value string, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   pendingAuthMaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearCookie はCookieを即時失効させる。
func clearCookie(w http.ResponseWriter, name string, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
