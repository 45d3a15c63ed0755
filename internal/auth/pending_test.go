package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// cookiesFromRecorder はレコーダーに書き込まれたSet-CookieをリクエストCookieに変換する。
func cookiesFromRecorder(w *httptest.ResponseRecorder) []*http.Cookie {
	return (&http.Response{Header: w.Header()}).Cookies()
}

// TestWritePending_LoginCookies はログイン用pending状態が専用Cookieに
// 書き込まれることを検証する。
func TestWritePending_LoginCookies(t *testing.T) {
	w := httptest.NewRecorder()

	WritePending(w, &PendingAuthorization{
		State:        "state-abc",
		CodeVerifier: "verifier-xyz",
		Purpose:      PurposeLogin,
	}, CookieConfig{Secure: true})

	cookies := cookiesFromRecorder(w)
	byName := make(map[string]*http.Cookie)
	for _, c := range cookies {
		byName[c.Name] = c
	}

	state, ok := byName["oauth_state"]
	if !ok {
		t.Fatal("oauth_state cookie not set")
	}
	if state.Value != "state-abc" {
		t.Errorf("state value = %q, want %q", state.Value, "state-abc")
	}
	if !state.HttpOnly {
		t.Error("state cookie should be httponly")
	}
	if !state.Secure {
		t.Error("state cookie should be secure")
	}
	if state.MaxAge != 600 {
		t.Errorf("state cookie MaxAge = %d, want 600", state.MaxAge)
	}

	verifier, ok := byName["oauth_code_verifier"]
	if !ok {
		t.Fatal("oauth_code_verifier cookie not set")
	}
	if verifier.Value != "verifier-xyz" {
		t.Errorf("verifier value = %q, want %q", verifier.Value, "verifier-xyz")
	}

	// ログインフローではsubmitter用Cookieは設定されない
	if _, ok := byName["submitter_state"]; ok {
		t.Error("submitter_state should not be set for login flow")
	}
}

// TestWritePending_SubmitterCookies は送信者識別用pending状態がログイン用とは
// 別名のCookieに書き込まれることを検証する。
func TestWritePending_SubmitterCookies(t *testing.T) {
	w := httptest.NewRecorder()

	WritePending(w, &PendingAuthorization{
		State:        "sub-state",
		CodeVerifier: "sub-verifier",
		Purpose:      PurposeSubmitter,
		ReturnTo:     "/feedback/alice",
	}, CookieConfig{})

	byName := make(map[string]*http.Cookie)
	for _, c := range cookiesFromRecorder(w) {
		byName[c.Name] = c
	}

	if c, ok := byName["submitter_state"]; !ok || c.Value != "sub-state" {
		t.Errorf("submitter_state = %v, want sub-state", c)
	}
	if c, ok := byName["submitter_code_verifier"]; !ok || c.Value != "sub-verifier" {
		t.Errorf("submitter_code_verifier = %v, want sub-verifier", c)
	}
	if c, ok := byName["submitter_return_to"]; !ok || c.Value != "/feedback/alice" {
		t.Errorf("submitter_return_to = %v, want /feedback/alice", c)
	}

	// ログイン用Cookieは上書きされない
	if _, ok := byName["oauth_state"]; ok {
		t.Error("oauth_state should not be set for submitter flow")
	}
}

// TestReadAndClearPending_ReturnsValuesAndClears はpending状態の読み出しと
// ワンタイム消費（Cookie削除）を検証する。
func TestReadAndClearPending_ReturnsValuesAndClears(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/login-callback", nil)
	r.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-1"})
	r.AddCookie(&http.Cookie{Name: "oauth_code_verifier", Value: "verifier-1"})

	w := httptest.NewRecorder()
	p := ReadAndClearPending(w, r, PurposeLogin, CookieConfig{})

	if p.State != "state-1" {
		t.Errorf("state = %q, want %q", p.State, "state-1")
	}
	if p.CodeVerifier != "verifier-1" {
		t.Errorf("verifier = %q, want %q", p.CodeVerifier, "verifier-1")
	}

	// 両Cookieが即時失効で上書きされること
	cleared := 0
	for _, c := range cookiesFromRecorder(w) {
		if (c.Name == "oauth_state" || c.Name == "oauth_code_verifier") && c.MaxAge < 0 {
			cleared++
		}
	}
	if cleared != 2 {
		t.Errorf("cleared cookies = %d, want 2", cleared)
	}
}

// TestReadAndClearPending_MissingCookies はCookie欠落時に空のpending状態が
// 返ることを検証する。state比較で必ず不一致になる。
func TestReadAndClearPending_MissingCookies(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/login-callback", nil)
	w := httptest.NewRecorder()

	p := ReadAndClearPending(w, r, PurposeLogin, CookieConfig{})

	if p.State != "" {
		t.Errorf("state = %q, want empty", p.State)
	}
	if p.CodeVerifier != "" {
		t.Errorf("verifier = %q, want empty", p.CodeVerifier)
	}
}

// TestReadAndClearPending_SubmitterReturnTo は送信者フローのreturnToが
// サニタイズ済みで返ることを検証する。
func TestReadAndClearPending_SubmitterReturnTo(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/submitter/callback", nil)
	r.AddCookie(&http.Cookie{Name: "submitter_state", Value: "s"})
	r.AddCookie(&http.Cookie{Name: "submitter_code_verifier", Value: "v"})
	r.AddCookie(&http.Cookie{Name: "submitter_return_to", Value: "https://evil.example.com/"})

	w := httptest.NewRecorder()
	p := ReadAndClearPending(w, r, PurposeSubmitter, CookieConfig{})

	// 絶対URLは開きリダイレクト防止のため"/"に丸められる
	if p.ReturnTo != "/" {
		t.Errorf("returnTo = %q, want %q", p.ReturnTo, "/")
	}
}

// TestSanitizeReturnTo は戻り先パスの検証ルールを網羅する。
func TestSanitizeReturnTo(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"相対パスはそのまま", "/feedback/alice", "/feedback/alice"},
		{"空文字列はルート", "", "/"},
		{"絶対URLはルート", "https://evil.example.com/", "/"},
		{"スキーム相対URLはルート", "//evil.example.com/", "/"},
		{"スラッシュなしはルート", "feedback/alice", "/"},
		{"ルート自体は許可", "/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeReturnTo(tt.input); got != tt.want {
				t.Errorf("SanitizeReturnTo(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
