package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"regexp"
	"testing"
)

// TestGenerateCodeVerifier_Length はverifierがRFC 7636の最小長43文字であることを検証する。
func TestGenerateCodeVerifier_Length(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(verifier) != 43 {
		t.Errorf("verifier length = %d, want 43", len(verifier))
	}
}

// TestGenerateCodeVerifier_Charset はverifierがURLセーフな文字のみで構成されることを検証する。
func TestGenerateCodeVerifier_Charset(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !regexp.MustCompile(`^[A-Za-z0-9_-]+$`).MatchString(verifier) {
		t.Errorf("verifier contains non-url-safe characters: %q", verifier)
	}
}

// TestGenerateCodeVerifier_Unique は連続生成したverifierが重複しないことを検証する。
func TestGenerateCodeVerifier_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		v, err := GenerateCodeVerifier()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[v] {
			t.Fatalf("duplicate verifier generated: %q", v)
		}
		seen[v] = true
	}
}

// TestDeriveCodeChallenge_Deterministic は同一verifierから常に同一challengeが
// 導出されることを検証する。
func TestDeriveCodeChallenge_Deterministic(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

	c1 := DeriveCodeChallenge(verifier)
	c2 := DeriveCodeChallenge(verifier)

	if c1 != c2 {
		t.Errorf("challenge not deterministic: %q != %q", c1, c2)
	}
}

// TestDeriveCodeChallenge_S256 はchallengeがSHA-256ダイジェストの
// パディングなしURLセーフBase64であることを検証する。
func TestDeriveCodeChallenge_S256(t *testing.T) {
	verifier := "test-verifier-value"

	sum := sha256.Sum256([]byte(verifier))
	want := base64.RawURLEncoding.EncodeToString(sum[:])

	got := DeriveCodeChallenge(verifier)
	if got != want {
		t.Errorf("challenge = %q, want %q", got, want)
	}
}

// TestDeriveCodeChallenge_RFC7636Vector はRFC 7636 Appendix Bのテストベクターを検証する。
func TestDeriveCodeChallenge_RFC7636Vector(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	got := DeriveCodeChallenge(verifier)
	if got != want {
		t.Errorf("challenge = %q, want %q", got, want)
	}
}

// TestGenerateState_IndependentFromVerifier はstateとverifierが独立に
// 生成されることを検証する。
func TestGenerateState_IndependentFromVerifier(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state == verifier {
		t.Error("state should not equal verifier")
	}
	if state == DeriveCodeChallenge(verifier) {
		t.Error("state should not be derived from verifier")
	}
}

// TestGenerateState_Unique は連続生成したstateが重複しないことを検証する。
func TestGenerateState_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := GenerateState()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[s] {
			t.Fatalf("duplicate state generated: %q", s)
		}
		seen[s] = true
	}
}
