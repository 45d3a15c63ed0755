// Package auth はPKCE付きOAuth認証フローとセッション管理を提供する。
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// GenerateCodeVerifier はPKCEのcode verifierを生成する。
// 32バイトの乱数をパディングなしURLセーフBase64で符号化した43文字
// （RFC 7636の最小長）を返す。
func GenerateCodeVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DeriveCodeChallenge はverifierからS256方式のcode challengeを導出する。
// SHA-256のダイジェストをパディングなしURLセーフBase64で符号化する。
// 同一verifierに対して常に同一のchallengeを返す決定的な一方向変換。
func DeriveCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateState はCSRF対策用のランダムなstate値を生成する。
// verifierとは独立な乱数で、暗号学的な関連を持たない。
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
