package security

import (
	"strings"
	"testing"
)

// TestSanitize_RemovesDangerousMarkup は危険なタグと属性が除去されることを検証する。
func TestSanitize_RemovesDangerousMarkup(t *testing.T) {
	s := NewCommentSanitizer()

	tests := []struct {
		name      string
		input     string
		forbidden string
	}{
		{"scriptタグ", `hello <script>alert("xss")</script>`, "<script"},
		{"iframeタグ", `<iframe src="https://evil.example.com"></iframe>ok`, "<iframe"},
		{"styleタグ", `<style>body{display:none}</style>text`, "<style"},
		{"イベント属性", `<strong onclick="steal()">bold</strong>`, "onclick"},
		{"imgタグ", `<img src=x onerror=alert(1)>text`, "<img"},
		{"aタグ", `<a href="https://evil.example.com">link</a>`, "<a "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.input)
			if strings.Contains(got, tt.forbidden) {
				t.Errorf("Sanitize(%q) = %q, must not contain %q", tt.input, got, tt.forbidden)
			}
		})
	}
}

// TestSanitize_AllowsInlineFormatting は許可された整形タグが通過することを検証する。
func TestSanitize_AllowsInlineFormatting(t *testing.T) {
	s := NewCommentSanitizer()

	for _, tag := range []string{"br", "strong", "em", "code"} {
		t.Run(tag, func(t *testing.T) {
			var input string
			if tag == "br" {
				input = "line1<br>line2"
			} else {
				input = "a <" + tag + ">b</" + tag + "> c"
			}

			got := s.Sanitize(input)
			if !strings.Contains(got, "<"+tag) {
				t.Errorf("Sanitize(%q) = %q, should keep <%s>", input, got, tag)
			}
		})
	}
}

// TestSanitize_PlainText はプレーンテキストがそのまま通過することを検証する。
func TestSanitize_PlainText(t *testing.T) {
	s := NewCommentSanitizer()

	input := "Great presentation today. Keep it up!"
	if got := s.Sanitize(input); got != input {
		t.Errorf("Sanitize(%q) = %q, want unchanged", input, got)
	}
}

// TestSanitize_EmptyInput は空文字列の入力に空文字列が返ることを検証する。
func TestSanitize_EmptyInput(t *testing.T) {
	s := NewCommentSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty string", got)
	}
}

// TestSanitize_Idempotent は2回適用しても結果が変わらないことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	s := NewCommentSanitizer()

	input := `nice <strong onclick="x()">work</strong> <script>bad()</script>`
	once := s.Sanitize(input)
	twice := s.Sanitize(once)

	if once != twice {
		t.Errorf("Sanitize is not idempotent: %q != %q", once, twice)
	}
}
