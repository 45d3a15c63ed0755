package model

import (
	"encoding/json"
	"testing"
)

// TestAccountPatch_TriState はJSONパッチの3状態（未指定 / null / 値あり）が
// 正しく区別されることを検証する。
func TestAccountPatch_TriState(t *testing.T) {
	body := `{"role": "Engineer", "slackUserId": null}`

	var patch AccountPatch
	if err := json.Unmarshal([]byte(body), &patch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 値あり
	if !patch.Role.Set || !patch.Role.Valid || patch.Role.Value != "Engineer" {
		t.Errorf("Role = %+v, want set valid Engineer", patch.Role)
	}

	// null（消去）
	if !patch.SlackUserID.Set || patch.SlackUserID.Valid {
		t.Errorf("SlackUserID = %+v, want set invalid (null)", patch.SlackUserID)
	}

	// 未指定（変更なし）
	if patch.ManagerEmail.Set {
		t.Errorf("ManagerEmail = %+v, want unset", patch.ManagerEmail)
	}
	if patch.ManagerSlackUserID.Set {
		t.Errorf("ManagerSlackUserID = %+v, want unset", patch.ManagerSlackUserID)
	}
}

// TestAccountPatch_TypeMismatch は文字列・null以外の値が型エラーになることを検証する。
func TestAccountPatch_TypeMismatch(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"数値", `{"role": 42}`},
		{"真偽値", `{"slackUserId": true}`},
		{"配列", `{"managerEmail": ["a@vercel.com"]}`},
		{"オブジェクト", `{"managerSlackUserId": {"id": "U1"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var patch AccountPatch
			if err := json.Unmarshal([]byte(tt.body), &patch); err == nil {
				t.Error("expected type error")
			}
		})
	}
}

// TestOptionalString_Ptr は永続化用の*string変換を検証する。
func TestOptionalString_Ptr(t *testing.T) {
	withValue := OptionalString{Set: true, Valid: true, Value: "U123"}
	if p := withValue.Ptr(); p == nil || *p != "U123" {
		t.Errorf("Ptr() = %v, want U123", p)
	}

	null := OptionalString{Set: true, Valid: false}
	if p := null.Ptr(); p != nil {
		t.Errorf("Ptr() = %v, want nil for null", p)
	}
}

// TestAccountPatch_Empty は空パッチの判定を検証する。
func TestAccountPatch_Empty(t *testing.T) {
	var empty AccountPatch
	if !empty.Empty() {
		t.Error("zero patch should be empty")
	}

	var patch AccountPatch
	if err := json.Unmarshal([]byte(`{"role": null}`), &patch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patch.Empty() {
		t.Error("patch with null field should not be empty")
	}
}

// TestSentiment_Valid は感情区分の検証を確認する。
func TestSentiment_Valid(t *testing.T) {
	for _, s := range []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}

	for _, s := range []Sentiment{"", "angry", "POSITIVE", "positive "} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}
