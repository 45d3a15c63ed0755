package model

import (
	"encoding/json"
	"fmt"
)

// OptionalString はJSONパッチの3状態（未指定 / null / 値あり）を表現する。
// encoding/jsonはキーが存在する場合のみUnmarshalJSONを呼ぶため、
// Set=falseのゼロ値が「未指定」を意味する。
type OptionalString struct {
	Set   bool // キーがリクエストに含まれていたか
	Valid bool // 値がnullでないか
	Value string
}

// UnmarshalJSON はJSON値をOptionalStringにデコードする。
// 文字列でもnullでもない値（数値、真偽値等）は型エラーを返す。
func (o *OptionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Valid = false
		o.Value = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("string or null expected: %w", err)
	}
	o.Valid = true
	o.Value = s
	return nil
}

// Ptr は永続化用の*string表現を返す。nullの場合はnil。
// 未指定（Set=false）のフィールドに対して呼んではならない。
func (o OptionalString) Ptr() *string {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// AccountPatch はPATCH /session/whoami の部分更新ペイロード。
// 各フィールドは未指定なら変更されず、nullなら消去され、値ありなら上書きされる。
type AccountPatch struct {
	Role               OptionalString `json:"role"`
	SlackUserID        OptionalString `json:"slackUserId"`
	ManagerEmail       OptionalString `json:"managerEmail"`
	ManagerSlackUserID OptionalString `json:"managerSlackUserId"`
}

// Empty は更新対象フィールドが1つも指定されていないかどうかを返す。
func (p *AccountPatch) Empty() bool {
	return !p.Role.Set && !p.SlackUserID.Set && !p.ManagerEmail.Set && !p.ManagerSlackUserID.Set
}
