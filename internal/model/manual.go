package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxManualTitleLength はタイトルの最大文字数。
	MaxManualTitleLength = 500
	// MaxManualBodyLength は本文の最大文字数。
	MaxManualBodyLength = 10000
	// DefaultManualSource はソース未指定時の既定値。
	DefaultManualSource = "Manual Entry"
)

// ManualEntry は手動登録するニュースの入力。
type ManualEntry struct {
	Title         string
	Body          string
	Source        string
	URL           string
	PublishTime   *time.Time
	RelatedMetals []string
}

// Validate は手動登録の入力を検証する。
// 必須項目・文字数上限・URL形式を順にチェックし、最初のエラーを返す。
func (e ManualEntry) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"title", e.Title},
		{"body", e.Body},
		{"source", e.Source},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return NewValidationError(fmt.Sprintf("%s は必須項目です", f.name))
		}
	}

	if utf8.RuneCountInString(e.Title) > MaxManualTitleLength {
		return NewValidationError("タイトルは500文字以内で入力してください")
	}
	if utf8.RuneCountInString(e.Body) > MaxManualBodyLength {
		return NewValidationError("本文は10000文字以内で入力してください")
	}

	u := strings.TrimSpace(e.URL)
	if u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return NewValidationError("URLはhttp://またはhttps://で始まる必要があります")
	}

	return nil
}

// WithDerivedMetals は関連金属が未指定の場合にタイトルと本文から抽出して補完する。
func (e ManualEntry) WithDerivedMetals() ManualEntry {
	if len(e.RelatedMetals) == 0 {
		e.RelatedMetals = ExtractRelatedMetals(e.Title, e.Body)
	}
	return e
}

// metalKeywords は金属名と検出キーワードの対応表。順序が抽出結果の順序になる。
var metalKeywords = []struct {
	name     string
	keywords []string
}{
	{"Copper", []string{"copper", "cu", "red metal"}},
	{"Aluminium", []string{"aluminium", "aluminum", "al"}},
	{"Zinc", []string{"zinc", "zn"}},
	{"Lead", []string{"lead", "pb"}},
	{"Nickel", []string{"nickel", "ni"}},
	{"Tin", []string{"tin", "sn"}},
	{"Steel", []string{"steel", "iron ore", "fe"}},
	{"Gold", []string{"gold", "au"}},
	{"Silver", []string{"silver", "ag"}},
}

// ExtractRelatedMetals はタイトルと本文から関連金属を抽出する。
// 小文字化したテキストに対する部分一致で判定する。該当なしの場合はnil。
func ExtractRelatedMetals(title, body string) []string {
	text := strings.ToLower(title + " " + body)

	var found []string
	for _, m := range metalKeywords {
		for _, kw := range m.keywords {
			if strings.Contains(text, kw) {
				found = append(found, m.name)
				break
			}
		}
	}
	return found
}

// JoinList は金属名やキーワードのリストをカンマ区切りの文字列にする。
func JoinList(values []string) string {
	return strings.Join(values, ", ")
}

// SplitList はカンマ区切りの文字列をリストに変換する。空要素は除く。
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}

// AnalysisEdit はユーザーが編集した分析結果。
type AnalysisEdit struct {
	Summary   string
	Sentiment Sentiment
	Keywords  []string
}

// Validate はセンチメントが定義済みの値かを検証する。空の場合は変更なしとして許可する。
func (e AnalysisEdit) Validate() error {
	if e.Sentiment != "" && !e.Sentiment.Valid() {
		return NewInvalidSentimentError(string(e.Sentiment))
	}
	return nil
}
