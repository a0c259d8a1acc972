package domain

import "fmt"

// Color は RGB 各成分 (0-255) で表現されるテーマカラーです。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// TableColors は表スタイルのスライドに適用されるヘッダー／本文の色の組です。
type TableColors struct {
	Header Color `json:"header"`
	Text   Color `json:"text"`
}

// ThemeColors は役割ごとの配色定義を保持します。
type ThemeColors struct {
	Title  Color       `json:"title"`
	Text   Color       `json:"text"`
	Bullet Color       `json:"bullet"` // 箇条書きスライドのアクセント色（画像フレームにも使用）
	Table  TableColors `json:"table"`
	Footer Color       `json:"footer"`
}

// Font はフォント名とポイントサイズの組です。
type Font struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// ThemeFonts は役割ごとのフォント定義を保持します。
type ThemeFonts struct {
	Title  Font `json:"title"`
	Text   Font `json:"text"`
	Table  Font `json:"table"`
	Footer Font `json:"footer"`
}

// Theme はプレゼンテーション全体に適用される配色・フォント・フッター文言の定義なのだ。
// 1回のビルドの間は不変として扱われます。
type Theme struct {
	Colors ThemeColors `json:"colors"`
	Fonts  ThemeFonts  `json:"fonts"`
	Footer string      `json:"footer"`
}

// Validate はテーマの最低限の整合性を検査します。
func (t *Theme) Validate() error {
	fonts := map[string]Font{
		"title":  t.Fonts.Title,
		"text":   t.Fonts.Text,
		"table":  t.Fonts.Table,
		"footer": t.Fonts.Footer,
	}
	for role, f := range fonts {
		if f.Name == "" {
			return &ConfigError{Field: "theme.fonts." + role, Reason: "フォント名が指定されていません"}
		}
		if f.Size <= 0 {
			return &ConfigError{Field: "theme.fonts." + role, Reason: fmt.Sprintf("フォントサイズが不正です: %d", f.Size)}
		}
	}
	return nil
}
