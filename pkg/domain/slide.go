package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SlideStyle はスライドの描画戦略を決める閉じた列挙です。
type SlideStyle string

const (
	StyleCover     SlideStyle = "cover"
	StyleBullets   SlideStyle = "bullets"
	StyleTable     SlideStyle = "table"
	StyleParagraph SlideStyle = "paragraph"
)

// IsValid は列挙に含まれるスタイルかどうかを返します。
func (s SlideStyle) IsValid() bool {
	switch s {
	case StyleCover, StyleBullets, StyleTable, StyleParagraph:
		return true
	}
	return false
}

// ContentKind は SlideContent に実際に格納されているバリアントを示すタグです。
type ContentKind int

const (
	KindNone ContentKind = iota
	KindParagraph
	KindBullets
	KindTable
)

// BulletItem は箇条書きの1項目です。Level はインデント段数 (0以上) なのだ。
type BulletItem struct {
	Text  string `json:"text"`
	Level int    `json:"level,omitempty"`
}

// TableContent は表スタイルの本文です。全行のセル数はヘッダー数と一致しなければなりません。
type TableContent struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// SlideContent はスタイルをタグとする本文のタグ付きユニオンです。
// AI の応答 JSON では string / 配列 / オブジェクトのいずれかで届くため、
// 専用の Unmarshal で形状を判定してからバリアントに振り分けます。
type SlideContent struct {
	Kind      ContentKind
	Paragraph string
	Bullets   []BulletItem
	Table     *TableContent
}

// NewParagraphContent は段落バリアントの本文を生成します。
func NewParagraphContent(text string) *SlideContent {
	return &SlideContent{Kind: KindParagraph, Paragraph: text}
}

// NewBulletsContent は箇条書きバリアントの本文を生成します。
func NewBulletsContent(items ...BulletItem) *SlideContent {
	return &SlideContent{Kind: KindBullets, Bullets: items}
}

// NewTableContent は表バリアントの本文を生成します。
func NewTableContent(headers []string, rows [][]string) *SlideContent {
	return &SlideContent{Kind: KindTable, Table: &TableContent{Headers: headers, Rows: rows}}
}

// UnmarshalJSON は JSON の形状からバリアントを判定します。
//   - 文字列         -> Paragraph
//   - 配列           -> Bullets（要素は文字列またはオブジェクト。素の文字列は Level 0 の糖衣）
//   - オブジェクト   -> Table
func (c *SlideContent) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*c = SlideContent{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = SlideContent{Kind: KindParagraph, Paragraph: s}
		return nil

	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]BulletItem, 0, len(raw))
		for i, elem := range raw {
			item, err := unmarshalBulletItem(elem)
			if err != nil {
				return fmt.Errorf("bullet item %d: %w", i, err)
			}
			items = append(items, item)
		}
		*c = SlideContent{Kind: KindBullets, Bullets: items}
		return nil

	case '{':
		var table TableContent
		if err := json.Unmarshal(data, &table); err != nil {
			return err
		}
		*c = SlideContent{Kind: KindTable, Table: &table}
		return nil
	}

	return fmt.Errorf("content must be a string, an array, or a table object (got %s)", truncate(trimmed, 40))
}

// unmarshalBulletItem は配列要素（文字列 or {text, level}）を BulletItem に変換します。
func unmarshalBulletItem(data json.RawMessage) (BulletItem, error) {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return BulletItem{}, err
		}
		return BulletItem{Text: s}, nil
	}

	var item BulletItem
	if err := json.Unmarshal(data, &item); err != nil {
		return BulletItem{}, err
	}
	if item.Level < 0 {
		return BulletItem{}, fmt.Errorf("level must be >= 0 (got %d)", item.Level)
	}
	return item, nil
}

// MarshalJSON は格納中のバリアントをそのままの形状で書き出します。
func (c SlideContent) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case KindParagraph:
		return json.Marshal(c.Paragraph)
	case KindBullets:
		return json.Marshal(c.Bullets)
	case KindTable:
		return json.Marshal(c.Table)
	}
	return []byte("null"), nil
}

// LayoutHint は画像の配置ヒントです。AI 応答に含まれ、レンダラーが参考にします。
type LayoutHint struct {
	ImagePosition string  `json:"image_position,omitempty"`
	ImageWidth    float64 `json:"image_width,omitempty"`
}

// SlideRecord は1枚のスライドの内容とスタイルを表す検証済みレコードです。
// content の形状と style の整合は描画時ではなく構築時に検査します（早期拒否）。
type SlideRecord struct {
	Title     string        `json:"title"`
	Subtitle  string        `json:"subtitle,omitempty"`
	Style     SlideStyle    `json:"style"`
	Content   *SlideContent `json:"content,omitempty"`
	Notes     string        `json:"comments,omitempty"` // 元の生テキストを話者ノートとして保持
	ImagePath string        `json:"image_path,omitempty"`
	Layout    LayoutHint    `json:"layout,omitempty"`
}

// NewCoverSlide はプレゼン冒頭に必ず挿入される表紙レコードを生成します。
// 生成ループを経由しない合成レコードであり、本文を持ちません。
func NewCoverSlide(topic string) SlideRecord {
	return SlideRecord{
		Title: topic,
		Style: StyleCover,
	}
}

// Validate はレコードのスキーマ不変条件を検査します。
//   - style は閉じた列挙に含まれる
//   - content の形状が style と一致する
//   - 必須フィールドが空でない
func (r *SlideRecord) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: "title", Reason: "title must not be empty"}
	}
	if !r.Style.IsValid() {
		return &ValidationError{Field: "style", Reason: fmt.Sprintf("style must be one of [cover bullets table paragraph] (got %q)", r.Style)}
	}

	switch r.Style {
	case StyleCover:
		// 表紙は本文を持たない。title/subtitle のみ。
		if r.Content != nil && r.Content.Kind != KindNone {
			return &ValidationError{Field: "content", Reason: "cover slides must not carry body content"}
		}

	case StyleParagraph:
		if r.Content == nil || r.Content.Kind != KindParagraph {
			return &ValidationError{Field: "content", Reason: "paragraph style requires a single text content"}
		}
		if strings.TrimSpace(r.Content.Paragraph) == "" {
			return &ValidationError{Field: "content", Reason: "paragraph content must not be empty"}
		}

	case StyleBullets:
		if r.Content == nil || r.Content.Kind != KindBullets {
			return &ValidationError{Field: "content", Reason: "bullets style requires a list of bullet items"}
		}
		if len(r.Content.Bullets) == 0 {
			return &ValidationError{Field: "content", Reason: "bullets content must contain at least one item"}
		}
		for i, item := range r.Content.Bullets {
			if item.Level < 0 {
				return &ValidationError{Field: "content", Reason: fmt.Sprintf("bullet %d: level must be >= 0", i)}
			}
		}

	case StyleTable:
		if r.Content == nil || r.Content.Kind != KindTable || r.Content.Table == nil {
			return &ValidationError{Field: "content", Reason: "table style requires headers and rows"}
		}
		table := r.Content.Table
		if len(table.Headers) == 0 {
			return &ValidationError{Field: "content", Reason: "table content must define at least one header"}
		}
		for i, row := range table.Rows {
			if len(row) != len(table.Headers) {
				return &ValidationError{
					Field:  "content",
					Reason: fmt.Sprintf("table row %d has %d cells, expected %d (one per header)", i, len(row), len(table.Headers)),
				}
			}
		}
	}

	return nil
}

// ParseSlideRecord は AI が返した JSON 文字列を検証済みレコードに変換します。
// パース失敗・検証失敗のどちらもエラーとして返し、リトライループに委ねるのだ。
func ParseSlideRecord(raw string) (SlideRecord, error) {
	var record SlideRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return SlideRecord{}, &ValidationError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := record.Validate(); err != nil {
		return SlideRecord{}, err
	}
	return record, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
