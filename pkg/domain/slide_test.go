package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestSlideContent_UnmarshalJSON(t *testing.T) {
	t.Run("文字列は段落バリアントになるのだ", func(t *testing.T) {
		var c SlideContent
		if err := json.Unmarshal([]byte(`"本文テキスト"`), &c); err != nil {
			t.Fatalf("パース失敗なのだ: %v", err)
		}
		if c.Kind != KindParagraph || c.Paragraph != "本文テキスト" {
			t.Errorf("段落として解釈されていません: %+v", c)
		}
	})

	t.Run("素の文字列の箇条書きは Level 0 の糖衣なのだ", func(t *testing.T) {
		input := `["Simple point", {"text": "Nested point", "level": 1}]`
		var c SlideContent
		if err := json.Unmarshal([]byte(input), &c); err != nil {
			t.Fatalf("パース失敗なのだ: %v", err)
		}
		if c.Kind != KindBullets || len(c.Bullets) != 2 {
			t.Fatalf("箇条書きとして解釈されていません: %+v", c)
		}
		if c.Bullets[0].Text != "Simple point" || c.Bullets[0].Level != 0 {
			t.Errorf("素の文字列が Level 0 になっていません: %+v", c.Bullets[0])
		}
		if c.Bullets[1].Level != 1 {
			t.Errorf("ネストレベルが失われています: %+v", c.Bullets[1])
		}
	})

	t.Run("オブジェクトは表バリアントになるのだ", func(t *testing.T) {
		input := `{"headers": ["A", "B"], "rows": [["1", "2"]]}`
		var c SlideContent
		if err := json.Unmarshal([]byte(input), &c); err != nil {
			t.Fatalf("パース失敗なのだ: %v", err)
		}
		if c.Kind != KindTable || c.Table == nil || len(c.Table.Headers) != 2 {
			t.Errorf("表として解釈されていません: %+v", c)
		}
	})

	t.Run("負のインデントレベルは拒否されること", func(t *testing.T) {
		var c SlideContent
		if err := json.Unmarshal([]byte(`[{"text": "x", "level": -1}]`), &c); err == nil {
			t.Error("負の level でエラーが発生しませんでした")
		}
	})
}

func TestSlideRecord_Validate(t *testing.T) {
	t.Run("スタイルと本文形状の不一致は構築時に拒否されるのだ", func(t *testing.T) {
		record := SlideRecord{
			Title:   "Mismatch",
			Style:   StyleTable,
			Content: NewParagraphContent("これは表ではない"),
		}
		if err := record.Validate(); err == nil {
			t.Error("形状不一致でエラーが発生しませんでした")
		}
	})

	t.Run("未知のスタイルは拒否されること", func(t *testing.T) {
		record := SlideRecord{Title: "x", Style: SlideStyle("chart")}
		err := record.Validate()
		if err == nil {
			t.Fatal("未知のスタイルでエラーが発生しませんでした")
		}
		if !strings.Contains(err.Error(), "style") {
			t.Errorf("エラーにフィールド名が含まれていません: %v", err)
		}
	})

	t.Run("表の行セル数はヘッダー数と一致しなければならないのだ", func(t *testing.T) {
		record := SlideRecord{
			Title: "Lengths",
			Style: StyleTable,
			Content: NewTableContent(
				[]string{"Model", "Score"},
				[][]string{{"A", "1"}, {"B"}}, // 2行目のセルが足りない
			),
		}
		if err := record.Validate(); err == nil {
			t.Error("行長の不一致でエラーが発生しませんでした")
		}
	})

	t.Run("表紙は本文を持てないこと", func(t *testing.T) {
		record := SlideRecord{
			Title:   "Cover",
			Style:   StyleCover,
			Content: NewParagraphContent("余計な本文"),
		}
		if err := record.Validate(); err == nil {
			t.Error("本文付きの表紙でエラーが発生しませんでした")
		}
	})

	t.Run("タイトルが空のレコードは拒否されること", func(t *testing.T) {
		record := SlideRecord{Title: "  ", Style: StyleParagraph, Content: NewParagraphContent("x")}
		if err := record.Validate(); err == nil {
			t.Error("空タイトルでエラーが発生しませんでした")
		}
	})
}

func TestParseSlideRecord(t *testing.T) {
	t.Run("AIからの応答形式をシミュレートするのだ", func(t *testing.T) {
		inputJSON := `{
			"title": "Quarterly Results",
			"subtitle": "FY2026 Q1",
			"style": "bullets",
			"content": [
				"Revenue - grew 20% year over year",
				{"text": "APAC expansion", "level": 1}
			],
			"layout": {"image_position": "right", "image_width": 0.5}
		}`

		record, err := ParseSlideRecord(inputJSON)
		if err != nil {
			t.Fatalf("パース失敗なのだ: %v", err)
		}
		if record.Style != StyleBullets || len(record.Content.Bullets) != 2 {
			t.Errorf("箇条書きスライドとして解釈されていません: %+v", record)
		}
		if record.Layout.ImageWidth != 0.5 {
			t.Errorf("レイアウトヒントが失われています: %+v", record.Layout)
		}
	})

	t.Run("不正なJSONは ValidationError になること", func(t *testing.T) {
		_, err := ParseSlideRecord(`{ not json }`)
		if err == nil {
			t.Fatal("不正なJSONでエラーが発生しませんでした")
		}
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("ValidationError ではないエラー型です: %T", err)
		}
	})
}

func TestNewCoverSlide(t *testing.T) {
	cover := NewCoverSlide("生成AIの最新動向")
	if cover.Style != StyleCover {
		t.Errorf("表紙スタイルではありません: %s", cover.Style)
	}
	if cover.Title != "生成AIの最新動向" {
		t.Errorf("タイトルがトピックと一致しません: %s", cover.Title)
	}
	if err := cover.Validate(); err != nil {
		t.Errorf("合成された表紙が検証を通りません: %v", err)
	}
}
