package genai

import (
	"strings"
	"testing"
)

func TestExtractStructured(t *testing.T) {
	t.Run("前置きの混じった応答からJSONを取り出せるのだ", func(t *testing.T) {
		raw := "Here is your slide:\n{\"title\": \"AI\", \"style\": \"paragraph\"}\nHope this helps!"
		got, err := ExtractStructured(raw)
		if err != nil {
			t.Fatalf("抽出失敗なのだ: %v", err)
		}
		if !strings.HasPrefix(got, "{") || !strings.HasSuffix(got, "}") {
			t.Errorf("波括弧スパンになっていません: %s", got)
		}
		if strings.Contains(got, "\n") {
			t.Error("改行が正規化されていません")
		}
	})

	t.Run("入れ子のオブジェクトでも最外のスパンを返すこと", func(t *testing.T) {
		raw := `{"title": "t", "layout": {"image_width": 0.5}} trailing {`
		got, err := ExtractStructured(raw)
		if err != nil {
			t.Fatalf("抽出失敗なのだ: %v", err)
		}
		if got != `{"title": "t", "layout": {"image_width": 0.5}}` {
			t.Errorf("最外スパンと一致しません: %s", got)
		}
	})

	t.Run("文字列リテラル内の波括弧は深さに数えないのだ", func(t *testing.T) {
		raw := `{"title": "set {a, b}", "style": "paragraph"}`
		got, err := ExtractStructured(raw)
		if err != nil {
			t.Fatalf("抽出失敗なのだ: %v", err)
		}
		if !strings.Contains(got, "set {a, b}") {
			t.Errorf("文字列内の波括弧が壊れています: %s", got)
		}
	})

	t.Run("波括弧が見つからない応答は失敗すること", func(t *testing.T) {
		_, err := ExtractStructured("I cannot produce JSON for this request.")
		if err == nil {
			t.Fatal("JSONなしの応答でエラーが発生しませんでした")
		}
		if !IsMalformed(err) {
			t.Errorf("FailureMalformedOutput ではありません: %v", err)
		}
	})

	t.Run("釣り合いの取れない波括弧は失敗すること", func(t *testing.T) {
		_, err := ExtractStructured(`{"title": "broken"`)
		if err == nil || !IsMalformed(err) {
			t.Errorf("不完全なスパンで失敗しませんでした: %v", err)
		}
	})

	t.Run("抽出できてもJSONとして不正なら失敗すること", func(t *testing.T) {
		_, err := ExtractStructured("{title: unquoted}")
		if err == nil || !IsMalformed(err) {
			t.Errorf("不正なJSONで失敗しませんでした: %v", err)
		}
	})

	t.Run("混入したシングルクォートは除去されること", func(t *testing.T) {
		got, err := ExtractStructured(`{"title": "it's fine"}`)
		if err != nil {
			t.Fatalf("抽出失敗なのだ: %v", err)
		}
		if strings.Contains(got, "'") {
			t.Errorf("シングルクォートが残っています: %s", got)
		}
	})
}
