package compiler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-slide-kit/pkg/domain"
	"github.com/shouni/go-slide-kit/pkg/prompts"
)

// scriptedText はサブトピックごとに台本どおりの応答を順に返すテキスト生成器です。
type scriptedText struct {
	mu      sync.Mutex
	scripts map[string][]string // キーはプロンプトに含まれるサブトピック名
	prompts []string
}

func (s *scriptedText) GenerateText(_ context.Context, prompt string, _ bool, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)

	for key, responses := range s.scripts {
		if !strings.Contains(prompt, key) {
			continue
		}
		if len(responses) == 0 {
			return "", errors.New("台本が尽きたのだ")
		}
		next := responses[0]
		s.scripts[key] = responses[1:]
		if next == "ERROR" {
			return "", errors.New("一時的なバックエンド障害なのだ")
		}
		return next, nil
	}
	return "", errors.New("どの台本にも一致しないプロンプトなのだ")
}

func newTestCompiler(text *scriptedText) *Compiler {
	builder, err := prompts.NewTextPromptBuilder()
	if err != nil {
		panic(err)
	}
	return New(text, builder, "", time.Millisecond)
}

func testCompileSpec(subtopics ...string) *domain.PresentationSpec {
	return &domain.PresentationSpec{
		Topic:     "Go の並行処理",
		SubTopics: subtopics,
	}
}

const validSlide = `{"title": "goroutine", "style": "paragraph", "content": "軽量スレッドの話"}`

func TestCompile(t *testing.T) {
	t.Run("表紙が先頭に合成される", func(t *testing.T) {
		text := &scriptedText{scripts: map[string][]string{
			"goroutine": {validSlide},
		}}
		records, err := newTestCompiler(text).Compile(context.Background(),
			testCompileSpec("goroutine"), map[string]string{"goroutine": "summary"})
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("レコード数 = %d, want 2", len(records))
		}
		cover := records[0]
		if cover.Style != domain.StyleCover || cover.Title != "Go の並行処理" {
			t.Errorf("表紙が不正なのだ: %+v", cover)
		}
		if cover.Content != nil {
			t.Error("表紙が本文を持っているのだ")
		}
	})

	t.Run("検証エラーは次のプロンプトにそのまま埋め込まれる", func(t *testing.T) {
		invalid := `{"title": "goroutine", "style": "bullets", "content": "配列のはずが文字列"}`
		text := &scriptedText{scripts: map[string][]string{
			"goroutine": {invalid, validSlide},
		}}
		records, err := newTestCompiler(text).Compile(context.Background(),
			testCompileSpec("goroutine"), map[string]string{"goroutine": "summary"})
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("リトライで復旧していないのだ: レコード数 = %d", len(records))
		}

		if len(text.prompts) != 2 {
			t.Fatalf("プロンプト数 = %d, want 2", len(text.prompts))
		}
		if strings.Contains(text.prompts[0], "Previous attempt failed") {
			t.Error("初回プロンプトにエラー文脈が入っているのだ")
		}
		retry := text.prompts[1]
		if !strings.Contains(retry, "Previous attempt failed with error:") {
			t.Error("リトライプロンプトにエラー文脈が無いのだ")
		}
		if !strings.Contains(retry, "bullets style requires a list of bullet items") {
			t.Errorf("検証エラーの本文が引き継がれていないのだ: %s", retry)
		}
	})

	t.Run("3回失敗したサブトピックは黙って落ちる", func(t *testing.T) {
		text := &scriptedText{scripts: map[string][]string{
			"goroutine": {"ERROR", "ERROR", "ERROR"},
			"channel":   {`{"title": "channel", "style": "paragraph", "content": "本文"}`},
		}}
		records, err := newTestCompiler(text).Compile(context.Background(),
			testCompileSpec("goroutine", "channel"),
			map[string]string{"goroutine": "s1", "channel": "s2"})
		if err != nil {
			t.Fatalf("1枚の失敗が全体を落としたのだ: %v", err)
		}
		if len(records) != 2 { // 表紙 + channel
			t.Fatalf("レコード数 = %d, want 2", len(records))
		}
		if records[1].Title != "channel" {
			t.Errorf("生き残るのは channel のはずなのだ: %+v", records[1])
		}
		if len(text.prompts) != 4 { // goroutine 3回 + channel 1回
			t.Errorf("プロンプト数 = %d, want 4", len(text.prompts))
		}
	})

	t.Run("結果はサブトピックの宣言順に並ぶ", func(t *testing.T) {
		slide := func(title string) string {
			return `{"title": "` + title + `", "style": "paragraph", "content": "本文"}`
		}
		text := &scriptedText{scripts: map[string][]string{
			"subtopic-a": {slide("A")},
			"subtopic-b": {slide("B")},
			"subtopic-c": {slide("C")},
		}}
		records, err := newTestCompiler(text).Compile(context.Background(),
			testCompileSpec("subtopic-a", "subtopic-b", "subtopic-c"),
			map[string]string{"subtopic-a": "sa", "subtopic-b": "sb", "subtopic-c": "sc"})
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		got := []string{records[1].Title, records[2].Title, records[3].Title}
		want := []string{"A", "B", "C"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("並び順 = %v, want %v", got, want)
			}
		}
	})

	t.Run("マップに載っていないサブトピックはモデルを呼ばずに抜ける", func(t *testing.T) {
		text := &scriptedText{scripts: map[string][]string{}}
		records, err := newTestCompiler(text).Compile(context.Background(),
			testCompileSpec("goroutine"), map[string]string{})
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("表紙だけのはずなのだ: %d", len(records))
		}
		if len(text.prompts) != 0 {
			t.Errorf("モデルが呼ばれているのだ: %d", len(text.prompts))
		}
	})

	t.Run("空のサマリーでも試行は省略されない", func(t *testing.T) {
		text := &scriptedText{scripts: map[string][]string{
			"goroutine": {validSlide},
		}}
		records, err := newTestCompiler(text).Compile(context.Background(),
			testCompileSpec("goroutine"), map[string]string{"goroutine": ""})
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("レコード数 = %d, want 2", len(records))
		}
		if len(text.prompts) != 1 {
			t.Errorf("モデルが呼ばれていないのだ: %d", len(text.prompts))
		}
		if records[1].Notes != "" {
			t.Errorf("ノートは空のはずなのだ: %q", records[1].Notes)
		}
	})

	t.Run("空のサマリーも試行回数を使い切ってから落ちる", func(t *testing.T) {
		text := &scriptedText{scripts: map[string][]string{
			"goroutine": {"ERROR", "ERROR", "ERROR"},
		}}
		records, err := newTestCompiler(text).Compile(context.Background(),
			testCompileSpec("goroutine"), map[string]string{"goroutine": "   "})
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("表紙だけのはずなのだ: %d", len(records))
		}
		if len(text.prompts) != 3 {
			t.Errorf("3回の試行が行われるはずなのだ: %d", len(text.prompts))
		}
	})

	t.Run("生成元サマリーが話者ノートになる", func(t *testing.T) {
		text := &scriptedText{scripts: map[string][]string{
			"goroutine": {validSlide},
		}}
		records, err := newTestCompiler(text).Compile(context.Background(),
			testCompileSpec("goroutine"), map[string]string{"goroutine": "話者向けの元ネタなのだ"})
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		if records[1].Notes != "話者向けの元ネタなのだ" {
			t.Errorf("ノート = %q", records[1].Notes)
		}
	})
}
