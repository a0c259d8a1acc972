package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/shouni/go-slide-kit/internal/builder"
	"github.com/shouni/go-slide-kit/internal/config"
	"github.com/shouni/go-slide-kit/pkg/agent"
	"github.com/shouni/go-slide-kit/pkg/domain"
	"github.com/shouni/go-slide-kit/pkg/genai"
)

// fakeReader はパスからバイト列を引くだけの入力リーダーです。
type fakeReader struct {
	files map[string][]byte
}

func (f *fakeReader) Open(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("ファイルが見つかりません: %s", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

const minimalSpecJSON = `{
	"topic": "Go の並行処理",
	"sub_topics": ["goroutine"],
	"output_path": "gs://deck/out",
	"theme": {
		"fonts": {
			"title":  {"name": "Meiryo", "size": 32},
			"text":   {"name": "Meiryo", "size": 16},
			"table":  {"name": "Meiryo", "size": 14},
			"footer": {"name": "Meiryo", "size": 10}
		}
	}
}`

func testAppContext(cfg *config.Config, reader *fakeReader) *builder.AppContext {
	appCtx := builder.NewAppContext(cfg, nil, nil, reader, nil)
	return &appCtx
}

func TestLoadSpec(t *testing.T) {
	reader := &fakeReader{files: map[string][]byte{
		"spec.json": []byte(minimalSpecJSON),
	}}

	t.Run("仕様の出力先がそのまま使われるのだ", func(t *testing.T) {
		appCtx := testAppContext(&config.Config{}, reader)
		spec, err := loadSpec(context.Background(), appCtx, "spec.json")
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if spec.OutputPath != "gs://deck/out" {
			t.Errorf("出力先が書き換わっているのだ: %q", spec.OutputPath)
		}
		if spec.SearchSource != domain.SourceSerper {
			t.Errorf("省略時は serper になるはずなのだ: %q", spec.SearchSource)
		}
	})

	t.Run("LOCAL_OUTPUT_PATH は拡張子を落としてディレクトリ扱いなのだ", func(t *testing.T) {
		cfg := &config.Config{LocalOutputPath: "local/deck.pptx"}
		appCtx := testAppContext(cfg, reader)
		spec, err := loadSpec(context.Background(), appCtx, "spec.json")
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if spec.OutputPath != "local/deck" {
			t.Errorf("環境変数の上書きが効いていないのだ: %q", spec.OutputPath)
		}
	})

	t.Run("CLIフラグは環境変数より強いのだ", func(t *testing.T) {
		cfg := &config.Config{LocalOutputPath: "local/deck.pptx"}
		cfg.Options.OutputDir = "flag/out"
		appCtx := testAppContext(cfg, reader)
		spec, err := loadSpec(context.Background(), appCtx, "spec.json")
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if spec.OutputPath != "flag/out" {
			t.Errorf("フラグの上書きが効いていないのだ: %q", spec.OutputPath)
		}
	})

	t.Run("検索ソースの上書きが効くのだ", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Options.Source = "youtube"
		appCtx := testAppContext(cfg, reader)
		spec, err := loadSpec(context.Background(), appCtx, "spec.json")
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if spec.SearchSource != domain.SourceYouTube {
			t.Errorf("ソースの上書きが効いていないのだ: %q", spec.SearchSource)
		}
	})

	t.Run("不正なソース上書きは拒否されるのだ", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Options.Source = "tiktok"
		appCtx := testAppContext(cfg, reader)
		if _, err := loadSpec(context.Background(), appCtx, "spec.json"); err == nil {
			t.Fatal("不正なソースはエラーになるはずなのだ")
		}
	})

	t.Run("壊れたJSONは ConfigError になるのだ", func(t *testing.T) {
		broken := &fakeReader{files: map[string][]byte{"bad.json": []byte("{")}}
		appCtx := testAppContext(&config.Config{}, broken)
		if _, err := loadSpec(context.Background(), appCtx, "bad.json"); err == nil {
			t.Fatal("壊れたJSONはエラーになるはずなのだ")
		}
	})
}

func TestEmptyDeckError(t *testing.T) {
	err := &EmptyDeckError{Topic: "Go の並行処理"}
	if !strings.Contains(err.Error(), "Go の並行処理") {
		t.Errorf("エラー文言にトピックが含まれるはずなのだ: %q", err.Error())
	}
}

// stubAgent は固定の収集結果を返すソースエージェントです。
type stubAgent struct {
	results []agent.Result
}

func (s *stubAgent) ProcessTopic(_ context.Context, _ *domain.PresentationSpec) ([]agent.Result, error) {
	return s.results, nil
}

// stubCompiler は受け取ったサマリーを記録し、固定のスライド列を返します。
type stubCompiler struct {
	summaries map[string]string
	records   []domain.SlideRecord
}

func (s *stubCompiler) Compile(_ context.Context, _ *domain.PresentationSpec, summaries map[string]string) ([]domain.SlideRecord, error) {
	s.summaries = summaries
	return s.records, nil
}

func pipelineSpec() *domain.PresentationSpec {
	return &domain.PresentationSpec{
		Topic:      "Go の並行処理",
		SubTopics:  []string{"A", "B"},
		OutputPath: "/tmp/out",
		Theme: domain.Theme{
			Fonts: domain.ThemeFonts{
				Title:  domain.Font{Name: "Meiryo", Size: 32},
				Text:   domain.Font{Name: "Meiryo", Size: 16},
				Table:  domain.Font{Name: "Meiryo", Size: 14},
				Footer: domain.Font{Name: "Meiryo", Size: 10},
			},
		},
	}
}

func TestCompileRecords(t *testing.T) {
	t.Run("失敗したサブトピックだけ落として残りでデッキを作るのだ", func(t *testing.T) {
		spec := pipelineSpec()
		src := &stubAgent{results: []agent.Result{
			{Subtopic: "A", Text: "text-a"},
			{Subtopic: "B", Err: errors.New("収集に失敗したのだ")},
		}}
		comp := &stubCompiler{records: []domain.SlideRecord{
			domain.NewCoverSlide(spec.Topic),
			{Title: "A", Style: domain.StyleParagraph, Content: domain.NewParagraphContent("text-a")},
		}}

		records, err := compileRecords(context.Background(), src, comp, spec)
		if err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("表紙と成功分の2枚になるはずなのだ: got %d", len(records))
		}
		if records[1].Title != "A" {
			t.Errorf("成功したサブトピックが残るはずなのだ: %q", records[1].Title)
		}
		if len(comp.summaries) != 1 || comp.summaries["A"] != "text-a" {
			t.Errorf("構成器には成功分だけ渡るはずなのだ: %v", comp.summaries)
		}
	})

	t.Run("表紙しか残らなければ EmptyDeckError なのだ", func(t *testing.T) {
		spec := pipelineSpec()
		src := &stubAgent{results: []agent.Result{
			{Subtopic: "A", Err: errors.New("収集に失敗したのだ")},
			{Subtopic: "B", Err: errors.New("収集に失敗したのだ")},
		}}
		comp := &stubCompiler{records: []domain.SlideRecord{
			domain.NewCoverSlide(spec.Topic),
		}}

		_, err := compileRecords(context.Background(), src, comp, spec)
		var deckErr *EmptyDeckError
		if !errors.As(err, &deckErr) {
			t.Fatalf("EmptyDeckError になるはずなのだ: %v", err)
		}
		if deckErr.Topic != spec.Topic {
			t.Errorf("トピックが引き継がれるはずなのだ: %q", deckErr.Topic)
		}
	})
}

// fakeGen は画像生成の要求を記録し、常に成功する画像供給源です。
type fakeGen struct {
	requests []genai.ImageRequest
}

func (f *fakeGen) GenerateImage(_ context.Context, req genai.ImageRequest) (string, error) {
	f.requests = append(f.requests, req)
	return req.TargetPath, nil
}

func (f *fakeGen) SaveBase64Image(_ context.Context, _, targetPath string) (string, error) {
	return targetPath, nil
}

// imageReader は fakeGen が書いたことにしたパスへ PNG バイト列を返します。
type imageReader struct {
	gen *fakeGen
}

func (r *imageReader) Open(_ context.Context, path string) (io.ReadCloser, error) {
	for _, req := range r.gen.requests {
		if req.TargetPath == path {
			return io.NopCloser(bytes.NewReader([]byte{0x89, 0x50, 0x4e, 0x47})), nil
		}
	}
	return nil, fmt.Errorf("ファイルが見つかりません: %s", path)
}

// fakeWriter は書き込まれたパスをメモリに貯めるだけの出力ライターです。
type fakeWriter struct {
	files map[string][]byte
}

func (w *fakeWriter) Write(_ context.Context, path string, r io.Reader, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if w.files == nil {
		w.files = map[string][]byte{}
	}
	w.files[path] = data
	return nil
}

func (w *fakeWriter) hasSuffix(suffix string) bool {
	for path := range w.files {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func TestRenderAndPublish(t *testing.T) {
	t.Run("1枚も描画できなければ EmptyDeckError なのだ", func(t *testing.T) {
		gen := &fakeGen{}
		writer := &fakeWriter{}
		appCtx := builder.NewAppContext(&config.Config{}, nil, nil, &imageReader{gen: gen}, writer)

		spec := pipelineSpec()
		spec.Slides = []domain.SlideRecord{
			{Title: "", Style: domain.StyleParagraph, Content: domain.NewParagraphContent("タイトル無しなのだ")},
		}

		err := renderAndPublish(context.Background(), &appCtx, gen, spec)
		var deckErr *EmptyDeckError
		if !errors.As(err, &deckErr) {
			t.Fatalf("EmptyDeckError になるはずなのだ: %v", err)
		}
		if writer.hasSuffix(".pptx") {
			t.Error("空のデッキは保存されないはずなのだ")
		}
	})
}

func TestRenderFromRecords(t *testing.T) {
	t.Run("再描画の前にロゴを解決し直すのだ", func(t *testing.T) {
		gen := &fakeGen{}
		writer := &fakeWriter{}
		appCtx := builder.NewAppContext(&config.Config{}, nil, nil, &imageReader{gen: gen}, writer)

		// スナップショットには logo_description が残り、解決済みパスは残らない
		spec := pipelineSpec()
		spec.LogoDescription = "青い gopher の意匠"
		spec.Slides = []domain.SlideRecord{
			domain.NewCoverSlide(spec.Topic),
			{Title: "A", Style: domain.StyleParagraph, Content: domain.NewParagraphContent("本文なのだ")},
		}

		if err := renderFromRecords(context.Background(), &appCtx, gen, spec); err != nil {
			t.Fatalf("予期しないエラーなのだ: %v", err)
		}
		if spec.LogoPath == "" {
			t.Error("描画前にロゴのパスが解決されるはずなのだ")
		}
		found := false
		for _, req := range gen.requests {
			if strings.Contains(req.Prompt, "青い gopher の意匠") {
				found = true
			}
		}
		if !found {
			t.Error("ロゴの説明文から画像生成が要求されるはずなのだ")
		}
		if !writer.hasSuffix("presentation.pptx") {
			t.Error("再描画したデッキが保存されるはずなのだ")
		}
	})
}
