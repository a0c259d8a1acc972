package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shouni/go-slide-kit/internal/builder"
	"github.com/shouni/go-slide-kit/internal/config"
	"github.com/shouni/go-slide-kit/internal/runner"
	"github.com/shouni/go-slide-kit/pkg/agent"
	"github.com/shouni/go-slide-kit/pkg/domain"
	"github.com/shouni/go-slide-kit/pkg/genai"
	"github.com/shouni/go-slide-kit/pkg/publisher"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
)

// EmptyDeckError は、サブトピックのスライドが1枚も生成できず
// 表紙しか残らなかったときに返る致命エラーです。
type EmptyDeckError struct {
	Topic string
}

func (e *EmptyDeckError) Error() string {
	return fmt.Sprintf("トピック %q の本文スライドが1枚も生成できませんでした（表紙のみ）", e.Topic)
}

// Execute は「収集 → 構成 → 描画 → 保存」の全工程を実行するのだ。
func Execute(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	spec, err := loadSpec(ctx, appCtx, appCtx.Options.SpecFile)
	if err != nil {
		return err
	}

	gen, err := builder.BuildGenAIClient(appCtx)
	if err != nil {
		return err
	}

	// ロゴは収集と並行できるがサイズが小さいので先に片付けるのだ
	runner.NewLogoRunner(gen).Run(ctx, spec)

	srcAgent, err := builder.BuildSourceAgent(appCtx, spec.SearchSource, gen)
	if err != nil {
		return err
	}
	comp, err := builder.BuildCompiler(appCtx, gen)
	if err != nil {
		return err
	}

	records, err := compileRecords(ctx, srcAgent, comp, spec)
	if err != nil {
		return err
	}
	spec.Slides = records

	return renderAndPublish(ctx, appCtx, gen, spec)
}

// ExecuteSlidesOnly は収集と構成だけを行い、スライド記録のスナップショットを保存するのだ。
// 描画と画像生成は行わないので、後から render で何度でも再現できます。
func ExecuteSlidesOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	spec, err := loadSpec(ctx, appCtx, appCtx.Options.SpecFile)
	if err != nil {
		return err
	}

	gen, err := builder.BuildGenAIClient(appCtx)
	if err != nil {
		return err
	}

	srcAgent, err := builder.BuildSourceAgent(appCtx, spec.SearchSource, gen)
	if err != nil {
		return err
	}
	comp, err := builder.BuildCompiler(appCtx, gen)
	if err != nil {
		return err
	}

	records, err := compileRecords(ctx, srcAgent, comp, spec)
	if err != nil {
		return err
	}
	spec.Slides = records

	pub := builder.BuildPublisher(appCtx)
	recordsPath, err := pub.PublishRecords(ctx, spec, publisher.Options{OutputDir: spec.OutputPath})
	if err != nil {
		return err
	}

	slog.Info("スライド構成が完了したのだ", "records", recordsPath, "slides", len(records))
	return nil
}

// ExecuteRenderOnly は保存済みのスライド記録からデッキを再構築するのだ。
// 記録に image_path が残っていれば、その画像を再利用して描画します。
func ExecuteRenderOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	recordsFile := appCtx.Options.RecordsFile
	if recordsFile == "" {
		return &domain.ConfigError{Field: "records-file", Reason: "スライド記録JSONのパスが必要です"}
	}

	spec, err := loadSpec(ctx, appCtx, recordsFile)
	if err != nil {
		return err
	}
	if len(spec.Slides) == 0 {
		return &domain.ConfigError{Field: "slides", Reason: fmt.Sprintf("%s にスライド記録が含まれていません", recordsFile)}
	}

	gen, err := builder.BuildGenAIClient(appCtx)
	if err != nil {
		return err
	}

	return renderFromRecords(ctx, appCtx, gen, spec)
}

// imageSource は描画フェーズが必要とする画像まわりの生成契約です。
type imageSource interface {
	SaveBase64Image(ctx context.Context, encoded, targetPath string) (string, error)
	GenerateImage(ctx context.Context, req genai.ImageRequest) (string, error)
}

// renderFromRecords は再描画の入口です。スナップショットには logo_base64 や
// logo_description がそのまま残っている（解決済みパスは永続化されない）ので、
// 描画の前に必ずロゴを解決し直すのだ。
func renderFromRecords(ctx context.Context, appCtx *builder.AppContext, gen imageSource, spec *domain.PresentationSpec) error {
	runner.NewLogoRunner(gen).Run(ctx, spec)
	return renderAndPublish(ctx, appCtx, gen, spec)
}

// slideCompiler は要約の束からスライド列を構成する契約です。
type slideCompiler interface {
	Compile(ctx context.Context, spec *domain.PresentationSpec, summaries map[string]string) ([]domain.SlideRecord, error)
}

// compileRecords は検索エージェントで素材を集め、スライド列へ構成します。
// 表紙以外が全滅したときは EmptyDeckError で中断するのだ。
func compileRecords(ctx context.Context, srcAgent agent.SourceAgent, comp slideCompiler, spec *domain.PresentationSpec) ([]domain.SlideRecord, error) {
	slog.Info("Phase 1: 素材の収集を開始するのだ...", "source", spec.SearchSource, "subtopics", len(spec.SubTopics))
	results, err := srcAgent.ProcessTopic(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("素材の収集に失敗したのだ: %w", err)
	}
	summaries := agent.ToSummaryMap(results)

	slog.Info("Phase 2: スライド構成を開始するのだ...", "summaries", len(summaries))
	records, err := comp.Compile(ctx, spec, summaries)
	if err != nil {
		return nil, fmt.Errorf("スライド構成に失敗したのだ: %w", err)
	}
	if len(records) <= 1 {
		return nil, &EmptyDeckError{Topic: spec.Topic}
	}
	return records, nil
}

// renderAndPublish は描画と保存のフェーズを実行します。
func renderAndPublish(ctx context.Context, appCtx *builder.AppContext, gen imageSource, spec *domain.PresentationSpec) error {
	slog.Info("Phase 3: 描画を開始するのだ...", "slides", len(spec.Slides))
	renderer := builder.BuildRenderer(appCtx, gen, spec)
	doc, rendered, err := runner.NewDeckRunner(renderer).Run(ctx, spec.Slides)
	if err != nil {
		return fmt.Errorf("デッキの描画に失敗したのだ: %w", err)
	}
	if rendered == 0 {
		return &EmptyDeckError{Topic: spec.Topic}
	}

	slog.Info("Phase 4: 保存を開始するのだ...")
	pub := builder.BuildPublisher(appCtx)
	result, err := pub.Publish(ctx, doc, spec, publisher.Options{OutputDir: spec.OutputPath})
	if err != nil {
		return fmt.Errorf("保存処理に失敗したのだ: %w", err)
	}

	slog.Info("プレゼンテーションが完成したのだ！", "deck", result.DeckPath, "records", result.RecordsPath, "slides", rendered)
	return nil
}

// setupAppContext は、提供された設定と共有コンポーネントを使用して、アプリケーションコンテキストを初期化して返すのだ。
// 初期化中にエラーが発生した場合は、AppContext のポインタとエラーを返すのだ。
func setupAppContext(ctx context.Context, cfg *config.Config) (*builder.AppContext, error) {
	timeout := cfg.Options.HTTPTimeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	httpClient := httpkit.New(timeout)
	aiClient, err := builder.InitializeAIClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create ai client: %w", err)
	}

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, err
	}

	appCtx := builder.NewAppContext(cfg, httpClient, aiClient, reader, writer)
	return &appCtx, nil
}

// loadSpec は仕様JSONを読み込み、出力先の上書きを適用します。
// パスに '-' を渡すと標準入力から読むのだ。
func loadSpec(ctx context.Context, appCtx *builder.AppContext, path string) (*domain.PresentationSpec, error) {
	var data []byte
	var err error

	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("標準入力の読み込みに失敗しました: %w", err)
		}
	} else {
		rc, err := appCtx.Reader.Open(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("仕様ファイル '%s' の読み込みに失敗しました: %w", path, err)
		}
		defer rc.Close()
		if data, err = io.ReadAll(rc); err != nil {
			return nil, fmt.Errorf("仕様ファイル '%s' の読み込みに失敗しました: %w", path, err)
		}
	}

	spec, err := domain.ParseSpec(data)
	if err != nil {
		return nil, err
	}

	if src := appCtx.Options.Source; src != "" {
		spec.SearchSource = domain.SearchSource(src)
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}

	applyOutputOverride(appCtx, spec)
	return spec, nil
}

// applyOutputOverride は出力先の優先順位を解決します。
// CLI フラグ > LOCAL_OUTPUT_PATH 環境変数 > 仕様の output_path の順なのだ。
// 環境変数がファイルパス（.pptx）を指していたら、拡張子を落としてディレクトリ扱いにします。
func applyOutputOverride(appCtx *builder.AppContext, spec *domain.PresentationSpec) {
	if local := appCtx.Config.LocalOutputPath; local != "" {
		spec.OutputPath = strings.TrimSuffix(local, ".pptx")
	}
	if dir := appCtx.Options.OutputDir; dir != "" {
		spec.OutputPath = dir
	}
}
