// Package compiler は、収集済みのサブトピック別サマリーを検証済みの
// スライドレコード列へ変換します。モデルの応答が不正な場合は検証エラーを
// 次のプロンプトに埋め込んで再試行し、粘っても直らないサブトピックは
// 黙って落として残りのスライドで発表を成立させるのだ。
package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-slide-kit/pkg/domain"
	"github.com/shouni/go-slide-kit/pkg/genai"
	"github.com/shouni/go-slide-kit/pkg/prompts"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// maxAttempts はサブトピック1件あたりの生成試行回数の上限です（初回を含む）。
const maxAttempts = 3

// DefaultRateInterval はモデル呼び出しのレート制限間隔の既定値です。
const DefaultRateInterval = 2 * time.Second

// Compiler はスライド内容コンパイラです。
type Compiler struct {
	text    genai.TextGenerator
	builder prompts.PromptBuilder
	model   string // 空なら TextGenerator 側の既定モデル
	limiter *rate.Limiter
}

// New はコンパイラを初期化します。interval が 0 以下なら既定値を使います。
func New(text genai.TextGenerator, builder prompts.PromptBuilder, model string, interval time.Duration) *Compiler {
	if interval <= 0 {
		interval = DefaultRateInterval
	}
	return &Compiler{
		text:    text,
		builder: builder,
		model:   model,
		limiter: rate.NewLimiter(rate.Every(interval), 2),
	}
}

// Compile は全サブトピックを並列にコンパイルし、合成した表紙を先頭に付けて返します。
// summaries はサブトピック名からサマリーへのマップです。マップに載っていない
// サブトピックと全試行で生成が成立しなかったサブトピックは結果から抜け落ち、
// 残りの並びは spec.SubTopics の順序を保ちます。空文字のサマリーは
// スキップせず、通常どおり試行の対象になるのだ。
func (c *Compiler) Compile(ctx context.Context, spec *domain.PresentationSpec, summaries map[string]string) ([]domain.SlideRecord, error) {
	slots := make([]*domain.SlideRecord, len(spec.SubTopics))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, subtopic := range spec.SubTopics {
		i, subtopic := i, subtopic
		eg.Go(func() error {
			// スキップするのは収集が失敗してマップに載らなかったものだけ。
			// 空のサマリーでも生成の試行は行う。
			raw, ok := summaries[subtopic]
			if !ok {
				slog.Warn("サマリーが無いのでスライド化をスキップするのだ", "subtopic", subtopic)
				return nil
			}

			record, err := c.compileOne(egCtx, subtopic, raw)
			if err != nil {
				// キャンセルは全体に伝播させ、生成の失敗はこのスライドだけを落とす
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				slog.Warn("スライド生成が成立しなかったので落とすのだ", "subtopic", subtopic, "error", err)
				return nil
			}
			slots[i] = record
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	records := make([]domain.SlideRecord, 0, len(spec.SubTopics)+1)
	records = append(records, domain.NewCoverSlide(spec.Topic))
	for _, record := range slots {
		if record != nil {
			records = append(records, *record)
		}
	}
	return records, nil
}

// compileOne はサブトピック1件を最大 maxAttempts 回までの試行でレコード化します。
// 前回の失敗内容をそのまま次のプロンプトに埋め込み、モデル自身に修正させます。
func (c *Compiler) compileOne(ctx context.Context, subtopic, raw string) (*domain.SlideRecord, error) {
	logger := slog.With("subtopic", subtopic)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		errorContext := ""
		if lastErr != nil {
			errorContext = lastErr.Error()
		}
		prompt, err := c.builder.Build(prompts.ModeSlide, prompts.TemplateData{
			Title:        subtopic,
			RawContent:   raw,
			ErrorContext: errorContext,
		})
		if err != nil {
			// テンプレート不備は試行を重ねても直らない
			return nil, fmt.Errorf("スライドプロンプトの構築に失敗しました: %w", err)
		}

		resp, err := c.text.GenerateText(ctx, prompt, true, c.model)
		if err != nil {
			lastErr = err
			logger.Warn("スライドJSONの生成に失敗したのだ", "attempt", attempt, "error", err)
			continue
		}

		record, err := domain.ParseSlideRecord(resp)
		if err != nil {
			lastErr = err
			logger.Warn("スライドJSONが検証を通らなかったのだ", "attempt", attempt, "error", err)
			continue
		}

		// 生成元のサマリーを話者ノートとして保持する
		record.Notes = raw
		logger.Info("スライドを構築したのだ", "attempt", attempt, "style", record.Style)
		return &record, nil
	}

	return nil, fmt.Errorf("スライド生成が %d 回の試行で成立しませんでした: %w", maxAttempts, lastErr)
}
