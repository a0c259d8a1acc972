// Package agent は、外部ソース（Web 検索・動画検索）からサブトピック別の
// サマリーを収集するソースエージェント群です。サブトピック単位の失敗は
// Result.Err として表現され、1件の失敗が収集全体を止めることはないのだ。
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/shouni/go-slide-kit/pkg/domain"
	"github.com/shouni/go-slide-kit/pkg/genai"
	"github.com/shouni/go-slide-kit/pkg/prompts"
)

// Result はサブトピック1件の収集結果です。Err が非 nil のときは Text を使えません。
type Result struct {
	Subtopic string
	Text     string
	Err      error
}

// SourceAgent は仕様の全サブトピックを処理し、宣言順の結果列を返す契約です。
// 返り値のエラーはキャンセル等の全体障害に限られ、個別の失敗は Result に載ります。
type SourceAgent interface {
	ProcessTopic(ctx context.Context, spec *domain.PresentationSpec) ([]Result, error)
}

// ToSummaryMap は成功した結果だけをサブトピック名 -> サマリーのマップに落とします。
// 落とすのは収集が失敗した結果だけで、空のサマリーはそのまま残します。
// 空でもスライド生成の試行対象として扱うためなのだ。
func ToSummaryMap(results []Result) map[string]string {
	summaries := make(map[string]string, len(results))
	for _, r := range results {
		if r.Err == nil {
			summaries[r.Subtopic] = r.Text
		}
	}
	return summaries
}

// summarizer は収集テキストのサマリー生成をまとめた共通部品です。
// どのエージェントも高速モデルで要約する点は同じなので、ここに集約します。
type summarizer struct {
	text    genai.TextGenerator
	builder prompts.PromptBuilder
	model   string // 高速モデル
}

// summarize は生テキストをプレゼンの文脈に沿ったサマリーへ変換します。
func (s *summarizer) summarize(ctx context.Context, spec *domain.PresentationSpec, sourceKind, raw, instructions string) (string, error) {
	prompt, err := s.builder.Build(prompts.ModeSummary, prompts.TemplateData{
		RawContent:   raw,
		Topic:        spec.Topic,
		SubTopics:    strings.Join(spec.SubTopics, ", "),
		SourceKind:   sourceKind,
		Instructions: instructions,
	})
	if err != nil {
		return "", fmt.Errorf("サマリープロンプトの構築に失敗しました: %w", err)
	}

	summary, err := s.text.GenerateText(ctx, prompt, false, s.model)
	if err != nil {
		return "", fmt.Errorf("サマリーの生成に失敗しました: %w", err)
	}
	if strings.TrimSpace(summary) == "" {
		return "", fmt.Errorf("サマリーが空でした")
	}
	return summary, nil
}

// focusInstruction はサブトピックへの言及を強めるサマリー用の追加指示です。
func focusInstruction(subtopic string) string {
	return fmt.Sprintf("Focus specifically on aspects related to %s.", subtopic)
}
