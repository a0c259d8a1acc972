// Package prompts は、スライド生成・要約・画像記述の各プロンプトを
// go:embed されたテンプレートから組み立てます。
package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

// テンプレートのモード名です。Builder.Build の第一引数に渡します。
const (
	ModeSlide    = "slide"    // サブトピック1件 -> スライドJSON
	ModeDescribe = "describe" // 短い題材 -> 画像生成向けの詳細な視覚記述
	ModeSummary  = "summary"  // 収集した生テキスト -> サブトピック別サマリー
	ModeQuery    = "query"    // トピック + サブトピック -> 動画検索クエリ
)

//go:embed templates/slide.md
var slideTemplate string

//go:embed templates/describe.md
var describeTemplate string

//go:embed templates/summary.md
var summaryTemplate string

//go:embed templates/query.md
var queryTemplate string

// allTemplates はモードとテンプレート文字列を紐づけるマップなのだ。
var allTemplates = map[string]string{
	ModeSlide:    slideTemplate,
	ModeDescribe: describeTemplate,
	ModeSummary:  summaryTemplate,
	ModeQuery:    queryTemplate,
}

// TemplateData はテンプレートに流し込む値の集合です。
// 各テンプレートは必要なフィールドだけを参照します。
type TemplateData struct {
	Title        string // スライドの対象サブトピック
	RawContent   string // 収集された生テキスト
	ErrorContext string // 直前の試行の検証エラー（リトライ時のみ）
	Subject      string // 画像記述の題材
	Topic        string // プレゼン全体のトピック
	SubTopics    string // サブトピック一覧（表示用に結合済み）
	SourceKind   string // "web" または "video"
	Instructions string // 追加指示
}

// PromptBuilder は、モード別プロンプトを構築する契約です。
type PromptBuilder interface {
	Build(mode string, data TemplateData) (string, error)
}

// TextPromptBuilder はプロンプトテンプレートの解析結果を保持し、モード選択のロジックを内包します。
type TextPromptBuilder struct {
	templates map[string]*template.Template
}

// NewTextPromptBuilder は TextPromptBuilder を初期化します。
func NewTextPromptBuilder() (*TextPromptBuilder, error) {
	parsedTemplates := make(map[string]*template.Template)
	for mode, content := range allTemplates {
		if content == "" {
			return nil, fmt.Errorf("プロンプトテンプレート '%s' (go:embed) の読み込みに失敗しました: 内容が空です", mode)
		}

		tmpl, err := template.New(mode).Parse(content)
		if err != nil {
			return nil, fmt.Errorf("プロンプト '%s' の解析に失敗: %w", mode, err)
		}
		parsedTemplates[mode] = tmpl
	}

	return &TextPromptBuilder{
		templates: parsedTemplates,
	}, nil
}

// Build は、要求されたモードに応じて適切なテンプレートを実行します。
func (b *TextPromptBuilder) Build(mode string, data TemplateData) (string, error) {
	tmpl, ok := b.templates[mode]
	if !ok {
		return "", fmt.Errorf("不明なモードです: '%s'", mode)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("プロンプトテンプレートの実行に失敗しました: %w", err)
	}

	return sb.String(), nil
}
