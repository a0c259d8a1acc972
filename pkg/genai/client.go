// Package genai は、テキスト生成と画像生成のバックエンドを包む薄い契約です。
// レイアウト処理からは決して呼ばれず、一時的な失敗は内部でリトライします。
package genai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-slide-kit/pkg/prompts"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	imagegen "github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// imageMaxAttempts は「記述生成 + 画像生成」ラウンド全体のリトライ上限です。
const imageMaxAttempts = 3

// negativeImagePrompt は文字・透かし・低品質描写を排除する標準のネガティブ指示です。
const negativeImagePrompt = "text, alphabet, letters, words, signatures, watermark, username, low quality, distorted, bad anatomy"

// TextGenerator はプロンプトからテキストを生成する契約です。
type TextGenerator interface {
	// GenerateText は prompt を model に投げ、応答テキストを返します。
	// structured が真の場合、応答から釣り合いの取れた JSON オブジェクトを
	// 取り出して返し、見つからなければ FailureMalformedOutput で失敗します。
	GenerateText(ctx context.Context, prompt string, structured bool, model string) (string, error)
}

// ImageGenerator はテキストから画像を生成し、保存先パスを返す契約です。
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}

// ImageRequest は1枚の画像生成要求です。
type ImageRequest struct {
	Prompt      string // 短い題材。クライアント側で詳細な視覚記述に展開される
	TargetPath  string // 保存先（ローカル or gs://）
	Width       int    // ピクセル幅のヒント。バックエンドにはアスペクト比として伝わる
	Height      int    // ピクセル高のヒント
	AspectRatio string // 明示指定があれば Width/Height より優先
}

// Client は Gemini のテキスト系・画像系モデルをまとめた生成クライアントの実体です。
type Client struct {
	aiClient  gemini.GenerativeModel
	imageGen  imagegen.ImageGenerator
	writer    remoteio.OutputWriter
	builder   prompts.PromptBuilder
	textModel string // スライド構造の生成に使う主モデル
	fastModel string // 要約・画像記述に使う高速モデル
}

// New は生成クライアントを初期化します。
func New(
	aiClient gemini.GenerativeModel,
	imageGen imagegen.ImageGenerator,
	writer remoteio.OutputWriter,
	builder prompts.PromptBuilder,
	textModel, fastModel string,
) *Client {
	return &Client{
		aiClient:  aiClient,
		imageGen:  imageGen,
		writer:    writer,
		builder:   builder,
		textModel: textModel,
		fastModel: fastModel,
	}
}

// TextModel は主モデル名を返します。
func (c *Client) TextModel() string { return c.textModel }

// FastModel は高速モデル名を返します。
func (c *Client) FastModel() string { return c.fastModel }

// GenerateText は TextGenerator 契約の実装です。model が空なら主モデルを使います。
func (c *Client) GenerateText(ctx context.Context, prompt string, structured bool, model string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", &GenerationError{Kind: FailureEmptyPrompt, Msg: "empty prompt"}
	}
	if model == "" {
		model = c.textModel
	}

	resp, err := c.aiClient.GenerateContent(ctx, prompt, model)
	if err != nil {
		return "", &GenerationError{Kind: FailureTransient, Msg: "text generation backend error", Err: err}
	}

	if structured {
		return ExtractStructured(resp.Text)
	}
	return resp.Text, nil
}

// GenerateImage は「題材の視覚記述への展開 -> 画像生成 -> 保存」を一括で行います。
// ラウンド全体を最大3回まで繰り返し、前回の失敗メッセージを次の記述プロンプトに
// 持ち込むことでモデル自身に修正させるのだ。全試行を使い切ったら失敗を返します。
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", &GenerationError{Kind: FailureEmptyPrompt, Msg: "empty image prompt"}
	}
	if req.TargetPath == "" {
		return "", &GenerationError{Kind: FailureEmptyPrompt, Msg: "no target path provided"}
	}

	aspect := req.AspectRatio
	if aspect == "" {
		aspect = aspectRatioFor(req.Width, req.Height)
	}

	var lastErr error
	for attempt := 1; attempt <= imageMaxAttempts; attempt++ {
		subject := req.Prompt
		if lastErr != nil {
			subject = fmt.Sprintf("%s Previous attempt failed with error: %v. Please adjust the description to avoid this error.", req.Prompt, lastErr)
		}

		description, err := c.describeImage(ctx, subject)
		if err != nil {
			lastErr = err
			slog.Warn("画像記述の生成に失敗したのだ", "attempt", attempt, "error", err)
			continue
		}

		resp, err := c.imageGen.GenerateMangaPanel(ctx, imagedom.ImageGenerationRequest{
			Prompt:         description,
			NegativePrompt: negativeImagePrompt,
			AspectRatio:    aspect,
		})
		if err != nil {
			lastErr = err
			slog.Warn("画像生成に失敗したのだ", "attempt", attempt, "error", err)
			continue
		}

		if err := c.writer.Write(ctx, req.TargetPath, bytes.NewReader(resp.Data), resp.MimeType); err != nil {
			lastErr = err
			slog.Warn("画像の書き込みに失敗したのだ", "attempt", attempt, "path", req.TargetPath, "error", err)
			continue
		}

		slog.Info("画像を保存したのだ", "path", req.TargetPath, "attempt", attempt)
		return req.TargetPath, nil
	}

	return "", &GenerationError{
		Kind: FailureTransient,
		Msg:  fmt.Sprintf("image generation exhausted %d attempts", imageMaxAttempts),
		Err:  lastErr,
	}
}

// describeImage は短い題材を、画像バックエンド向けの詳細な視覚記述に展開します。
// 高速モデルで十分な仕事なので fastModel を使います。
func (c *Client) describeImage(ctx context.Context, subject string) (string, error) {
	prompt, err := c.builder.Build(prompts.ModeDescribe, prompts.TemplateData{Subject: subject})
	if err != nil {
		return "", fmt.Errorf("記述プロンプトの構築に失敗しました: %w", err)
	}

	description, err := c.GenerateText(ctx, prompt, false, c.fastModel)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(description) == "" {
		return "", &GenerationError{Kind: FailureTransient, Msg: "empty image description"}
	}
	return description, nil
}

// aspectRatioFor はピクセル寸法のヒントをバックエンドのアスペクト比指定に丸めます。
func aspectRatioFor(width, height int) string {
	switch {
	case width <= 0 || height <= 0 || width == height:
		return "1:1"
	case width > height:
		return "16:9"
	default:
		return "9:16"
	}
}
