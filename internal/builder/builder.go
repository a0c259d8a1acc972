package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shouni/go-slide-kit/internal/config"
	"github.com/shouni/go-slide-kit/pkg/agent"
	"github.com/shouni/go-slide-kit/pkg/compiler"
	"github.com/shouni/go-slide-kit/pkg/domain"
	slidegenai "github.com/shouni/go-slide-kit/pkg/genai"
	"github.com/shouni/go-slide-kit/pkg/prompts"
	"github.com/shouni/go-slide-kit/pkg/publisher"
	"github.com/shouni/go-slide-kit/pkg/render"

	"github.com/patrickmn/go-cache"
	imagekit "github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-web-exact/v2/pkg/extract"
	"google.golang.org/genai"
)

// 画像キャッシュの寿命設定なのだ
const (
	defaultCacheExpiration = 5 * time.Minute
	cacheCleanupInterval   = 15 * time.Minute
	defaultTTL             = 5 * time.Minute
)

// InitializeAIClient は gemini クライアントを初期化します。
func InitializeAIClient(ctx context.Context, apiKey string) (gemini.GenerativeModel, error) {
	const defaultGeminiTemperature = float32(0.2)
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// BuildGenAIClient は、テキスト生成と画像生成をまとめた生成クライアントを構築します。
// 画像系はキャッシュ付きの GeminiImageCore を経由させるのだ。
func BuildGenAIClient(appCtx *AppContext) (*slidegenai.Client, error) {
	pb, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("プロンプトビルダーの初期化に失敗しました: %w", err)
	}

	imgGen, err := initializeImageGenerator(appCtx)
	if err != nil {
		return nil, fmt.Errorf("GeminiGeneratorの初期化に失敗したのだ: %w", err)
	}

	return slidegenai.New(
		appCtx.aiClient,
		imgGen,
		appCtx.Writer,
		pb,
		appCtx.Config.GeminiModel,
		appCtx.Config.GeminiFastModel,
	), nil
}

// BuildSourceAgent は仕様の search_source に応じた収集エージェントを構築します。
func BuildSourceAgent(appCtx *AppContext, source domain.SearchSource, text slidegenai.TextGenerator) (agent.SourceAgent, error) {
	pb, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("プロンプトビルダーの初期化に失敗しました: %w", err)
	}

	timeout := appCtx.Options.HTTPTimeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	apiClient := &http.Client{Timeout: timeout}

	switch source {
	case domain.SourceYouTube:
		return agent.NewYouTubeAgent(
			appCtx.Config.YouTubeAPIKey,
			apiClient,
			text,
			pb,
			appCtx.Config.GeminiFastModel,
		)
	case domain.SourceSerper:
		extractor, err := extract.NewExtractor(appCtx.httpClient)
		if err != nil {
			return nil, fmt.Errorf("本文抽出エンジンの初期化に失敗しました: %w", err)
		}
		return agent.NewSerperAgent(
			appCtx.Config.SerperAPIKey,
			apiClient,
			extractor,
			text,
			pb,
			appCtx.Config.GeminiFastModel,
		)
	default:
		return nil, &domain.ConfigError{Field: "search_source", Reason: fmt.Sprintf("未対応の検索ソースです: %q", source)}
	}
}

// BuildCompiler はスライド列の生成器を構築します。
func BuildCompiler(appCtx *AppContext, text slidegenai.TextGenerator) (*compiler.Compiler, error) {
	pb, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("プロンプトビルダーの初期化に失敗しました: %w", err)
	}

	interval := appCtx.Options.RateInterval
	if interval <= 0 {
		interval = compiler.DefaultRateInterval
	}
	return compiler.New(text, pb, appCtx.Config.GeminiModel, interval), nil
}

// BuildRenderer はスライド記録をデッキ図形へ落とし込むレンダラーを構築します。
func BuildRenderer(appCtx *AppContext, images slidegenai.ImageGenerator, spec *domain.PresentationSpec) *render.Renderer {
	return render.New(images, appCtx.Reader, spec)
}

// BuildPublisher は最終成果物の保存を担当するパブリッシャーを構築します。
func BuildPublisher(appCtx *AppContext) *publisher.DeckPublisher {
	return publisher.NewDeckPublisher(appCtx.Writer)
}

// initializeImageGenerator は、画像キャッシュを含む ImageGenerator を初期化します。
func initializeImageGenerator(appCtx *AppContext) (imagekit.ImageGenerator, error) {
	imgCache := cache.New(defaultCacheExpiration, cacheCleanupInterval)
	core, err := imagekit.NewGeminiImageCore(
		appCtx.aiClient,
		appCtx.Reader,
		appCtx.httpClient,
		imgCache,
		defaultTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCore の初期化に失敗しました: %w", err)
	}

	return imagekit.NewGeminiGenerator(appCtx.Config.GeminiImageModel, core)
}
