package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultModel        = "gemini-3-flash-preview"
	DefaultImageModel   = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultRateInterval = 2 * time.Second
	DefaultSpecFile     = "examples/presentation.json" // プレゼン仕様（トピック・テーマ）を定義したJSONパス
	DefaultOutputDir    = "output"                     // 成果物（.pptx とスライド記録）のデフォルト保存先なのだ
)

// Config はアプリケーション全体の環境設定（APIキーや出力先の上書き）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiFastModel  string
	GeminiImageModel string
	SerperAPIKey     string
	YouTubeAPIKey    string

	// LocalOutputPath が設定されている場合、仕様の output_path を差し替えて
	// ローカル環境での動作確認を優先するのだ。
	LocalOutputPath string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	cfg := &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		GeminiFastModel:  envutil.GetEnv("GEMINI_FAST_MODEL", DefaultModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		SerperAPIKey:     envutil.GetEnv("SERPER_API_KEY", ""),
		YouTubeAPIKey:    envutil.GetEnv("YOUTUBE_API_KEY", ""),
		LocalOutputPath:  envutil.GetEnv("LOCAL_OUTPUT_PATH", ""),
	}
	return cfg
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// ソース入力関連
	SpecFile    string // --spec-file: プレゼン仕様JSONのパス（'-'で標準入力なのだ）
	RecordsFile string // --records-file: render サブコマンドが読むスライド記録JSON

	// 生成結果の出力設定
	OutputDir string // --output-dir

	// AI挙動設定
	AIModel    string // --model: スライド構造生成用のGeminiモデル
	FastModel  string // --fast-model: 要約・検索クエリ用の高速モデル
	ImageModel string // --image-model: 画像生成用のGeminiモデル
	Source     string // --source: 検索ソース（serper / youtube）の上書き

	// 実行制御
	HTTPTimeout  time.Duration // --http-timeout
	RateInterval time.Duration // --rate-interval: スライド生成のレート制御間隔
}
