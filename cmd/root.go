package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-slide-kit/internal/config"

	"github.com/spf13/cobra"
)

// opts は全サブコマンドで共有する実行時パラメータなのだ。
var opts config.GenerateOptions

// rootCmd は go-slide-kit のトップレベルコマンドなのだ。
var rootCmd = &cobra.Command{
	Use:   "go-slide-kit",
	Short: "トピックから調査・構成・描画までを行うプレゼン生成ツールなのだ。",
	Long: `検索エージェントで素材を集め、Geminiでスライド構成を生成し、
決定的なレイアウトエンジンで .pptx に描画するのだ。
全工程の generate のほか、構成のみの slides、再描画のみの render が使えるのだよ。`,
	PersistentPreRunE: preRunAppE,
	SilenceUsage:      true,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- ソース入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.SpecFile, "spec-file", "f", "", "プレゼン仕様JSONのパス（'-'で標準入力なのだ）。")

	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "仕様の output_path を上書きする保存先（ローカル or gs://...）なのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.AIModel, "model", "", "スライド構成に使う Gemini モデル名（未指定なら GEMINI_MODEL）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.FastModel, "fast-model", "", "要約・検索クエリに使う高速モデル名（未指定なら GEMINI_FAST_MODEL）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", "", "画像生成に使う Gemini モデル名（未指定なら IMAGE_GEMINI_MODEL）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.Source, "source", "s", "", "検索ソース（serper / youtube）の上書きなのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.RateInterval, "rate-interval", config.DefaultRateInterval, "スライド生成APIのレート制御間隔なのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}

	return nil
}

// loadMergedConfig は環境変数の設定を読み、CLIフラグで上書きした Config を返すのだ。
func loadMergedConfig() *config.Config {
	cfg := config.LoadConfig()
	if opts.AIModel != "" {
		cfg.GeminiModel = opts.AIModel
	}
	if opts.FastModel != "" {
		cfg.GeminiFastModel = opts.FastModel
	}
	if opts.ImageModel != "" {
		cfg.GeminiImageModel = opts.ImageModel
	}
	cfg.Options = opts
	return cfg
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(generateCmd, slidesCmd, renderCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("コマンドの実行に失敗したのだ", "error", err)
		os.Exit(1)
	}
}
