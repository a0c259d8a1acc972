package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-slide-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// generateCmd は、調査からデッキ保存までの全工程を実行するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "トピックを調査してプレゼンテーション（.pptx）を生成しますなのだ。",
	Long: `仕様JSONのサブトピックごとにWeb/動画を調査し、要約からスライド構成を生成して、
挿絵付きのデッキ（.pptx）とスライド記録（slides.json）を保存するのだ。`,
	RunE: generateCommand,
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 必須チェック
	if opts.SpecFile == "" {
		if isStdin() {
			opts.SpecFile = "-"
		} else {
			return fmt.Errorf("仕様（--spec-file）を指定してほしいのだ")
		}
	}

	// 2. 環境変数等から基本設定をロードするのだ
	cfg := loadMergedConfig()

	slog.Info("プレゼン生成パイプラインを起動するのだ！",
		"spec", opts.SpecFile,
		"text_model", cfg.GeminiModel,
		"image_model", cfg.GeminiImageModel)

	// 3. 更新した config を考慮しつつパイプラインを実行するのだ
	if err := pipeline.Execute(ctx, cfg); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！")
	return nil
}

func isStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
