package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-slide-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// renderCmd は、保存済みのスライド記録からデッキを再構築するのだ。
// 記録に image_path が残っていれば画像生成は走らず、完全に再現可能な描画になるのだよ。
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "スライド記録（slides.json）からデッキ（.pptx）を再描画しますなのだ。",
	RunE:  renderCommand,
}

func init() {
	renderCmd.Flags().StringVarP(&opts.RecordsFile, "records-file", "r", "", "スライド記録JSONのパス（slides コマンドの出力）なのだ。")
}

func renderCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.RecordsFile == "" {
		return fmt.Errorf("スライド記録（--records-file）を指定してほしいのだ")
	}

	cfg := loadMergedConfig()

	slog.Info("再描画パイプラインを起動するのだ！",
		"records", opts.RecordsFile,
		"image_model", cfg.GeminiImageModel)

	if err := pipeline.ExecuteRenderOnly(ctx, cfg); err != nil {
		return fmt.Errorf("再描画中にエラーが発生したのだ: %w", err)
	}

	slog.Info("再描画の工程が完了したのだ！")
	return nil
}
