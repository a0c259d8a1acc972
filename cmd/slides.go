package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-slide-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// slidesCmd は、調査とスライド構成だけを実行して記録JSONを保存するのだ。
// 画像生成と描画を行わないので、構成の確認や手直しに向いているのだよ。
var slidesCmd = &cobra.Command{
	Use:   "slides",
	Short: "調査とスライド構成のみを実行し、スライド記録（slides.json）を保存しますなのだ。",
	RunE:  slidesCommand,
}

func slidesCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.SpecFile == "" {
		if isStdin() {
			opts.SpecFile = "-"
		} else {
			return fmt.Errorf("仕様（--spec-file）を指定してほしいのだ")
		}
	}

	cfg := loadMergedConfig()

	slog.Info("スライド構成パイプラインを起動するのだ！",
		"spec", opts.SpecFile,
		"text_model", cfg.GeminiModel)

	if err := pipeline.ExecuteSlidesOnly(ctx, cfg); err != nil {
		return fmt.Errorf("スライド構成中にエラーが発生したのだ: %w", err)
	}

	slog.Info("スライド構成の工程が完了したのだ！")
	return nil
}
