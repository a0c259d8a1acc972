package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-slide-kit/pkg/asset"
	"github.com/shouni/go-slide-kit/pkg/domain"
	"github.com/shouni/go-slide-kit/pkg/genai"
)

// logoSource はロゴ画像を用意できる生成クライアントの契約です。
type logoSource interface {
	SaveBase64Image(ctx context.Context, encoded, targetPath string) (string, error)
	GenerateImage(ctx context.Context, req genai.ImageRequest) (string, error)
}

// LogoRunner は仕様に埋め込まれたロゴ指定を実ファイルへ解決する実行器です。
// base64 添付が最優先で、無ければ説明文から画像を生成します。
// どちらも無い、あるいは失敗した場合はロゴ無しで続行するのだ。
type LogoRunner struct {
	source logoSource
}

func NewLogoRunner(source logoSource) *LogoRunner {
	return &LogoRunner{source: source}
}

// Run はロゴを解決して spec.LogoPath に保存先を書き込みます。
func (r *LogoRunner) Run(ctx context.Context, spec *domain.PresentationSpec) {
	if spec.LogoBase64 == "" && spec.LogoDescription == "" {
		return
	}

	targetPath, err := asset.ScreenshotPath(spec.OutputPath, asset.DefaultLogoFileName)
	if err != nil {
		slog.Warn("ロゴ保存先の解決に失敗したのだ", "error", err)
		return
	}

	if spec.LogoBase64 != "" {
		path, err := r.source.SaveBase64Image(ctx, spec.LogoBase64, targetPath)
		if err != nil {
			slog.Warn("添付ロゴの保存に失敗したのだ", "error", err)
			return
		}
		spec.LogoPath = path
		slog.Info("添付ロゴを保存したのだ", "path", path)
		return
	}

	path, err := r.source.GenerateImage(ctx, genai.ImageRequest{
		Prompt:      fmt.Sprintf("A simple, clean corporate logo. logo_description: %s", spec.LogoDescription),
		TargetPath:  targetPath,
		AspectRatio: "1:1",
	})
	if err != nil {
		slog.Warn("ロゴ生成に失敗したのだ。ロゴ無しで続行するのだ", "error", err)
		return
	}
	spec.LogoPath = path
	slog.Info("ロゴを生成したのだ", "path", path)
}
