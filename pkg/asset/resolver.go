package asset

import (
	"regexp"
	"strings"

	"github.com/shouni/go-utils/urlpath"
)

const (
	// DefaultScreenshotDir は生成画像（カバー・ロゴ・挿絵）を格納するディレクトリ名です。
	DefaultScreenshotDir = "screenshot"
	// DefaultDeckFileName は完成したプレゼンテーションのファイル名です。
	DefaultDeckFileName = "presentation.pptx"
	// DefaultCoverFileName はカバー画像のファイル名です。
	DefaultCoverFileName = "cover.png"
	// DefaultLogoFileName はロゴ画像のファイル名です。
	DefaultLogoFileName = "logo.png"
)

// unsafePathChars はファイル名に使えない文字に一致します。
var unsafePathChars = regexp.MustCompile(`[^\w\-.]`)

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から、
// GCS/ローカルを考慮した最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	return urlpath.ResolveOutputPath(baseDir, fileName)
}

// ScreenshotPath は出力先直下の screenshot ディレクトリ内のパスを解決します。
func ScreenshotPath(outputPath, fileName string) (string, error) {
	dir, err := urlpath.ResolveOutputPath(outputPath, DefaultScreenshotDir)
	if err != nil {
		return "", err
	}
	return urlpath.ResolveOutputPath(dir, fileName)
}

// SlideImageName はスライドタイトルから挿絵のファイル名を導出します。
// 空白はアンダースコアに置き換え、パスに使えない文字は落とします。
func SlideImageName(title string) string {
	name := strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	name = unsafePathChars.ReplaceAllString(name, "_")
	return "slide_" + name + ".png"
}
