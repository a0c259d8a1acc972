package render

import (
	"strings"

	"github.com/shouni/go-slide-kit/pkg/deck"
	"github.com/shouni/go-slide-kit/pkg/domain"
)

// レイアウト定数（インチ／ポイント）。スライドは 16:9 固定です。
const (
	slideWidthIn  = 13.333
	slideHeightIn = 7.5

	headerHeightIn = 1.2
	footerHeightIn = 0.4
	marginIn       = 0.5
	contentTopIn   = 1.5

	standardTextPt = 16.0

	// maxBulletLevel は OOXML が許す箇条書きインデントの上限段数です。
	maxBulletLevel = 8
)

// 本文／画像の左右分割比。表紙は 55/45、コンテンツは 60/40 です。
const (
	coverImageRatio  = 0.55
	contentTextRatio = 0.6
)

var (
	white      = deck.RGB{R: 255, G: 255, B: 255}
	footerTint = deck.RGB{R: 245, G: 245, B: 245}
)

// rgbOf はテーマカラーを描画色に変換します。
func rgbOf(c domain.Color) deck.RGB {
	return deck.RGB{R: c.R, G: c.G, B: c.B}
}

// fontOf はテーマのフォント定義と色から書体指定を作ります。
func fontOf(f domain.Font, c domain.Color) deck.FontSpec {
	return deck.FontSpec{Name: f.Name, SizePt: float64(f.Size), Color: rgbOf(c)}
}

// addFramedImage は挿絵を装飾付きで配置します。重なり順は
// アクセント円（最背面）→ 白の角丸枠 → 1割パディングした画像（最前面）です。
// 円は枠の左下に少しだけ顔を出す位置に置きます。
func addFramedImage(slide *deck.Slide, data []byte, mimeType string, box deck.Rect, accent deck.RGB) {
	circle := deck.Inches(0.8)
	overlap := deck.EMU(float64(circle) * 0.8)

	slide.Add(&deck.AutoShape{
		Box: deck.Rect{
			Left:   box.Left - (circle - deck.EMU(float64(overlap)*1.2)),
			Top:    box.Top + box.Height - (circle - deck.EMU(float64(overlap)*0.4)),
			Width:  circle,
			Height: circle,
		},
		Kind: deck.KindOval,
		Fill: &accent,
	})

	slide.Add(&deck.AutoShape{
		Box:         box,
		Kind:        deck.KindRoundedRectangle,
		Fill:        &white,
		LineColor:   &accent,
		LineWidthPt: 2,
	})

	padW := deck.EMU(float64(box.Width) * 0.1)
	padH := deck.EMU(float64(box.Height) * 0.1)
	slide.Add(&deck.Picture{
		Box: deck.Rect{
			Left:   box.Left + padW,
			Top:    box.Top + padH,
			Width:  box.Width - padW*2,
			Height: box.Height - padH*2,
		},
		Data:     data,
		MimeType: mimeType,
	})
}

// mimeForPath は保存パスの拡張子から画像の MIME タイプを推定します。
func mimeForPath(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") {
		return "image/jpeg"
	}
	return "image/png"
}
