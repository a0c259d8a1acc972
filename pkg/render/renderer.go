// Package render は検証済みのスライドレコードを決定的なレイアウト規則で
// 描画プリミティブに変換します。スタイルごとの配置はすべてここで閉じており、
// モデル呼び出しは挿絵の生成に限られます。
package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shouni/go-slide-kit/pkg/asset"
	"github.com/shouni/go-slide-kit/pkg/deck"
	"github.com/shouni/go-slide-kit/pkg/domain"
	"github.com/shouni/go-slide-kit/pkg/genai"

	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// Renderer はプレゼンテーション1件分の描画状態を保持します。
// テーマとロゴは全スライドで共有されるため、ロゴのバイト列は初回に読み込んで
// 以後使い回します。並行呼び出しは想定しません。
type Renderer struct {
	images genai.ImageGenerator
	reader remoteio.InputReader
	spec   *domain.PresentationSpec

	logoData []byte
	logoMime string
	logoTry  bool // ロゴの解決を一度でも試みたか
}

// New はレンダラーを初期化します。images は挿絵の生成に、reader は
// 生成済み画像・ロゴのバイト列の取得に使います。
func New(images genai.ImageGenerator, reader remoteio.InputReader, spec *domain.PresentationSpec) *Renderer {
	return &Renderer{
		images: images,
		reader: reader,
		spec:   spec,
	}
}

// RenderSlide はレコード1件をドキュメント末尾の新しいスライドとして描画します。
// スキーマ不整合は LayoutError として返し、ドキュメントには何も追加しません。
// 挿絵・ロゴの取得失敗は許容し、該当要素を欠いたままスライドを完成させるのだ。
func (r *Renderer) RenderSlide(ctx context.Context, doc *deck.Document, rec *domain.SlideRecord) error {
	if err := rec.Validate(); err != nil {
		return &LayoutError{SlideTitle: rec.Title, Op: "スキーマ検証", Err: err}
	}

	slide := doc.AddSlide()
	if rec.Style == domain.StyleCover {
		r.renderCover(ctx, doc, slide, rec)
	} else {
		r.renderContent(ctx, slide, rec)
		r.addFooter(ctx, slide)
	}
	slide.Notes = rec.Notes
	return nil
}

// renderCover は表紙を描画します。左55%に生成画像を全面配置し、
// 右45%にタイトル・サブタイトル・ロゴを縦に並べます。
func (r *Renderer) renderCover(ctx context.Context, doc *deck.Document, slide *deck.Slide, rec *domain.SlideRecord) {
	slide.Add(&deck.AutoShape{
		Box:  deck.Rect{Width: doc.Width, Height: doc.Height},
		Kind: deck.KindRectangle,
		Fill: &white,
	})

	leftWidth := slideWidthIn * coverImageRatio
	rightWidth := slideWidthIn - leftWidth

	prompt := fmt.Sprintf(
		"Title: %s\nSubtitle: %s\nBased on the title and subtitle, create a professional presentation cover image",
		rec.Title, rec.Subtitle,
	)
	if data, mime, ok := r.resolveIllustration(ctx, rec, prompt, asset.DefaultCoverFileName); ok {
		slide.Add(&deck.Picture{
			Box:      deck.RectInches(0, 0, leftWidth, slideHeightIn),
			Data:     data,
			MimeType: mime,
		})
	}

	textLeft := leftWidth + marginIn
	textWidth := rightWidth - 1.0

	title := &deck.TextBox{Box: deck.RectInches(textLeft, 1.5, textWidth, 2.5), WordWrap: true}
	title.AddParagraph(deck.Paragraph{Runs: []deck.Run{{
		Text: rec.Title,
		Font: deck.FontSpec{SizePt: 40, Bold: true},
	}}})
	slide.Add(title)

	if rec.Subtitle != "" {
		subtitle := &deck.TextBox{Box: deck.RectInches(textLeft, 4, textWidth, 1.5), WordWrap: true}
		subtitle.AddParagraph(deck.Paragraph{Runs: []deck.Run{{
			Text: rec.Subtitle,
			Font: deck.FontSpec{SizePt: 28},
		}}})
		slide.Add(subtitle)
	}

	if data, mime, ok := r.loadLogo(ctx); ok {
		const logoW, logoH = 3.0, 2.0
		slide.Add(&deck.Picture{
			Box: deck.RectInches(
				leftWidth+(rightWidth-logoW)/2,
				slideHeightIn-logoH-1.0,
				logoW, logoH,
			),
			Data:     data,
			MimeType: mime,
		})
	}
}

// renderContent は表紙以外のスライドを描画します。左60%にタイトルと本文、
// 右40%に装飾枠付きの挿絵を置きます。
func (r *Renderer) renderContent(ctx context.Context, slide *deck.Slide, rec *domain.SlideRecord) {
	leftWidth := slideWidthIn * contentTextRatio
	rightWidth := slideWidthIn - leftWidth

	prompt := fmt.Sprintf("Title: %s\nStyle: %s\nContent: %s", rec.Title, rec.Style, contentDigest(rec.Content))
	if data, mime, ok := r.resolveIllustration(ctx, rec, prompt, asset.SlideImageName(rec.Title)); ok {
		const imageMargin = 0.2
		addFramedImage(slide, data, mime,
			deck.RectInches(
				leftWidth+imageMargin,
				contentTopIn,
				rightWidth-imageMargin*2,
				slideHeightIn*0.7,
			),
			rgbOf(r.spec.Theme.Colors.Bullet),
		)
	}

	theme := &r.spec.Theme
	title := &deck.TextBox{Box: deck.RectInches(marginIn, marginIn, leftWidth, headerHeightIn), WordWrap: true}
	title.AddParagraph(deck.Paragraph{Runs: []deck.Run{{
		Text: rec.Title,
		Font: fontOf(theme.Fonts.Title, theme.Colors.Title),
	}}})
	slide.Add(title)

	switch rec.Style {
	case domain.StyleBullets:
		r.addBullets(slide, rec.Content.Bullets, leftWidth)
	case domain.StyleTable:
		r.addTable(slide, rec.Content.Table, leftWidth)
	case domain.StyleParagraph:
		r.addParagraph(slide, rec.Content.Paragraph, leftWidth)
	}
}

// addBullets は箇条書き本文を描画します。空文字の項目は除外します。
// 本文が " - " を含む場合は「太字の見出し + 区切り + 平文」の3ランに分割するのだ。
func (r *Renderer) addBullets(slide *deck.Slide, items []domain.BulletItem, leftWidth float64) {
	box := &deck.TextBox{
		Box: deck.RectInches(
			marginIn,
			contentTopIn-0.3,
			leftWidth-marginIn*2,
			slideHeightIn-contentTopIn-footerHeightIn,
		),
		WordWrap: true,
	}

	textFont := r.spec.Theme.Fonts.Text.Name
	for _, item := range items {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}

		// OOXML のインデント段数は 8 が上限
		level := item.Level
		if level > maxBulletLevel {
			level = maxBulletLevel
		}

		para := deck.Paragraph{Level: level}
		if item.Level == 0 {
			para.SpaceBeforePt, para.SpaceAfterPt = 6, 3
		} else {
			para.SpaceBeforePt, para.SpaceAfterPt = 3, 3
		}

		runFont := deck.FontSpec{Name: textFont, SizePt: standardTextPt}
		if header, body, found := strings.Cut(text, " - "); found {
			headerFont := runFont
			headerFont.Bold = true
			para.Runs = []deck.Run{
				{Text: strings.TrimSpace(header), Font: headerFont},
				{Text: " - ", Font: runFont},
				{Text: strings.TrimSpace(body), Font: runFont},
			}
		} else {
			para.Runs = []deck.Run{{Text: text, Font: runFont}}
		}
		box.AddParagraph(para)
	}

	slide.Add(box)
}

// addTable は表本文を描画します。高さは1行0.5インチ換算とし、
// 本文領域の残り高さを超えないよう切り詰めます。
func (r *Renderer) addTable(slide *deck.Slide, table *domain.TableContent, leftWidth float64) {
	rows := len(table.Rows) + 1
	maxHeight := slideHeightIn - contentTopIn - footerHeightIn
	height := 0.5 * float64(rows)
	if height > maxHeight {
		height = maxHeight
	}

	theme := &r.spec.Theme
	headerFill := rgbOf(theme.Colors.Table.Header)
	cellFont := fontOf(theme.Fonts.Table, theme.Colors.Table.Text)
	cellFont.SizePt = standardTextPt

	grid := make([][]deck.TableCell, 0, rows)
	headerRow := make([]deck.TableCell, len(table.Headers))
	for i, h := range table.Headers {
		headerRow[i] = deck.TableCell{Text: h, Font: cellFont, Fill: &headerFill}
	}
	grid = append(grid, headerRow)

	for _, row := range table.Rows {
		cells := make([]deck.TableCell, len(row))
		for i, text := range row {
			cells[i] = deck.TableCell{Text: text, Font: cellFont}
		}
		grid = append(grid, cells)
	}

	slide.Add(&deck.Table{
		Box:  deck.RectInches(marginIn*2, contentTopIn, leftWidth-marginIn*2, height),
		Grid: grid,
	})
}

// addParagraph は段落本文を前後の空白を除いて描画します。
func (r *Renderer) addParagraph(slide *deck.Slide, text string, leftWidth float64) {
	box := &deck.TextBox{
		Box: deck.RectInches(
			marginIn*2,
			contentTopIn,
			leftWidth-marginIn*2,
			slideHeightIn-contentTopIn-footerHeightIn,
		),
		WordWrap: true,
	}

	font := deck.FontSpec{Name: r.spec.Theme.Fonts.Text.Name, SizePt: standardTextPt, Color: rgbOf(r.spec.Theme.Colors.Text)}
	box.AddParagraph(deck.Paragraph{Runs: []deck.Run{{Text: strings.TrimSpace(text), Font: font}}})
	slide.Add(box)
}

// addFooter は表紙以外の全スライドに共通のフッター帯を描画します。
// 薄灰色の帯・テーマのキャプション・右端の小さなロゴで構成されます。
func (r *Renderer) addFooter(ctx context.Context, slide *deck.Slide) {
	footerTop := slideHeightIn - footerHeightIn

	slide.Add(&deck.AutoShape{
		Box:  deck.RectInches(0, footerTop, slideWidthIn, footerHeightIn),
		Kind: deck.KindRectangle,
		Fill: &footerTint,
	})

	logoData, logoMime, hasLogo := r.loadLogo(ctx)

	theme := &r.spec.Theme
	textWidth := slideWidthIn - marginIn*2
	if hasLogo {
		textWidth -= 1.5
	}
	caption := &deck.TextBox{Box: deck.RectInches(marginIn, footerTop, textWidth, footerHeightIn), WordWrap: true}
	caption.AddParagraph(deck.Paragraph{Runs: []deck.Run{{
		Text: theme.Footer,
		Font: fontOf(theme.Fonts.Footer, theme.Colors.Footer),
	}}})
	slide.Add(caption)

	if hasLogo {
		const logoSize = 0.3
		slide.Add(&deck.Picture{
			Box:      deck.RectInches(slideWidthIn-logoSize-marginIn, footerTop+0.05, logoSize, logoSize),
			Data:     logoData,
			MimeType: logoMime,
		})
	}
}

// resolveIllustration はスライドの挿絵バイト列を解決します。
// レコードに image_path があればそれを読み、無ければ生成してから読みます。
// どちらの失敗も描画続行を妨げず、ログを残して挿絵なしとします。
func (r *Renderer) resolveIllustration(ctx context.Context, rec *domain.SlideRecord, prompt, fileName string) ([]byte, string, bool) {
	path := rec.ImagePath
	if path == "" {
		target, err := asset.ScreenshotPath(r.spec.OutputPath, fileName)
		if err != nil {
			slog.Warn("挿絵の保存先を解決できなかったのだ", "slide", rec.Title, "error", err)
			return nil, "", false
		}
		path, err = r.images.GenerateImage(ctx, genai.ImageRequest{
			Prompt:     prompt,
			TargetPath: target,
		})
		if err != nil {
			slog.Warn("挿絵の生成に失敗したので画像なしで続行するのだ", "slide", rec.Title, "error", err)
			return nil, "", false
		}
	}

	data, err := r.readAll(ctx, path)
	if err != nil {
		slog.Warn("挿絵の読み込みに失敗したので画像なしで続行するのだ", "slide", rec.Title, "path", path, "error", err)
		return nil, "", false
	}
	return data, mimeForPath(path), true
}

// loadLogo はロゴのバイト列を初回アクセス時に読み込み、以後キャッシュを返します。
func (r *Renderer) loadLogo(ctx context.Context) ([]byte, string, bool) {
	if !r.logoTry {
		r.logoTry = true
		if r.spec.LogoPath == "" {
			return nil, "", false
		}
		data, err := r.readAll(ctx, r.spec.LogoPath)
		if err != nil {
			slog.Warn("ロゴの読み込みに失敗したのでロゴなしで続行するのだ", "path", r.spec.LogoPath, "error", err)
			return nil, "", false
		}
		r.logoData = data
		r.logoMime = mimeForPath(r.spec.LogoPath)
	}
	return r.logoData, r.logoMime, r.logoData != nil
}

func (r *Renderer) readAll(ctx context.Context, path string) ([]byte, error) {
	rc, err := r.reader.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// contentDigest は挿絵プロンプトに埋め込む本文の短い要約文字列を作ります。
func contentDigest(content *domain.SlideContent) string {
	if content == nil {
		return ""
	}
	switch content.Kind {
	case domain.KindParagraph:
		return content.Paragraph
	case domain.KindBullets:
		texts := make([]string, 0, len(content.Bullets))
		for _, item := range content.Bullets {
			texts = append(texts, item.Text)
		}
		return strings.Join(texts, "; ")
	case domain.KindTable:
		return strings.Join(content.Table.Headers, ", ")
	}
	return ""
}
