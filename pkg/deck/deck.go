// Package deck は、スライド1枚を図形・テキストランの列として保持する
// 低水準の描画プリミティブ層です。レイアウト方針は持たず、上位の
// レンダラーが決めた座標・サイズ・重なり順をそのまま永続化します。
package deck

// Document は構築中のプレゼンテーション全体です。
// スライドの並びは追加順で確定し、並行書き込みは想定しません。
type Document struct {
	Width  EMU
	Height EMU
	Slides []*Slide
}

// New は 16:9 (13.333 x 7.5 インチ) の空ドキュメントを生成します。
func New() *Document {
	return &Document{
		Width:  Inches(13.333),
		Height: Inches(7.5),
	}
}

// AddSlide は空のスライドを末尾に追加して返します。
func (d *Document) AddSlide() *Slide {
	slide := &Slide{}
	d.Slides = append(d.Slides, slide)
	return slide
}

// Slide は1枚のスライドです。Shapes の並び順がそのまま重なり順
// （先頭が最背面）になります。
type Slide struct {
	Shapes []Shape
	Notes  string // 話者ノート。空なら notesSlide パートは生成されない
}

// Add は図形を最前面として追加します。
func (s *Slide) Add(shape Shape) {
	s.Shapes = append(s.Shapes, shape)
}

// Shape はスライド上に配置できる描画要素です。
type Shape interface {
	Frame() Rect
}

// ShapeKind はオートシェイプの種別です。
type ShapeKind int

const (
	KindRectangle ShapeKind = iota
	KindRoundedRectangle
	KindOval
)

// AutoShape は塗りと枠線を持つ基本図形です。
type AutoShape struct {
	Box         Rect
	Kind        ShapeKind
	Fill        *RGB    // nil なら塗りなし
	LineColor   *RGB    // nil なら枠線なし
	LineWidthPt float64 // 枠線の太さ（ポイント）
}

func (a *AutoShape) Frame() Rect { return a.Box }

// Picture は埋め込み画像です。Data はファイル読み込み済みのバイト列を持ち、
// シリアライズ時に media パートへ書き出されます。
type Picture struct {
	Box      Rect
	Data     []byte
	MimeType string // "image/png" または "image/jpeg"
}

func (p *Picture) Frame() Rect { return p.Box }

// FontSpec はテキストランの書体指定です。
type FontSpec struct {
	Name   string
	SizePt float64
	Bold   bool
	Color  RGB
}

// Run は段落内の連続した同一書式のテキストです。
type Run struct {
	Text string
	Font FontSpec
}

// Paragraph は段落です。Level は箇条書きのインデント段数です。
type Paragraph struct {
	Runs          []Run
	Level         int
	SpaceBeforePt float64
	SpaceAfterPt  float64
}

// TextBox は段落の集まりを描画するテキスト枠です。
type TextBox struct {
	Box        Rect
	Paragraphs []Paragraph
	WordWrap   bool
}

func (t *TextBox) Frame() Rect { return t.Box }

// AddParagraph は段落を末尾に追加し、そのポインタを返します。
func (t *TextBox) AddParagraph(p Paragraph) *Paragraph {
	t.Paragraphs = append(t.Paragraphs, p)
	return &t.Paragraphs[len(t.Paragraphs)-1]
}

// TableCell は表の1セルです。セル本文は常に表示用文字列に丸めて格納します。
type TableCell struct {
	Text string
	Font FontSpec
	Fill *RGB
}

// Table は行列で構成される表です。Grid[0] がヘッダー行です。
type Table struct {
	Box  Rect
	Grid [][]TableCell
}

func (t *Table) Frame() Rect { return t.Box }

// Columns はヘッダー行の列数を返します。空の表は 0 です。
func (t *Table) Columns() int {
	if len(t.Grid) == 0 {
		return 0
	}
	return len(t.Grid[0])
}
