package deck

import (
	"fmt"
	"math"
)

// EMU は Office Open XML の長さ単位 (English Metric Unit) です。
// 1インチ = 914400 EMU。座標・寸法はすべてこの単位で保持します。
type EMU int64

const (
	emuPerInch  = 914400
	emuPerPoint = 12700
)

// Inches はインチ指定を EMU に変換します。
func Inches(v float64) EMU {
	return EMU(math.Round(v * emuPerInch))
}

// FromPoints はポイント指定（線幅など）を EMU に変換します。
func FromPoints(v float64) EMU {
	return EMU(math.Round(v * emuPerPoint))
}

// Inches は EMU をインチ値に戻します（テストとログ用）。
func (e EMU) Inches() float64 {
	return float64(e) / emuPerInch
}

// Rect はスライド座標系上の矩形領域です。原点は左上。
type Rect struct {
	Left   EMU
	Top    EMU
	Width  EMU
	Height EMU
}

// RectInches はインチ指定で Rect を構築するヘルパーです。
func RectInches(left, top, width, height float64) Rect {
	return Rect{
		Left:   Inches(left),
		Top:    Inches(top),
		Width:  Inches(width),
		Height: Inches(height),
	}
}

// RGB は描画色です。テーマ由来の色をシリアライズ直前まで数値のまま持ちます。
type RGB struct {
	R, G, B int
}

// Hex は OOXML の srgbClr 属性値 (RRGGBB) を返します。
func (c RGB) Hex() string {
	clamp := func(v int) int {
		if v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return v
	}
	return fmt.Sprintf("%02X%02X%02X", clamp(c.R), clamp(c.G), clamp(c.B))
}
