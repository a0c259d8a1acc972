package deck

import _ "embed"

// テーマパートは固定のボイラープレートなので埋め込みアセットとして持つのだ。
//
//go:embed assets/theme1.xml
var themePart []byte

func (pw *pptxWriter) writeTheme() error {
	return pw.writeBinaryPart("ppt/theme/theme1.xml", themePart)
}
