package genai

import (
	"encoding/json"
	"strings"
)

// ExtractStructured は自由形式のモデル応答から、最初の釣り合いの取れた
// トップレベルの波括弧スパンを取り出し、正規化した JSON 文字列として返します。
// 応答全体への正規表現ではなく、文字列リテラルとエスケープを考慮した
// 専用の走査で判定するのだ。
func ExtractStructured(raw string) (string, error) {
	span, ok := scanBraceSpan(raw)
	if !ok {
		return "", &GenerationError{Kind: FailureMalformedOutput, Msg: "no balanced JSON object found in response"}
	}

	// モデルが混入させがちな改行と余計なシングルクォートを除去する
	span = strings.ReplaceAll(span, "\n", "")
	span = strings.ReplaceAll(span, "'", "")

	if !json.Valid([]byte(span)) {
		return "", &GenerationError{Kind: FailureMalformedOutput, Msg: "extracted span is not valid JSON"}
	}
	return span, nil
}

// scanBraceSpan は最初の '{' から対応する '}' までのスパンを返します。
// JSON 文字列リテラル内の波括弧は深さに数えません。
func scanBraceSpan(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}

	return "", false
}
