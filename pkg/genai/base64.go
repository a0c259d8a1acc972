package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
)

// jpegHeader は JPEG ストリームの開始マーカーです。
var jpegHeader = []byte{0xff, 0xd8}

// SaveBase64Image は base64 エンコードされた画像（ロゴ等）をデコードして保存し、
// 保存先パスを返します。一部のアップローダーが JPEG ヘッダーの前にパディングを
// 混入させることがあるため、ヘッダー位置までを切り落とすのだ。
func (c *Client) SaveBase64Image(ctx context.Context, encoded, targetPath string) (string, error) {
	if encoded == "" {
		return "", &GenerationError{Kind: FailureEmptyPrompt, Msg: "empty base64 image"}
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64画像のデコードに失敗しました: %w", err)
	}

	mimeType := "image/png"
	if idx := bytes.Index(raw, jpegHeader); idx >= 0 {
		raw = raw[idx:]
		mimeType = "image/jpeg"
	}

	if err := c.writer.Write(ctx, targetPath, bytes.NewReader(raw), mimeType); err != nil {
		return "", fmt.Errorf("画像の書き込みに失敗しました %s: %w", targetPath, err)
	}
	return targetPath, nil
}
