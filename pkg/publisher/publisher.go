// Package publisher は完成したプレゼンテーションの永続化を担います。
// 書き込み先は remoteio 経由なので、ローカルパスと gs:// を区別しません。
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shouni/go-slide-kit/pkg/asset"
	"github.com/shouni/go-slide-kit/pkg/deck"
	"github.com/shouni/go-slide-kit/pkg/domain"

	"github.com/shouni/go-remote-io/pkg/remoteio"
)

const (
	pptxMimeType    = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	recordsFileName = "slides.json"
)

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
}

// PublishResult はパブリッシュ処理で生成されたファイルの情報を保持します。
type PublishResult struct {
	DeckPath    string // 書き出された presentation.pptx のパス
	RecordsPath string // スライドレコードを含む仕様スナップショットのパス
}

// DeckPublisher は成果物（.pptx とレコード JSON）の書き出しを担います。
type DeckPublisher struct {
	writer remoteio.OutputWriter
}

// NewDeckPublisher は DeckPublisher を初期化します。
func NewDeckPublisher(writer remoteio.OutputWriter) *DeckPublisher {
	return &DeckPublisher{writer: writer}
}

// Publish はデッキの序列化と仕様スナップショットの保存を一括して実行するのだ。
// スナップショットには生成済みスライド列が含まれ、render サブコマンドで
// そのまま再描画の入力に使えます。
func (p *DeckPublisher) Publish(ctx context.Context, doc *deck.Document, spec *domain.PresentationSpec, opts Options) (PublishResult, error) {
	result := PublishResult{}

	deckPath, err := asset.ResolveOutputPath(opts.OutputDir, asset.DefaultDeckFileName)
	if err != nil {
		return result, err
	}

	var buf bytes.Buffer
	if err := deck.WritePPTX(&buf, doc); err != nil {
		return result, fmt.Errorf("デッキの序列化に失敗しました: %w", err)
	}
	if err := p.writer.Write(ctx, deckPath, &buf, pptxMimeType); err != nil {
		return result, fmt.Errorf("デッキの書き込みに失敗しました: %w", err)
	}
	result.DeckPath = deckPath
	slog.Info("デッキを保存したのだ", "path", deckPath, "slides", len(doc.Slides))

	recordsPath, err := p.PublishRecords(ctx, spec, opts)
	if err != nil {
		return result, err
	}
	result.RecordsPath = recordsPath

	return result, nil
}

// PublishRecords は仕様スナップショット（スライド列込み）だけを書き出し、
// 保存先パスを返します。構成のみ実行するモードの出力にも使われます。
func (p *DeckPublisher) PublishRecords(ctx context.Context, spec *domain.PresentationSpec, opts Options) (string, error) {
	recordsPath, err := asset.ResolveOutputPath(opts.OutputDir, recordsFileName)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("仕様スナップショットの序列化に失敗しました: %w", err)
	}
	if err := p.writer.Write(ctx, recordsPath, bytes.NewReader(data), "application/json; charset=utf-8"); err != nil {
		return "", fmt.Errorf("仕様スナップショットの書き込みに失敗しました: %w", err)
	}
	slog.Info("スライド記録を保存したのだ", "path", recordsPath, "slides", len(spec.Slides))
	return recordsPath, nil
}
