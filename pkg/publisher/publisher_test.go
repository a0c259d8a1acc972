package publisher

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/shouni/go-slide-kit/pkg/deck"
	"github.com/shouni/go-slide-kit/pkg/domain"
)

// fakeWriter は書き込まれた内容をメモリに貯めるだけの出力ライターです。
type fakeWriter struct {
	files map[string][]byte
	mimes map[string]string
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{files: map[string][]byte{}, mimes: map[string]string{}}
}

func (w *fakeWriter) Write(_ context.Context, path string, r io.Reader, mimeType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	w.files[path] = data
	w.mimes[path] = mimeType
	return nil
}

func TestPublish(t *testing.T) {
	doc := deck.New()
	doc.AddSlide()

	spec := &domain.PresentationSpec{
		Topic:      "Go の並行処理",
		OutputPath: "/tmp/out",
		Slides: []domain.SlideRecord{
			domain.NewCoverSlide("Go の並行処理"),
		},
	}

	writer := newFakeWriter()
	result, err := NewDeckPublisher(writer).Publish(context.Background(), doc, spec, Options{OutputDir: "/tmp/out"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	t.Run("デッキはpptxのMIMEタイプで書き出される", func(t *testing.T) {
		if !strings.HasSuffix(result.DeckPath, "presentation.pptx") {
			t.Errorf("DeckPath = %q", result.DeckPath)
		}
		if writer.mimes[result.DeckPath] != pptxMimeType {
			t.Errorf("MIME = %q", writer.mimes[result.DeckPath])
		}
		data := writer.files[result.DeckPath]
		if _, err := zip.NewReader(bytes.NewReader(data), int64(len(data))); err != nil {
			t.Errorf("書き出されたデッキが zip として開けないのだ: %v", err)
		}
	})

	t.Run("仕様スナップショットにスライド列が残る", func(t *testing.T) {
		data, ok := writer.files[result.RecordsPath]
		if !ok {
			t.Fatalf("スナップショット %q が書かれていないのだ", result.RecordsPath)
		}
		var restored domain.PresentationSpec
		if err := json.Unmarshal(data, &restored); err != nil {
			t.Fatalf("スナップショットを読み戻せないのだ: %v", err)
		}
		if len(restored.Slides) != 1 || restored.Slides[0].Style != domain.StyleCover {
			t.Errorf("スライド列が欠けているのだ: %+v", restored.Slides)
		}
	})
}
