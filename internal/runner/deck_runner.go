package runner

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shouni/go-slide-kit/pkg/deck"
	"github.com/shouni/go-slide-kit/pkg/domain"
	"github.com/shouni/go-slide-kit/pkg/render"
)

// DeckRunner はスライド記録の列を1つのデッキ文書へ描画する実行器です。
type DeckRunner struct {
	renderer *render.Renderer
}

func NewDeckRunner(renderer *render.Renderer) *DeckRunner {
	return &DeckRunner{renderer: renderer}
}

// Run は全レコードを順に描画し、完成した文書と描画できたスライド数を返します。
// 1枚の失敗で全体を止めず、壊れたレコードは警告を出して飛ばすのだ。
func (r *DeckRunner) Run(ctx context.Context, records []domain.SlideRecord) (*deck.Document, int, error) {
	doc := deck.New()
	rendered := 0

	for i := range records {
		rec := &records[i]
		if err := r.renderer.RenderSlide(ctx, doc, rec); err != nil {
			var layoutErr *render.LayoutError
			if errors.As(err, &layoutErr) {
				slog.Warn("スライドの描画を飛ばすのだ", "title", rec.Title, "error", err)
				continue
			}
			return nil, rendered, err
		}
		rendered++
	}

	return doc, rendered, nil
}
