package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/shouni/go-slide-kit/pkg/domain"
	"github.com/shouni/go-slide-kit/pkg/genai"
	"github.com/shouni/go-slide-kit/pkg/prompts"

	"github.com/shouni/go-web-exact/v2/pkg/extract"
	"golang.org/x/sync/errgroup"
)

// serperEndpoint は Serper (google.serper.dev) の検索エンドポイントです。
const serperEndpoint = "https://google.serper.dev/search"

// defaultWebResults はサブトピック1件あたりの検索結果の既定件数です。
const defaultWebResults = 5

// WebResult は検索結果1件のスコア付きメタデータです。
type WebResult struct {
	Score         float64
	Title         string
	Domain        string
	URL           string
	Snippet       string
	PublishedDate string
}

// SerperAgent は Web 検索で情報を収集するソースエージェントです。
// 検索は Serper API、本文抽出は go-web-exact、要約は高速モデルで行います。
type SerperAgent struct {
	apiKey     string
	client     *http.Client
	extractor  *extract.Extractor
	sum        summarizer
	maxResults int
	endpoint   string
}

// NewSerperAgent は Web 検索エージェントを初期化します。API キーは必須です。
func NewSerperAgent(
	apiKey string,
	client *http.Client,
	extractor *extract.Extractor,
	text genai.TextGenerator,
	builder prompts.PromptBuilder,
	fastModel string,
) (*SerperAgent, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &domain.ConfigError{Field: "SERPER_API_KEY", Reason: "Serper の API キーが設定されていません"}
	}
	return &SerperAgent{
		apiKey:     apiKey,
		client:     client,
		extractor:  extractor,
		sum:        summarizer{text: text, builder: builder, model: fastModel},
		maxResults: defaultWebResults,
		endpoint:   serperEndpoint,
	}, nil
}

// ProcessTopic は全サブトピックを並列に処理し、宣言順の結果列を返します。
func (a *SerperAgent) ProcessTopic(ctx context.Context, spec *domain.PresentationSpec) ([]Result, error) {
	results := make([]Result, len(spec.SubTopics))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, subtopic := range spec.SubTopics {
		i, subtopic := i, subtopic
		eg.Go(func() error {
			logger := slog.With("subtopic", subtopic, "source", "web")
			logger.Info("サブトピックの収集を開始するのだ")

			text, err := a.processSubtopic(egCtx, spec, subtopic)
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				logger.Warn("サブトピックの収集に失敗したのだ", "error", err)
			}
			results[i] = Result{Subtopic: subtopic, Text: text, Err: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// processSubtopic は検索 -> 本文抽出 -> 要約 をサブトピック1件分実行します。
// 個々のページの取得失敗は飛ばし、1件も取れなかったときだけ失敗とします。
func (a *SerperAgent) processSubtopic(ctx context.Context, spec *domain.PresentationSpec, subtopic string) (string, error) {
	query := spec.Topic + " " + subtopic
	found, err := a.search(ctx, query)
	if err != nil {
		return "", err
	}

	var texts []string
	for _, result := range found {
		// 動画は YouTube エージェントの領分なので Web 収集では読まない
		if strings.Contains(strings.ToLower(result.URL), "youtube.com") {
			slog.Debug("YouTube の URL はスキップするのだ", "url", result.URL)
			continue
		}

		text, _, err := a.extractor.FetchAndExtractText(ctx, result.URL)
		if err != nil {
			slog.Warn("ページの本文抽出に失敗したのでスキップするのだ", "url", result.URL, "error", err)
			continue
		}
		texts = append(texts, text)
	}

	if len(texts) == 0 {
		return "", fmt.Errorf("サブトピック %q: 有効なページを1件も取得できませんでした", subtopic)
	}

	return a.sum.summarize(ctx, spec, "web", strings.Join(texts, "\n\n"), focusInstruction(subtopic))
}

// search は Serper API に問い合わせ、スコアの高い順に最大 maxResults 件を返します。
func (a *SerperAgent) search(ctx context.Context, query string) ([]WebResult, error) {
	payload, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Serper への問い合わせに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Serper が異常応答を返しました: http %d", resp.StatusCode)
	}

	var body struct {
		Organic []struct {
			Title       string          `json:"title"`
			Domain      string          `json:"domain"`
			Link        string          `json:"link"`
			Snippet     string          `json:"snippet"`
			Date        string          `json:"date"`
			RichSnippet json.RawMessage `json:"richSnippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("Serper 応答の解析に失敗しました: %w", err)
	}

	results := make([]WebResult, 0, len(body.Organic))
	for _, item := range body.Organic {
		rich := len(item.RichSnippet) > 0 && string(item.RichSnippet) != "null"
		results = append(results, WebResult{
			Score:         scoreWebResult(item.Date != "", rich),
			Title:         item.Title,
			Domain:        item.Domain,
			URL:           item.Link,
			Snippet:       item.Snippet,
			PublishedDate: item.Date,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > a.maxResults {
		results = results[:a.maxResults]
	}
	slog.Info("Web 検索が完了したのだ", "query", query, "hits", len(results))
	return results, nil
}

// scoreWebResult は検索結果の関連度スコアを計算します。
// 基礎 0.5 に、公開日付きなら +0.2、リッチスニペット付きなら +0.3 を加えます。
func scoreWebResult(hasDate, hasRichSnippet bool) float64 {
	score := 0.5
	if hasDate {
		score += 0.2
	}
	if hasRichSnippet {
		score += 0.3
	}
	return score
}
