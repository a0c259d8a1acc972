package agent

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shouni/go-slide-kit/pkg/domain"
	"github.com/shouni/go-slide-kit/pkg/genai"
	"github.com/shouni/go-slide-kit/pkg/prompts"

	"golang.org/x/sync/errgroup"
)

const (
	youtubeAPIBase     = "https://www.googleapis.com/youtube/v3"
	timedTextEndpoint  = "https://video.google.com/timedtext"
	defaultVideoCount  = 1
	maxDescriptionLen  = 200
	maxRecencyDays     = 365
	viewCountCeiling   = 10_000_000
	subscriberCeiling  = 10_000_000
	likeCountCeiling   = 100_000
)

// Video は動画1件のスコア付きメタデータです。
type Video struct {
	Score              float64
	Title              string
	ChannelName        string
	Views              int
	Likes              int
	Subscribers        int
	DaysSincePublished int
	VideoID            string
	URL                string
	Description        string
}

// YouTubeAgent は動画の文字起こしから情報を収集するソースエージェントです。
// 検索クエリ自体も高速モデルに生成させ、トピックの言い回しに寄せるのだ。
type YouTubeAgent struct {
	apiKey     string
	client     *http.Client
	sum        summarizer
	maxResults int
	apiBase    string
	textBase   string
}

// NewYouTubeAgent は動画検索エージェントを初期化します。API キーは必須です。
func NewYouTubeAgent(
	apiKey string,
	client *http.Client,
	text genai.TextGenerator,
	builder prompts.PromptBuilder,
	fastModel string,
) (*YouTubeAgent, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &domain.ConfigError{Field: "YOUTUBE_API_KEY", Reason: "YouTube の API キーが設定されていません"}
	}
	return &YouTubeAgent{
		apiKey:     apiKey,
		client:     client,
		sum:        summarizer{text: text, builder: builder, model: fastModel},
		maxResults: defaultVideoCount,
		apiBase:    youtubeAPIBase,
		textBase:   timedTextEndpoint,
	}, nil
}

// ProcessTopic は全サブトピックを並列に処理し、宣言順の結果列を返します。
func (a *YouTubeAgent) ProcessTopic(ctx context.Context, spec *domain.PresentationSpec) ([]Result, error) {
	results := make([]Result, len(spec.SubTopics))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, subtopic := range spec.SubTopics {
		i, subtopic := i, subtopic
		eg.Go(func() error {
			logger := slog.With("subtopic", subtopic, "source", "video")
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

func (a *YouTubeAgent) processSubtopic(ctx context.Context, spec *domain.PresentationSpec, subtopic string) (string, error) {
	query := a.buildQuery(ctx, spec.Topic, subtopic)
	videos, err := a.search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(videos) == 0 {
		return "", fmt.Errorf("サブトピック %q: 動画が見つかりませんでした", subtopic)
	}
	return a.summarizeVideos(ctx, spec, videos, subtopic)
}

// buildQuery は高速モデルに検索クエリを生成させます。
// 失敗してもトピックとサブトピックの単純結合で続行できます。
func (a *YouTubeAgent) buildQuery(ctx context.Context, topic, subtopic string) string {
	fallback := strings.TrimSpace(topic + " " + subtopic)

	prompt, err := a.sum.builder.Build(prompts.ModeQuery, prompts.TemplateData{Topic: topic, Title: subtopic})
	if err != nil {
		return fallback
	}
	query, err := a.sum.text.GenerateText(ctx, prompt, false, a.sum.model)
	if err != nil || strings.TrimSpace(query) == "" {
		slog.Debug("クエリ生成に失敗したので素朴な結合で検索するのだ", "error", err)
		return fallback
	}
	return strings.TrimSpace(query)
}

// summarizeVideos は動画群の文字起こしを要約します。複数の動画がある場合は
// 動画ごとの要約を作ってから1本に統合します。
func (a *YouTubeAgent) summarizeVideos(ctx context.Context, spec *domain.PresentationSpec, videos []Video, subtopic string) (string, error) {
	if len(videos) == 1 {
		transcript, err := a.fetchTranscript(ctx, videos[0])
		if err != nil {
			return "", err
		}
		return a.sum.summarize(ctx, spec, "video", transcript, focusInstruction(subtopic))
	}

	var summaries []string
	for _, video := range videos {
		transcript, err := a.fetchTranscript(ctx, video)
		if err != nil {
			slog.Warn("文字起こしを取得できなかったのでこの動画は飛ばすのだ", "video", video.VideoID, "error", err)
			continue
		}
		summary, err := a.sum.summarize(ctx, spec, "video", transcript, focusInstruction(subtopic))
		if err != nil {
			slog.Warn("動画の要約に失敗したのだ", "video", video.VideoID, "error", err)
			continue
		}
		summaries = append(summaries, summary)
	}
	if len(summaries) == 0 {
		return "", fmt.Errorf("サブトピック %q: 要約できる動画がありませんでした", subtopic)
	}

	combined := strings.Join(summaries, "\n\n")
	instructions := fmt.Sprintf(
		"The summaries are from different videos about %s. Combine them into a single cohesive summary focusing on this specific aspect.",
		subtopic,
	)
	return a.sum.summarize(ctx, spec, "video", combined, instructions)
}

// search は Data API v3 で動画を検索し、統計情報からスコアを付けて
// 高い順に最大 maxResults 件を返します。
func (a *YouTubeAgent) search(ctx context.Context, query string) ([]Video, error) {
	params := url.Values{
		"part":       {"snippet"},
		"maxResults": {strconv.Itoa(a.maxResults)},
		"q":          {query},
		"type":       {"video"},
		"key":        {a.apiKey},
	}

	var searchBody struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				ChannelID string `json:"channelId"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := a.getJSON(ctx, a.apiBase+"/search", params, &searchBody); err != nil {
		return nil, fmt.Errorf("動画検索に失敗しました: %w", err)
	}

	videos := make([]Video, 0, len(searchBody.Items))
	for _, item := range searchBody.Items {
		video, err := a.lookupVideo(ctx, item.ID.VideoID, item.Snippet.ChannelID)
		if err != nil {
			slog.Warn("動画の統計取得に失敗したのでスキップするのだ", "video", item.ID.VideoID, "error", err)
			continue
		}
		videos = append(videos, video)
	}

	sort.SliceStable(videos, func(i, j int) bool { return videos[i].Score > videos[j].Score })
	return videos, nil
}

// lookupVideo は動画とチャンネルの統計を引き、スコア付きの Video を組み立てます。
func (a *YouTubeAgent) lookupVideo(ctx context.Context, videoID, channelID string) (Video, error) {
	var videoBody struct {
		Items []struct {
			Statistics struct {
				ViewCount string `json:"viewCount"`
				LikeCount string `json:"likeCount"`
			} `json:"statistics"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
				PublishedAt  string `json:"publishedAt"`
				Description  string `json:"description"`
			} `json:"snippet"`
		} `json:"items"`
	}
	params := url.Values{"part": {"statistics,snippet"}, "id": {videoID}, "key": {a.apiKey}}
	if err := a.getJSON(ctx, a.apiBase+"/videos", params, &videoBody); err != nil {
		return Video{}, err
	}
	if len(videoBody.Items) == 0 {
		return Video{}, fmt.Errorf("動画 %s の情報がありません", videoID)
	}
	item := videoBody.Items[0]

	var channelBody struct {
		Items []struct {
			Statistics struct {
				SubscriberCount string `json:"subscriberCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	params = url.Values{"part": {"statistics"}, "id": {channelID}, "key": {a.apiKey}}
	if err := a.getJSON(ctx, a.apiBase+"/channels", params, &channelBody); err != nil {
		return Video{}, err
	}

	subscribers := 0
	if len(channelBody.Items) > 0 {
		subscribers = atoiSafe(channelBody.Items[0].Statistics.SubscriberCount)
	}

	days := daysSince(item.Snippet.PublishedAt)
	views := atoiSafe(item.Statistics.ViewCount)
	likes := atoiSafe(item.Statistics.LikeCount)

	description := truncateRunes(item.Snippet.Description, maxDescriptionLen)

	return Video{
		Score:              scoreVideo(days, views, subscribers, likes),
		Title:              item.Snippet.Title,
		ChannelName:        item.Snippet.ChannelTitle,
		Views:              views,
		Likes:              likes,
		Subscribers:        subscribers,
		DaysSincePublished: days,
		VideoID:            videoID,
		URL:                "https://www.youtube.com/watch?v=" + videoID,
		Description:        description,
	}, nil
}

// fetchTranscript は動画の字幕テキストを取得します。字幕の無い動画では
// 説明文にフォールバックします。
func (a *YouTubeAgent) fetchTranscript(ctx context.Context, video Video) (string, error) {
	params := url.Values{"lang": {"en"}, "v": {video.VideoID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.textBase+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("字幕の取得に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	transcript := parseTimedText(data)
	if transcript == "" {
		if video.Description == "" {
			return "", fmt.Errorf("動画 %s には字幕も説明文もありません", video.VideoID)
		}
		slog.Debug("字幕が無いので説明文で代用するのだ", "video", video.VideoID)
		return video.Description, nil
	}
	return transcript, nil
}

// parseTimedText は timedtext の XML 応答を行区切りのテキストに変換します。
func parseTimedText(data []byte) string {
	var doc struct {
		Texts []struct {
			Body string `xml:",chardata"`
		} `xml:"text"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return ""
	}

	lines := make([]string, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		line := strings.TrimSpace(html.UnescapeString(t.Body))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func (a *YouTubeAgent) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d from %s", resp.StatusCode, endpoint)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("応答の解析に失敗しました: %w", err)
	}
	return nil
}

// scoreVideo は動画の複合スコア (0-1) を計算します。新しさを4割、再生数を4割、
// 登録者数と高評価数を1割ずつで重み付けし、大きな数は対数で均すのだ。
func scoreVideo(daysSincePublished, views, subscribers, likes int) float64 {
	if daysSincePublished > maxRecencyDays {
		daysSincePublished = maxRecencyDays
	}
	dateScore := float64(maxRecencyDays-daysSincePublished) / maxRecencyDays

	logScale := func(v, ceiling int) float64 {
		score := math.Log(float64(v)+1) / math.Log(float64(ceiling))
		return math.Min(1, score)
	}

	score := 0.4*dateScore +
		0.4*logScale(views, viewCountCeiling) +
		0.1*logScale(subscribers, subscriberCeiling) +
		0.1*logScale(likes, likeCountCeiling)
	return math.Round(score*1000) / 1000
}

// daysSince は publishedAt (RFC3339) からの経過日数を返します。解析不能なら最大値です。
func daysSince(publishedAt string) int {
	t, err := time.Parse(time.RFC3339, publishedAt)
	if err != nil {
		return maxRecencyDays
	}
	return int(time.Since(t).Hours() / 24)
}

func atoiSafe(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// truncateRunes は s を最大 maxBytes バイトに切り詰めます。
// マルチバイト文字の途中で切らないよう、ルーン境界まで戻るのだ。
func truncateRunes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
