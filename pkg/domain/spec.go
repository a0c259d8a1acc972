package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SearchSource は外部コンテンツの収集元を選択する列挙です。
type SearchSource string

const (
	SourceSerper  SearchSource = "serper"
	SourceYouTube SearchSource = "youtube"
)

// PresentationSpec は1回のプレゼン生成の入力仕様です。
// 外部の JSON 設定から一度だけ構築され、スライド列の添付という一度きりの変更を経て、
// 描画フェーズでは読み取り専用として扱われます。
type PresentationSpec struct {
	Theme               Theme        `json:"theme"`
	Topic               string       `json:"topic"`
	GeneralInstructions string       `json:"general_instructions"`
	SubTopics           []string     `json:"sub_topics"`
	NumberOfSlides      int          `json:"number_of_slides"`
	LogoBase64          string       `json:"logo_base64,omitempty"`
	LogoDescription     string       `json:"logo_description,omitempty"`
	OutputPath          string       `json:"output_path"`
	SearchSource        SearchSource `json:"search_source,omitempty"`

	// LogoPath は実行時に解決されるロゴ画像の保存先です（入力 JSON には含まれません）。
	LogoPath string `json:"-"`

	// Slides はパイプラインが生成したスライド列です。コンパイラだけが書き込みます。
	Slides []SlideRecord `json:"slides,omitempty"`
}

// ParseSpec は JSON バイト列から仕様を構築し、検証します。
// 欠落・不正は ConfigError として返り、生成処理が始まる前に実行を中断させるのだ。
func ParseSpec(data []byte) (*PresentationSpec, error) {
	var spec PresentationSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate は仕様の必須項目を検査し、省略可能な項目にデフォルトを補います。
func (s *PresentationSpec) Validate() error {
	if strings.TrimSpace(s.Topic) == "" {
		return &ConfigError{Field: "topic", Reason: "トピックは必須です"}
	}
	if len(s.SubTopics) == 0 {
		return &ConfigError{Field: "sub_topics", Reason: "少なくとも1つのサブトピックが必要です"}
	}
	for i, sub := range s.SubTopics {
		if strings.TrimSpace(sub) == "" {
			return &ConfigError{Field: "sub_topics", Reason: fmt.Sprintf("サブトピック %d が空です", i)}
		}
	}
	if strings.TrimSpace(s.OutputPath) == "" {
		return &ConfigError{Field: "output_path", Reason: "出力先は必須です"}
	}
	if err := s.Theme.Validate(); err != nil {
		return err
	}

	switch s.SearchSource {
	case "":
		s.SearchSource = SourceSerper // 省略時は Web 検索
	case SourceSerper, SourceYouTube:
	default:
		return &ConfigError{Field: "search_source", Reason: fmt.Sprintf("youtube または serper を指定してください (got %q)", s.SearchSource)}
	}

	return nil
}
