package domain

import "fmt"

// ValidationError は、AI が返したスライド構造がスキーマ不変条件を満たさない場合のエラーです。
// コンパイラはこのエラー文面をそのまま次の試行のプロンプトに埋め込み、自己修復を促します。
type ValidationError struct {
	Field  string // 問題のあったフィールド名（例: "style", "content"）
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("slide validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("slide validation failed: field %q: %s", e.Field, e.Reason)
}

// ConfigError は入力スペックの欠落・不正を表す起動時の致命的エラーです。
// 生成処理が始まる前に検出され、実行全体を中断させます。
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid presentation spec: %s", e.Reason)
	}
	return fmt.Sprintf("invalid presentation spec: field %q: %s", e.Field, e.Reason)
}
