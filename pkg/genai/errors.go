package genai

import "fmt"

// FailureKind は生成系エラーの分類です。
type FailureKind int

const (
	// FailureTransient はバックエンドの一時的エラー（通信・レート制限など）です。
	FailureTransient FailureKind = iota
	// FailureMalformedOutput は構造化出力を要求したのに応答から妥当な JSON が
	// 取り出せなかったことを表します。
	FailureMalformedOutput
	// FailureEmptyPrompt は空のプロンプトで呼び出されたことを表します。
	FailureEmptyPrompt
)

// GenerationError は生成クライアントが返す失敗です。
// 呼び出し側はローカルのリトライ予算を使い切ったら「結果なし」として扱い、
// バックエンドの生の例外を上位へ伝播させません。
type GenerationError struct {
	Kind FailureKind
	Msg  string
	Err  error
}

func (e *GenerationError) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("generation failed: %s: %v", e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("generation failed: %v", e.Err)
	}
	return fmt.Sprintf("generation failed: %s", e.Msg)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsMalformed は構造化出力の不正を表すエラーかどうかを判定します。
func IsMalformed(err error) bool {
	genErr, ok := err.(*GenerationError)
	return ok && genErr.Kind == FailureMalformedOutput
}
