package render

import "fmt"

// LayoutError は1枚のスライドの描画失敗を表します。
// 呼び出し側はこのエラーを致命傷とせず、該当スライドを飛ばして続行できます。
type LayoutError struct {
	SlideTitle string
	Op         string
	Err        error
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("スライド %q の描画に失敗しました (%s): %v", e.SlideTitle, e.Op, e.Err)
}

func (e *LayoutError) Unwrap() error { return e.Err }
