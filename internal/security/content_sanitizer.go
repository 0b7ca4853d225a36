// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はタスクの説明文をサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグのみを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
// タスクの説明文の保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize は入力をサニタイズして安全なHTMLを返す。
	// 軽量な書式タグ（br, strong, em, code, ul, ol, li）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// ポリシーの内容:
//   - 許可タグ: br, strong, em, code, ul, ol, li
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//
// タスクの説明文はほぼプレーンテキストだが、箇条書きと強調程度の
// 軽量な書式は保持する。リンクと画像は許可しない。
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	// script, iframe, style等は許可リストに含めないことで自動的に除去される。
	// on*イベント属性はbluemondayのデフォルトで許可されない。
	p.AllowElements(
		"br", "ul", "ol", "li",
		"code", "strong", "em",
	)

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize は入力をサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
