// Package security は投稿テキストのサニタイズと画像URLの検証を提供する。
package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer は保存前の投稿テキストを無害化するインターフェース。
type Sanitizer interface {
	// Content は本文の書式タグ（p, br, a, ul, ol, li, blockquote, pre, code, strong, em）のみを残す。
	Content(raw string) string
	// Text はタイトルやコメントから全てのタグを除去したプレーンテキストを返す。
	Text(raw string) string
}

// PostSanitizer はbluemondayのポリシーでSanitizerを実装する。
// bluemonday.Policyは生成後の並行利用が安全。
type PostSanitizer struct {
	content *bluemonday.Policy
	text    *bluemonday.Policy
}

// NewPostSanitizer はPostSanitizerを生成する。
// 本文ポリシー:
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em
//   - script, iframe, style, img と全てのon*イベント属性は除去
//   - aタグはhttp(s)の絶対URLのみ、target="_blank" と rel="noopener noreferrer" を付与
func NewPostSanitizer() *PostSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &PostSanitizer{
		content: p,
		text:    bluemonday.StrictPolicy(),
	}
}

// Content は本文をサニタイズする。前後の空白は除去する。
func (s *PostSanitizer) Content(raw string) string {
	return strings.TrimSpace(s.content.Sanitize(raw))
}

// maxTextPasses はTextが不動点に達するまでに許す除去と復号の反復回数。
const maxTextPasses = 4

// Text は全てのタグを除去したプレーンテキストを返す。
// StrictPolicyが付与した文字参照は元の文字に戻す（JSONで返すため）。
// 復号で現れたタグも除去されるよう、結果が変わらなくなるまで繰り返す。
// 収束しない入力は文字参照のまま返す。
func (s *PostSanitizer) Text(raw string) string {
	current := raw
	for i := 0; i < maxTextPasses; i++ {
		escaped := s.text.Sanitize(current)
		next := html.UnescapeString(escaped)
		if next == current {
			return strings.TrimSpace(next)
		}
		current = next
	}
	return strings.TrimSpace(s.text.Sanitize(current))
}

// dataImagePrefixes は投稿画像として受け付けるdata URIの種類。
var dataImagePrefixes = []string{
	"data:image/png;base64,",
	"data:image/jpeg;base64,",
	"data:image/jpg;base64,",
	"data:image/gif;base64,",
	"data:image/webp;base64,",
}

// ValidImage は投稿画像の値が受け付け可能か判定する。
// 空文字列（画像なし）、base64のdata:image URI、ホスト付きのhttp(s) URLを受け付ける。
func ValidImage(image string) bool {
	if image == "" {
		return true
	}
	lower := strings.ToLower(image)
	for _, prefix := range dataImagePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return len(image) > len(prefix)
		}
	}

	u, err := url.Parse(image)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
