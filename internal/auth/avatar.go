package auth

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultAvatarURLTemplate はユーザー名をシードにしたアイコン画像URLのテンプレート。
const DefaultAvatarURLTemplate = "https://api.dicebear.com/7.x/thumbs/svg?seed=%s"

// uriComponentReplacer はurl.QueryEscapeの結果を、
// 非予約文字 !'()* とスペースの扱いでURIコンポーネント形式に揃える。
var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// ValidAvatarTemplate はtemplateが書式指定子として%sをちょうど1つだけ含むかを判定する。
// %%はリテラルの%として扱う。
func ValidAvatarTemplate(template string) bool {
	verbs := strings.ReplaceAll(template, "%%", "")
	return strings.Count(verbs, "%") == 1 && strings.Count(verbs, "%s") == 1
}

// AvatarURL はテンプレートにエスケープ済みユーザー名を埋め込んだURLを返す。
// templateが不正な場合はDefaultAvatarURLTemplateを使用する。
func AvatarURL(template, username string) string {
	if !ValidAvatarTemplate(template) {
		template = DefaultAvatarURLTemplate
	}
	return fmt.Sprintf(template, escapeURIComponent(username))
}

func escapeURIComponent(s string) string {
	return uriComponentReplacer.Replace(url.QueryEscape(s))
}
