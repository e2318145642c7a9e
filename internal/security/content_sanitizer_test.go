package security

import (
	"strings"
	"testing"
)

func TestContent_AllowedTags(t *testing.T) {
	s := NewPostSanitizer()

	tests := []struct {
		name         string
		input        string
		wantContains []string
	}{
		{"pタグ", "<p>段落</p>", []string{"<p>段落</p>"}},
		{"リスト", "<ul><li>項目</li></ul>", []string{"<ul>", "<li>項目</li>", "</ul>"}},
		{"強調", "<strong>太字</strong><em>斜体</em>", []string{"<strong>太字</strong>", "<em>斜体</em>"}},
		{"コード", "<pre><code>x := 1</code></pre>", []string{"<pre><code>x := 1</code></pre>"}},
		{"リンク", `<a href="https://example.com">リンク</a>`, []string{`href="https://example.com"`, `target="_blank"`, "noopener", "noreferrer"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Content(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Content(%q) = %q, want to contain %q", tt.input, got, want)
				}
			}
		})
	}
}

func TestContent_ForbiddenMarkupRemoved(t *testing.T) {
	s := NewPostSanitizer()

	tests := []struct {
		name       string
		input      string
		wantAbsent []string
	}{
		{"script", `<p>ok</p><script>alert(1)</script>`, []string{"<script", "alert(1)"}},
		{"iframe", `<iframe src="https://evil.example.com"></iframe>`, []string{"<iframe"}},
		{"style", `<style>body{}</style>`, []string{"<style"}},
		{"img", `<img src="https://example.com/a.png">`, []string{"<img"}},
		{"onclick", `<p onclick="alert(1)">x</p>`, []string{"onclick"}},
		{"javascript href", `<a href="javascript:alert(1)">x</a>`, []string{"javascript:"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Content(tt.input)
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Content(%q) = %q, must not contain %q", tt.input, got, absent)
				}
			}
		})
	}
}

func TestContent_Idempotent(t *testing.T) {
	s := NewPostSanitizer()
	input := `<p>Hello <a href="https://example.com">world</a></p><script>x</script>`

	first := s.Content(input)
	if second := s.Content(first); first != second {
		t.Errorf("not idempotent: %q then %q", first, second)
	}
}

func TestText_StripsAllTags(t *testing.T) {
	s := NewPostSanitizer()

	tests := []struct {
		input string
		want  string
	}{
		{"Hello", "Hello"},
		{"<b>Bold</b> title", "Bold title"},
		{"<script>alert(1)</script>Safe", "Safe"},
		{"Tom & Jerry's", "Tom & Jerry's"},
		{"  spaced  ", "spaced"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := s.Text(tt.input); got != tt.want {
			t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// 文字参照で書かれたタグも復号後に除去され、結果は再サニタイズしても変わらない
func TestText_EncodedMarkupDoesNotSurvive(t *testing.T) {
	s := NewPostSanitizer()

	tests := []struct {
		input string
		want  string
	}{
		{"&lt;img src=x onerror=alert(1)&gt;", ""},
		{"&lt;b&gt;hi&lt;/b&gt;", "hi"},
		{"&amp;lt;b&amp;gt;x", "x"},
		{"a &lt; b", "a < b"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
	}

	for _, tt := range tests {
		got := s.Text(tt.input)
		if got != tt.want {
			t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if again := s.Text(got); again != got {
			t.Errorf("Text(Text(%q)) = %q, want %q", tt.input, again, got)
		}
	}
}

func TestValidImage(t *testing.T) {
	tests := []struct {
		name  string
		image string
		want  bool
	}{
		{"空（画像なし）", "", true},
		{"png data URI", "data:image/png;base64,iVBORw0KGgo=", true},
		{"jpeg data URI（大文字）", "DATA:IMAGE/JPEG;base64,/9j/4AAQ", true},
		{"https URL", "https://cdn.example.com/a.png", true},
		{"http URL", "http://example.com/a.png", true},
		{"中身のないdata URI", "data:image/png;base64,", false},
		{"svg data URI", "data:image/svg+xml;base64,PHN2Zz4=", false},
		{"text data URI", "data:text/html;base64,PHNjcmlwdD4=", false},
		{"javascript", "javascript:alert(1)", false},
		{"ホストなし", "https://", false},
		{"相対パス", "/uploads/a.png", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidImage(tt.image); got != tt.want {
				t.Errorf("ValidImage(%q) = %v, want %v", tt.image, got, tt.want)
			}
		})
	}
}
