// Package digest is a standalone text-extraction utility for newsletter
// digest bodies. It is consumed by notification formatting, not by the
// pipeline itself.
package digest

import (
	"regexp"
	"strings"
)

var (
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	spaceRe  = regexp.MustCompile(`[ \t]+`)
	anchorRe = regexp.MustCompile(`(?is)<a[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)
)

// entity replacements applied before tag stripping.
var replacements = []struct {
	from, to string
}{
	{"<br>", "\n"},
	{"<br/>", "\n"},
	{"<br />", "\n"},
	{"</p>", "\n"},
	{"</div>", "\n"},
	{"&nbsp;", " "},
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#39;", "'"},
}

// PlainText converts an HTML fragment to plain text: block-level tags
// become newlines, remaining tags are stripped, entities are decoded, and
// whitespace is collapsed.
func PlainText(html string) string {
	text := html
	for _, r := range replacements {
		text = strings.ReplaceAll(text, r.from, r.to)
	}
	text = tagRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Item is one extracted digest entry: a link with its visible title.
type Item struct {
	Title string
	URL   string
}

// ExtractItems pulls (title, url) pairs out of an HTML digest body. Anchors
// without a readable title (icons, tracking pixels, bare URLs shorter than
// three words of text) are dropped, and duplicate URLs are kept once.
func ExtractItems(html string) []Item {
	var items []Item
	seen := make(map[string]bool)

	for _, m := range anchorRe.FindAllStringSubmatch(html, -1) {
		url, title := m[1], PlainText(m[2])
		if title == "" || len(title) < 8 || seen[url] {
			continue
		}
		if strings.HasPrefix(title, "http://") || strings.HasPrefix(title, "https://") {
			continue
		}
		seen[url] = true
		items = append(items, Item{Title: title, URL: url})
	}
	return items
}

// Truncate shortens text to at most max runes, appending an ellipsis when
// anything was cut.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
