package paginate

import (
	"strings"

	"golang.org/x/net/html"
)

// Block-level markup collapses to line breaks during normalization.
var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "ul": {}, "ol": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"section": {}, "article": {}, "blockquote": {}, "table": {}, "tr": {}, "hr": {},
}

// NormalizeContent converts raw chapter text into plain measured text: CRLF
// becomes LF, markup is stripped with block-level tags collapsing to
// newlines, runs of blank lines disappear and every line loses trailing
// whitespace. Pagination and the round-trip invariant both operate on this
// normalized form.
func NormalizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	if strings.ContainsRune(s, '<') {
		s = stripMarkup(s)
	} else if strings.ContainsRune(s, '&') {
		// the tokenizer decodes entities on the markup path, plain text
		// carrying entities needs the same treatment
		s = html.UnescapeString(s)
	}

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, " \t　")
		if len(line) == 0 {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// stripMarkup extracts text from loosely structured HTML. The tokenizer is
// tolerant of malformed markup - whatever text was extracted before an error
// is kept.
func stripMarkup(in string) string {
	tok := html.NewTokenizer(strings.NewReader(in))

	var b strings.Builder
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(tok.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := tok.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skipElement(tok, tag)
				continue
			}
			if _, ok := blockTags[tag]; ok {
				b.WriteByte('\n')
			}
		}
	}
}

func skipElement(tok *html.Tokenizer, tag string) {
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return
		case html.EndTagToken:
			name, _ := tok.TagName()
			if string(name) == tag {
				return
			}
		}
	}
}
