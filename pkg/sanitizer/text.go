package sanitizer

import (
	"html"
	"strings"
	"unicode"

	xhtml "golang.org/x/net/html"
)

// Tags after which the plain text breaks the line.
var (
	paragraphTags = map[string]bool{
		"p": true, "div": true, "table": true, "ul": true, "ol": true,
		"blockquote": true, "h1": true, "h2": true, "h3": true,
		"h4": true, "h5": true, "h6": true, "hr": true, "pre": true,
	}
	lineTags = map[string]bool{"br": true, "li": true, "tr": true}
)

// PlainText converts an HTML email body into its plain-text alternative.
// Block elements become line breaks, list items are prefixed with "- ",
// link targets follow the link text in parentheses and all markup,
// including script and style content, is dropped.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	initPolicies()

	stripped := strictPolicy.Sanitize(structure(s))
	return normalize(html.UnescapeString(stripped))
}

// structure copies s adding explicit line breaks and link targets as text,
// so they survive tag stripping.
func structure(s string) string {
	var (
		b    strings.Builder
		href string
		text strings.Builder
	)
	z := xhtml.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			return b.String()
		}
		raw := string(z.Raw())

		switch tt {
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			tok := z.Token()
			b.WriteString(raw)
			switch {
			case tok.Data == "li":
				b.WriteString("- ")
			case tok.Data == "ul" || tok.Data == "ol":
				b.WriteString("\n")
			case tok.Data == "a":
				href, text = attr(tok, "href"), strings.Builder{}
			case tok.Data == "br" || tok.Data == "hr":
				b.WriteString("\n")
			}
			continue
		case xhtml.EndTagToken:
			tok := z.Token()
			b.WriteString(raw)
			switch {
			case tok.Data == "a":
				if linkable(href, text.String()) {
					b.WriteString(" (" + html.EscapeString(href) + ")")
				}
				href = ""
			case paragraphTags[tok.Data]:
				b.WriteString("\n\n")
			case lineTags[tok.Data]:
				b.WriteString("\n")
			}
			continue
		case xhtml.TextToken:
			raw = collapseSpace(raw)
			if href != "" {
				text.WriteString(html.UnescapeString(raw))
			}
		}
		b.WriteString(raw)
	}
}

// collapseSpace replaces each whitespace run with one space, so source
// formatting does not leak into the text layout.
func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func attr(tok xhtml.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func linkable(href, text string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "vbscript:") {
		return false
	}
	return strings.TrimSpace(text) != href && strings.TrimPrefix(href, "mailto:") != strings.TrimSpace(text)
}

// normalize collapses runs of spaces within lines and keeps at most one
// blank line between paragraphs.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
