package mailtemplate

import (
	"errors"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Attributes holding URLs that are rewritten.
var urlAttrs = map[string]struct{}{
	"href":       {},
	"src":        {},
	"background": {},
	"action":     {},
}

// AbsoluteURLs rewrites relative href, src, background and action attributes
// in body to absolute URLs resolved against base. Tags without relative URLs
// are copied byte for byte. Input that cannot be tokenized is returned as is.
func AbsoluteURLs(body string, base *url.URL) string {
	z := html.NewTokenizer(strings.NewReader(body))

	var b strings.Builder
	b.Grow(len(body))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return b.String()
			}
			return body
		case html.StartTagToken, html.SelfClosingTagToken:
			// Token() lowercases the buffer in place, so keep a copy of the raw tag.
			raw := string(z.Raw())
			tok := z.Token()
			if rewriteToken(&tok, base) {
				b.WriteString(tok.String())
			} else {
				b.WriteString(raw)
			}
		default:
			b.Write(z.Raw())
		}
	}
}

func rewriteToken(tok *html.Token, base *url.URL) bool {
	changed := false
	for i, attr := range tok.Attr {
		if _, ok := urlAttrs[attr.Key]; !ok || attr.Namespace != "" {
			continue
		}
		if abs, ok := absolute(attr.Val, base); ok {
			tok.Attr[i].Val = abs
			changed = true
		}
	}
	return changed
}

func absolute(raw string, base *url.URL) (string, bool) {
	v := strings.TrimSpace(raw)
	if v == "" || strings.HasPrefix(v, "#") || strings.HasPrefix(v, "//") {
		return "", false
	}
	u, err := url.Parse(v)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "", false
	}
	return base.ResolveReference(u).String(), true
}
