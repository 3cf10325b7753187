package mailer

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var fence = []byte("---")

// Document is a markdown email template split into frontmatter and body.
type Document struct {
	Metadata map[string]any
	Body     string
}

// Meta returns a string frontmatter value. Keys match case-insensitively,
// so "Subject" and "subject" are the same field.
func (d *Document) Meta(key string) string {
	if v, ok := d.Metadata[key]; ok {
		s, _ := v.(string)
		return s
	}
	for k, v := range d.Metadata {
		if strings.EqualFold(k, key) {
			s, _ := v.(string)
			return s
		}
	}
	return ""
}

// ParseDocument splits YAML frontmatter delimited by "---" lines from the markdown body.
// Content without a leading fence is all body.
func ParseDocument(content []byte) (*Document, error) {
	if !bytes.HasPrefix(content, fence) {
		return &Document{Metadata: map[string]any{}, Body: string(content)}, nil
	}

	rest := bytes.TrimLeft(content[len(fence):], "\r\n")
	if len(rest) == 0 {
		return nil, fmt.Errorf("%w: empty document after opening fence", ErrInvalidFrontmatter)
	}

	var head, body []byte
	if bytes.HasPrefix(rest, fence) {
		body = rest[len(fence):]
	} else {
		var found bool
		head, body, found = bytes.Cut(rest, append([]byte("\n"), fence...))
		if !found {
			return nil, fmt.Errorf("%w: closing fence not found", ErrInvalidFrontmatter)
		}
	}
	body = trimNewline(body)

	meta := map[string]any{}
	if len(bytes.TrimSpace(head)) > 0 {
		if err := yaml.Unmarshal(head, &meta); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
		}
	}

	return &Document{Metadata: meta, Body: string(body)}, nil
}

// trimNewline drops the line break that ends the closing fence.
func trimNewline(b []byte) []byte {
	if rest, ok := bytes.CutPrefix(b, []byte("\r\n")); ok {
		return rest
	}
	if rest, ok := bytes.CutPrefix(b, []byte("\n")); ok {
		return rest
	}
	return b
}
