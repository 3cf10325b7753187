package mailtemplate

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Renderer substitutes variables into template content.
// It is stateless apart from the base URL and safe for concurrent use.
type Renderer struct {
	base *url.URL
}

// RendererConfig configures the renderer.
type RendererConfig struct {
	// BaseURL resolves relative links in HTML output. Empty disables rewriting.
	BaseURL string `env:"MAILVAULT_BASE_URL"`
}

// NewRenderer creates a renderer.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	r := &Renderer{}
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || !u.IsAbs() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
		}
		r.base = u
	}
	return r, nil
}

// Render executes content with vars.
//
// Placeholders ({{.Name}}) are substituted, range blocks repeat once per list
// element and with blocks render once for a present value. Names missing from
// vars render empty. HTML output is escaped by html/template and has relative
// URLs rewritten against the base URL; plain output is substitution only.
func (r *Renderer) Render(content string, vars map[string]any, isPlain bool) (string, error) {
	refs, err := Scan(content)
	if err != nil {
		return "", err
	}
	data := fill(vars, refs)

	var buf bytes.Buffer
	if isPlain {
		tmpl, err := template.New("content").
			Funcs(sprig.TxtFuncMap()).
			Option("missingkey=zero").
			Parse(content)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("%w: %v", ErrRender, err)
		}
		return buf.String(), nil
	}

	tmpl, err := htmltemplate.New("content").
		Funcs(sprig.HtmlFuncMap()).
		Option("missingkey=zero").
		Parse(content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}

	return r.Absolutize(buf.String()), nil
}

// Absolutize rewrites relative URLs in html against the base URL.
// Without a base URL the input is returned unchanged.
func (r *Renderer) Absolutize(html string) string {
	if r.base == nil {
		return html
	}
	return AbsoluteURLs(html, r.base)
}

// fill copies vars and supplies empty values for referenced names that are
// missing or nil, so they render as nothing instead of "<no value>".
// Blocks and field chains bound to an empty string are treated as missing.
func fill(vars map[string]any, refs []Reference) map[string]any {
	data := make(map[string]any, len(vars)+len(refs))
	for k, v := range vars {
		data[k] = v
	}
	for _, ref := range refs {
		if v, ok := data[ref.Name]; ok && v != nil {
			// An unconfigured static variable is "", which cannot be ranged or dereferenced.
			if s, isString := v.(string); !isString || s != "" || (!ref.Chained && !ref.Block) {
				continue
			}
		}
		switch {
		case ref.Chained:
			data[ref.Name] = map[string]string{}
		case ref.Block:
			data[ref.Name] = nil
		default:
			data[ref.Name] = ""
		}
	}
	return data
}
