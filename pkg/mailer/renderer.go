package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"sync"
	texttemplate "text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/yuin/goldmark"
)

// Renderer turns markdown templates with YAML frontmatter into HTML emails
// wrapped in a layout. Parsed templates and layouts are cached by name.
type Renderer struct {
	fs fs.FS
	md goldmark.Markdown

	templates map[string]*parsedTemplate
	layouts   map[string]*template.Template

	templateDir string
	layoutDir   string

	mu sync.RWMutex
}

type parsedTemplate struct {
	metadata map[string]any
	body     *texttemplate.Template
	subject  *texttemplate.Template
}

// RendererConfig configures the renderer.
type RendererConfig struct {
	TemplateDir string         // Default: "."
	LayoutDir   string         // Default: "layouts"
	Buttons     []ButtonOption // Markup options for [!button|...] links
}

// NewRenderer creates a renderer reading templates and layouts from filesystem.
func NewRenderer(filesystem fs.FS, cfg RendererConfig) *Renderer {
	if cfg.TemplateDir == "" {
		cfg.TemplateDir = "."
	}
	if cfg.LayoutDir == "" {
		cfg.LayoutDir = "layouts"
	}

	return &Renderer{
		fs:          filesystem,
		md:          goldmark.New(goldmark.WithExtensions(Buttons(cfg.Buttons...))),
		templates:   make(map[string]*parsedTemplate),
		layouts:     make(map[string]*template.Template),
		templateDir: cfg.TemplateDir,
		layoutDir:   cfg.LayoutDir,
	}
}

// Result is a rendered file template.
type Result struct {
	Metadata map[string]any
	Subject  string // Frontmatter subject executed with the same data; empty if unset
	HTML     string
	Text     string // Executed markdown, before HTML conversion
}

// Render executes the named markdown template with data and wraps the HTML in layout.
// The layout receives .Content (the converted markdown) and .Metadata.
func (r *Renderer) Render(layout, name string, data any) (*Result, error) {
	tmpl, err := r.template(name)
	if err != nil {
		return nil, err
	}

	var md bytes.Buffer
	if err := tmpl.body.Execute(&md, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}

	var subject string
	if tmpl.subject != nil {
		var buf bytes.Buffer
		if err := tmpl.subject.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("%w: %s subject: %v", ErrRenderFailed, name, err)
		}
		subject = buf.String()
	}

	var content bytes.Buffer
	if err := r.md.Convert(md.Bytes(), &content); err != nil {
		return nil, fmt.Errorf("%w: %s: markdown: %v", ErrRenderFailed, name, err)
	}

	lt, err := r.layout(layout)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	err = lt.Execute(&out, map[string]any{
		"Content":  template.HTML(content.String()), // goldmark omits raw HTML by default
		"Metadata": tmpl.metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: layout %s: %v", ErrRenderFailed, layout, err)
	}

	return &Result{
		Metadata: tmpl.metadata,
		Subject:  subject,
		HTML:     out.String(),
		Text:     md.String(),
	}, nil
}

// Has reports whether a template with the given name exists.
func (r *Renderer) Has(name string) bool {
	_, err := fs.Stat(r.fs, path.Join(r.templateDir, name))
	return err == nil
}

func (r *Renderer) template(name string) (*parsedTemplate, error) {
	r.mu.RLock()
	t, ok := r.templates[name]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.templates[name]; ok {
		return t, nil
	}

	raw, err := fs.ReadFile(r.fs, path.Join(r.templateDir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, name, err)
	}
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRenderFailed, name, err)
	}

	t = &parsedTemplate{metadata: doc.Metadata}
	t.body, err = texttemplate.New(name).Funcs(sprig.TxtFuncMap()).Parse(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}
	if s := doc.Meta("Subject"); s != "" {
		t.subject, err = texttemplate.New(name + ":subject").Funcs(sprig.TxtFuncMap()).Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s subject: %v", ErrRenderFailed, name, err)
		}
	}

	r.templates[name] = t
	return t, nil
}

func (r *Renderer) layout(name string) (*template.Template, error) {
	r.mu.RLock()
	l, ok := r.layouts[name]
	r.mu.RUnlock()
	if ok {
		return l, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.layouts[name]; ok {
		return l, nil
	}

	raw, err := fs.ReadFile(r.fs, path.Join(r.layoutDir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLayoutNotFound, name, err)
	}
	l, err = template.New(name).Funcs(sprig.HtmlFuncMap()).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: layout %s: %v", ErrRenderFailed, name, err)
	}

	r.layouts[name] = l
	return l, nil
}
