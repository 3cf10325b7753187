// Package mailtemplate models operator-editable email templates and renders them.
//
// A Template holds Go template markup. Its variables are derived from the
// content: every top-level placeholder ({{.Name}}), field chain
// ({{.Member.Name}}) and block ({{range .Items}}...{{end}},
// {{with .Item}}...{{end}}) becomes a Variable. Scan finds them and Reconcile
// diffs them against the variables a template already has, so operator
// configuration survives content edits.
//
// # Variables
//
// Each variable has a value type:
//
//   - static: the configured Value is used verbatim
//   - random: random entities of RecordType from a directory.Registry
//   - query: entities of RecordType matching a filter such as
//     "Name:StartsWith=Uncle&Status=Active"
//
// Entity values reach templates as map[string]string with ID, Email and the
// entity attributes. List variables hold at most ListLimit entities.
//
//	res := mailtemplate.NewResolver(registry)
//	data, err := res.ResolveAll(ctx, tmpl.Variables)
//	if err != nil {
//		// errors.Is(err, mailtemplate.ErrResolution)
//	}
//
// # Rendering
//
//	r, err := mailtemplate.NewRenderer(mailtemplate.RendererConfig{BaseURL: "https://example.com"})
//	html, err := r.Render(tmpl.Content, data, false)
//
// HTML rendering escapes values and rewrites relative href, src, background
// and action URLs against the base URL. Plain rendering only substitutes.
// Names that are referenced but missing render empty.
//
// # Identifiers
//
// NormalizeIdentifier gives the stored form of a free-form name; lookups by
// name go through it. UniqueIdentifier normalizes and appends -1, -2, ...
// while another template holds the result.
package mailtemplate
