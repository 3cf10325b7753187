package sanitizer

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy  *bluemonday.Policy
	previewPolicy *bluemonday.Policy
	initOnce      sync.Once
)

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		// Stored message bodies are whole email documents. The preview keeps
		// layout tables and images but none of the active content.
		previewPolicy = bluemonday.UGCPolicy()
		previewPolicy.AllowElements("center", "font", "span", "div")
		previewPolicy.AllowAttrs("align", "valign", "width", "height", "bgcolor").Globally()
		previewPolicy.AllowAttrs("color", "face", "size").OnElements("font")
		previewPolicy.AllowAttrs("cellpadding", "cellspacing", "border").OnElements("table")
		previewPolicy.RequireNoFollowOnLinks(true)
		previewPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	})
}

// SanitizeHTML makes a stored email body safe to embed in an admin page.
// Formatting, tables, images and links survive; scripts, event handlers,
// forms and javascript: URLs are removed.
func SanitizeHTML(s string) string {
	initPolicies()
	return previewPolicy.Sanitize(s)
}

// SanitizeHTMLCustom applies a custom bluemonday policy.
// Returns input unchanged if policy is nil.
func SanitizeHTMLCustom(s string, policy *bluemonday.Policy) string {
	if policy == nil {
		return s
	}
	return policy.Sanitize(s)
}
