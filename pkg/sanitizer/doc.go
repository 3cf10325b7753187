// Package sanitizer converts and cleans HTML email bodies.
//
// PlainText derives the text/plain alternative of an HTML message.
// SanitizeHTML makes a stored body safe to show in an admin preview.
package sanitizer
