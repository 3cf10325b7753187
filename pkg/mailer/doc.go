// Package mailer defines the transport contract and the file-based template renderer.
//
// A Sender delivers a fully prepared Email. Adapters live in subpackages:
//
//   - resend: the Resend HTTP API
//   - smtp: any SMTP relay (gomail)
//
// The send pipeline in the root package resolves recipients and content, then
// calls a Sender; this package knows nothing about persistence.
//
//	sender := resend.New(resend.Config{
//		APIKey:      os.Getenv("RESEND_API_KEY"),
//		SenderEmail: "team@example.com",
//		SenderName:  "Team",
//	})
//
//	err := sender.Send(ctx, &mailer.Email{
//		To:      []string{"user@example.com"},
//		Subject: "Welcome",
//		HTML:    "<p>Hello!</p>",
//		Tags:    mailer.SimpleTags("welcome"),
//	})
//
// Any function can act as a sender:
//
//	var discard mailer.Sender = mailer.SenderFunc(func(context.Context, *mailer.Email) error { return nil })
//
// # File templates
//
// Renderer renders markdown files with optional YAML frontmatter into an HTML
// layout. These are the built-in default templates, used when a message names
// no operator-edited template and carries no body of its own.
//
//	---
//	Subject: Welcome {{.Name}}!
//	---
//
//	Hello {{.Name}}, welcome aboard.
//
//	[!button|Get Started]({{.URL}})
//
// The subject is executed with the same data as the body. Sprig functions are
// available in templates and layouts. The layout receives .Content and .Metadata.
//
//	r := mailer.NewRenderer(emails.FS, mailer.RendererConfig{})
//	res, err := r.Render("base.html", "welcome.md", data)
package mailer
