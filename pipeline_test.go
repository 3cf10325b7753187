package mailvault_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailvault"
	"github.com/dmitrymomot/mailvault/pkg/directory"
	"github.com/dmitrymomot/mailvault/pkg/mailer"
	"github.com/dmitrymomot/mailvault/pkg/mailtemplate"
	"github.com/dmitrymomot/mailvault/pkg/store"
)

type recorder struct {
	err    error
	emails []*mailer.Email
	mu     sync.Mutex
}

func (r *recorder) Send(_ context.Context, email *mailer.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.emails = append(r.emails, email.Clone())
	return nil
}

func (r *recorder) sent() []*mailer.Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*mailer.Email(nil), r.emails...)
}

type fixture struct {
	pipeline  *mailvault.Pipeline
	templates *store.MemoryTemplates
	sent      *store.MemorySentMessages
	sender    *recorder
}

func newFixture(t *testing.T, cfg mailvault.Config, opts ...mailvault.Option) *fixture {
	t.Helper()

	f := &fixture{
		templates: store.NewMemoryTemplates(),
		sent:      store.NewMemorySentMessages(),
		sender:    &recorder{},
	}
	f.pipeline = mailvault.New(cfg, f.templates, f.sent, f.sender, opts...)
	return f
}

func members() []directory.Entity {
	return []directory.Entity{
		{Type: "member", ID: "1", Address: "ann@example.com", Attributes: map[string]string{"Name": "Ann"}},
		{Type: "member", ID: "2", Address: "bob@example.com", Attributes: map[string]string{"Name": "Bob"}},
		{Type: "member", ID: "3", Address: "cid@example.com", Attributes: map[string]string{"Name": "Cid"}},
	}
}

func catalog() *directory.Registry {
	products := directory.NewMemorySource(
		directory.Entity{Type: "product", ID: "p1", Address: "-", Attributes: map[string]string{"Title": "Lamp", "Status": "Featured"}},
		directory.Entity{Type: "product", ID: "p2", Address: "-", Attributes: map[string]string{"Title": "Desk", "Status": "Featured"}},
		directory.Entity{Type: "product", ID: "p3", Address: "-", Attributes: map[string]string{"Title": "Chair", "Status": "Archived"}},
	)
	reg := directory.NewRegistry()
	reg.Register("product", products)
	return reg
}

func saveTemplate(t *testing.T, f *fixture, tmpl *mailtemplate.Template) *mailtemplate.Template {
	t.Helper()
	require.NoError(t, f.templates.Save(context.Background(), tmpl))
	return tmpl
}

func configure(t *testing.T, f *fixture, tmpl *mailtemplate.Template, v mailtemplate.Variable) {
	t.Helper()
	stored, ok := tmpl.Variable(v.Name)
	require.True(t, ok, "variable %s", v.Name)
	v.ID = stored.ID
	require.NoError(t, f.templates.UpdateVariable(context.Background(), &v))
}

func TestPipeline_FanOutWithBlock(t *testing.T) {
	t.Parallel()

	f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com"}, mailvault.WithRegistry(catalog()))
	tmpl := saveTemplate(t, f, &mailtemplate.Template{
		Identifier: "welcome",
		Subject:    "Welcome",
		Content:    `<p>Hi {{.RecipientMember.Name}}</p><ul>{{range .Items}}<li>{{.Title}}</li>{{end}}</ul>`,
	})
	configure(t, f, tmpl, mailtemplate.Variable{
		Name:       "Items",
		ValueType:  mailtemplate.ValueQuery,
		RecordType: "product",
		Query:      "Status=Featured",
		List:       true,
	})

	deliveries, err := f.pipeline.Send(context.Background(), &mailvault.Message{
		Template:   "welcome",
		Recipients: members(),
	})
	require.NoError(t, err)
	require.Len(t, deliveries, 3)
	require.Equal(t, 3, f.sent.Len())

	emails := f.sender.sent()
	require.Len(t, emails, 3)

	byRecipient := make(map[string]*mailer.Email, len(emails))
	for _, e := range emails {
		require.Len(t, e.To, 1)
		byRecipient[e.To[0]] = e
	}

	for _, m := range members() {
		e := byRecipient[m.Address]
		require.NotNil(t, e, m.Address)
		assert.Equal(t, "Welcome", e.Subject)
		assert.Equal(t, "admin@example.com", e.From)
		assert.Contains(t, e.HTML, "<p>Hi "+m.Attributes["Name"]+"</p>")
		assert.Equal(t, 2, strings.Count(e.HTML, "<li>"))
		assert.Contains(t, e.HTML, "<li>Lamp</li>")
		assert.Contains(t, e.HTML, "<li>Desk</li>")
		assert.NotContains(t, e.HTML, "Chair")
		assert.Contains(t, e.Text, "- Lamp")
	}

	for _, d := range deliveries {
		assert.Equal(t, mailvault.StatePersisted, d.State)
		assert.Equal(t, "welcome", d.Template)
		require.NotNil(t, d.Recipient)

		rec, err := f.sent.Get(context.Background(), d.ID)
		require.NoError(t, err)
		assert.Equal(t, d.Recipient.Address, rec.To)
		assert.Equal(t, "Welcome", rec.Subject)
		assert.Equal(t, d.Email.HTML, rec.Body)
		assert.False(t, rec.TestMode)
	}
}

func TestPipeline_Defaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("from falls back to template then config", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com", DefaultFrom: "noreply@example.com"})
		saveTemplate(t, f, &mailtemplate.Template{Identifier: "a", Subject: "A", From: "team@example.com", Content: "<p>a</p>"})
		saveTemplate(t, f, &mailtemplate.Template{Identifier: "b", Subject: "B", Content: "<p>b</p>"})

		ds, err := f.pipeline.Send(ctx, &mailvault.Message{Template: "a", To: []string{"x@example.com"}})
		require.NoError(t, err)
		assert.Equal(t, "team@example.com", ds[0].Email.From)

		ds, err = f.pipeline.Send(ctx, &mailvault.Message{Template: "b", To: []string{"x@example.com"}})
		require.NoError(t, err)
		assert.Equal(t, "noreply@example.com", ds[0].Email.From)

		ds, err = f.pipeline.Send(ctx, &mailvault.Message{Template: "a", From: "me@example.com", To: []string{"x@example.com"}})
		require.NoError(t, err)
		assert.Equal(t, "me@example.com", ds[0].Email.From)
	})

	t.Run("explicit subject and body win over template", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com"})
		saveTemplate(t, f, &mailtemplate.Template{Identifier: "a", Subject: "Template", Content: "<p>template</p>"})

		ds, err := f.pipeline.Send(ctx, &mailvault.Message{
			Template: "a",
			Subject:  "Hello {{.Name}}",
			Body:     "<p>explicit</p>",
			Data:     map[string]any{"Name": "Ann"},
			To:       []string{"x@example.com"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Hello Ann", ds[0].Email.Subject)
		assert.Equal(t, "<p>explicit</p>", ds[0].Email.HTML)
		assert.Equal(t, "explicit", ds[0].Email.Text)
	})

	t.Run("fallback subject and plain body", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com", FallbackSubject: "(no subject)"})
		ds, err := f.pipeline.Send(ctx, &mailvault.Message{Body: "plain <b>text</b>", Plain: true, To: []string{"x@example.com"}})
		require.NoError(t, err)
		assert.Equal(t, "(no subject)", ds[0].Email.Subject)
		assert.Empty(t, ds[0].Email.HTML)
		assert.Equal(t, "plain <b>text</b>", ds[0].Email.Text)
	})

	t.Run("missing template is created", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com", FallbackSubject: "Hi"})
		_, err := f.pipeline.Send(ctx, &mailvault.Message{Template: "fresh", To: []string{"x@example.com"}})
		require.NoError(t, err)

		tmpl, err := f.templates.GetByIdentifier(ctx, "fresh")
		require.NoError(t, err)
		assert.Equal(t, mailtemplate.DefaultContent, tmpl.Content)
	})

	t.Run("template referenced by display name", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com"})
		saveTemplate(t, f, &mailtemplate.Template{Identifier: "Welcome Email", Subject: "Welcome", Content: "<p>operator copy</p>"})

		for range 2 {
			ds, err := f.pipeline.Send(ctx, &mailvault.Message{Template: "Welcome Email", To: []string{"x@example.com"}})
			require.NoError(t, err)
			assert.Equal(t, "<p>operator copy</p>", ds[0].Email.HTML)
			assert.Equal(t, "welcome-email", ds[0].Template)
		}

		all, err := f.templates.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("caller data overrides variables", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com"})
		tmpl := saveTemplate(t, f, &mailtemplate.Template{Identifier: "a", Subject: "S", Content: "<p>{{.Greeting}} {{.Name}}</p>"})
		configure(t, f, tmpl, mailtemplate.Variable{Name: "Greeting", ValueType: mailtemplate.ValueStatic, Value: "Hello"})
		configure(t, f, tmpl, mailtemplate.Variable{Name: "Name", ValueType: mailtemplate.ValueStatic, Value: "nobody"})

		ds, err := f.pipeline.Send(ctx, &mailvault.Message{
			Template: "a",
			Data:     map[string]any{"Name": "Ann"},
			To:       []string{"x@example.com"},
		})
		require.NoError(t, err)
		assert.Equal(t, "<p>Hello Ann</p>", ds[0].Email.HTML)
	})
}

func TestPipeline_FileTemplate(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"notice.md":         {Data: []byte("---\nSubject: Notice for {{.Name}}\n---\n# Hi {{.Name}}\n\nSee [docs](/docs).\n")},
		"layouts/base.html": {Data: []byte("<html><body>{{.Content}}</body></html>")},
	}
	renderer, err := mailtemplate.NewRenderer(mailtemplate.RendererConfig{BaseURL: "https://example.com"})
	require.NoError(t, err)

	f := newFixture(t,
		mailvault.Config{AdminEmail: "admin@example.com", DefaultTemplate: "notice.md", Layout: "base.html"},
		mailvault.WithFileTemplates(mailer.NewRenderer(fsys, mailer.RendererConfig{})),
		mailvault.WithRenderer(renderer),
	)

	ds, err := f.pipeline.Send(context.Background(), &mailvault.Message{
		Data: map[string]any{"Name": "Ann"},
		To:   []string{"ann@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, ds, 1)

	e := ds[0].Email
	assert.Equal(t, "Notice for Ann", e.Subject)
	assert.Contains(t, e.HTML, "<h1>Hi Ann</h1>")
	assert.Contains(t, e.HTML, `href="https://example.com/docs"`)
	assert.Contains(t, e.Text, "# Hi Ann")
	assert.Equal(t, "notice.md", ds[0].Template)
}

func TestPipeline_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com"})

	_, err := f.pipeline.Send(ctx, nil)
	require.ErrorIs(t, err, mailvault.ErrValidation)

	_, err = f.pipeline.Send(ctx, &mailvault.Message{Body: "<p>x</p>", To: []string{" "}})
	require.ErrorIs(t, err, mailvault.ErrNoRecipient)
	require.ErrorIs(t, err, mailvault.ErrValidation)

	_, err = f.pipeline.Send(ctx, &mailvault.Message{
		Body:       "<p>x</p>",
		Recipients: []directory.Entity{{Type: "member", ID: "1"}},
	})
	require.ErrorIs(t, err, mailvault.ErrNoRecipient)

	_, err = f.pipeline.Send(ctx, &mailvault.Message{To: []string{"x@example.com"}})
	require.ErrorIs(t, err, mailvault.ErrValidation)

	_, err = f.pipeline.Send(ctx, &mailvault.Message{FileTemplate: "x.md", To: []string{"x@example.com"}})
	require.ErrorIs(t, err, mailvault.ErrValidation)

	assert.Zero(t, f.sent.Len())
	assert.Empty(t, f.sender.sent())
}

func TestPipeline_ResolutionError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com"})
	tmpl := saveTemplate(t, f, &mailtemplate.Template{Identifier: "a", Subject: "S", Content: "{{.Member.Name}}"})
	configure(t, f, tmpl, mailtemplate.Variable{Name: "Member", ValueType: mailtemplate.ValueRandom, RecordType: "member"})

	ds, err := f.pipeline.Send(context.Background(), &mailvault.Message{Template: "a", To: []string{"x@example.com"}})
	require.ErrorIs(t, err, mailvault.ErrResolution)
	require.ErrorIs(t, err, mailtemplate.ErrResolution)
	assert.Empty(t, ds)
	assert.Zero(t, f.sent.Len())
}

func TestPipeline_DispatchError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com"})
	boom := errors.New("smtp down")
	f.sender.err = boom

	ds, err := f.pipeline.Send(context.Background(), &mailvault.Message{
		Subject:    "S",
		Body:       "<p>x</p>",
		Recipients: members(),
	})
	require.ErrorIs(t, err, mailvault.ErrDispatch)
	require.ErrorIs(t, err, boom)
	require.Len(t, ds, 3)
	for _, d := range ds {
		assert.Equal(t, mailvault.StateFailed, d.State)
		require.ErrorIs(t, d.Err, mailvault.ErrDispatch)
	}
	assert.Zero(t, f.sent.Len())
}

func TestPipeline_TestMode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com", TestMode: true})

	ds, err := f.pipeline.Send(context.Background(), &mailvault.Message{
		Subject: "S",
		Body:    "<p>x</p>",
		To:      []string{"x@example.com"},
	})
	require.NoError(t, err)
	assert.Empty(t, f.sender.sent())
	require.Len(t, ds, 1)
	assert.True(t, ds[0].TestMode)

	rec, err := f.sent.Get(context.Background(), ds[0].ID)
	require.NoError(t, err)
	assert.True(t, rec.TestMode)
}

func TestPipeline_Hooks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	msg := func() *mailvault.Message {
		return &mailvault.Message{Subject: "S", Body: "<p>x</p>", To: []string{"x@example.com"}}
	}

	t.Run("before hooks run in order and modify the email", func(t *testing.T) {
		t.Parallel()

		var order []string
		f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com"},
			mailvault.WithBeforeSend(
				func(_ context.Context, e *mailer.Email) error {
					order = append(order, "first")
					e.Subject = "[tagged] " + e.Subject
					return nil
				},
				func(_ context.Context, e *mailer.Email) error {
					order = append(order, "second")
					e.BCC = append(e.BCC, "audit@example.com")
					return nil
				},
			),
		)

		ds, err := f.pipeline.Send(ctx, msg())
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, order)
		assert.Equal(t, "[tagged] S", f.sender.sent()[0].Subject)

		rec, err := f.sent.Get(ctx, ds[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "[tagged] S", rec.Subject)
		assert.Equal(t, "audit@example.com", rec.BCC)
	})

	t.Run("before hook error aborts", func(t *testing.T) {
		t.Parallel()

		veto := errors.New("suppressed")
		f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com"},
			mailvault.WithBeforeSend(func(context.Context, *mailer.Email) error { return veto }),
		)

		ds, err := f.pipeline.Send(ctx, msg())
		require.ErrorIs(t, err, mailvault.ErrHook)
		require.ErrorIs(t, err, veto)
		assert.Equal(t, mailvault.StateFailed, ds[0].State)
		assert.Empty(t, f.sender.sent())
		assert.Zero(t, f.sent.Len())
	})

	t.Run("after hook error is not fatal", func(t *testing.T) {
		t.Parallel()

		var seen *mailvault.Delivery
		f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com"},
			mailvault.WithAfterSend(
				func(_ context.Context, d *mailvault.Delivery) error {
					seen = d
					return nil
				},
				func(context.Context, *mailvault.Delivery) error { return errors.New("publish failed") },
			),
		)

		ds, err := f.pipeline.Send(ctx, msg())
		require.NoError(t, err)
		require.NotNil(t, seen)
		assert.Equal(t, ds[0].ID, seen.ID)
		assert.False(t, seen.SentAt.IsZero())
		assert.Equal(t, mailvault.StatePersisted, ds[0].State)
		assert.Equal(t, 1, f.sent.Len())
	})
}

func TestPipeline_Concurrency(t *testing.T) {
	t.Parallel()

	var many []directory.Entity
	for i := range 20 {
		many = append(many, directory.Entity{Type: "member", ID: string(rune('a' + i)), Address: string(rune('a'+i)) + "@example.com"})
	}

	f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com"}, mailvault.WithConcurrency(4))
	ds, err := f.pipeline.Send(context.Background(), &mailvault.Message{
		Subject:    "Hi {{.RecipientMember.Email}}",
		Body:       "<p>x</p>",
		Recipients: many,
	})
	require.NoError(t, err)
	require.Len(t, ds, 20)
	assert.Equal(t, 20, f.sent.Len())
	for i, d := range ds {
		assert.Equal(t, "Hi "+many[i].Address, d.Email.Subject)
	}
}

func TestPipeline_SendTest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com"})
	saveTemplate(t, f, &mailtemplate.Template{Identifier: "a", Subject: "S", Content: "<p>a</p>"})
	saveTemplate(t, f, &mailtemplate.Template{Identifier: "b", Subject: "S", Content: "<p>b</p>", TestAddress: "qa@example.com"})

	d, err := f.pipeline.SendTest(ctx, "a", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin@example.com"}, d.Email.To)

	d, err = f.pipeline.SendTest(ctx, "b", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"qa@example.com"}, d.Email.To)

	d, err = f.pipeline.SendTest(ctx, "b", "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"dev@example.com"}, d.Email.To)

	_, err = f.pipeline.SendTest(ctx, "missing", "")
	require.ErrorIs(t, err, mailvault.ErrResolution)
	require.ErrorIs(t, err, store.ErrTemplateNotFound)

	noAdmin := newFixture(t, mailvault.Config{})
	saveTemplate(t, noAdmin, &mailtemplate.Template{Identifier: "a", Subject: "S", Content: "<p>a</p>"})
	_, err = noAdmin.pipeline.SendTest(ctx, "a", "")
	require.ErrorIs(t, err, mailvault.ErrNoRecipient)
}

func TestPipeline_Resend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com"}, mailvault.WithRegistry(catalog()))
	tmpl := saveTemplate(t, f, &mailtemplate.Template{Identifier: "pick", Subject: "Pick", Content: "<p>{{.Item.Title}}</p>"})
	configure(t, f, tmpl, mailtemplate.Variable{Name: "Item", ValueType: mailtemplate.ValueRandom, RecordType: "product"})

	ds, err := f.pipeline.Send(ctx, &mailvault.Message{
		Template: "pick",
		To:       []string{"ann@example.com"},
		CC:       []string{"cc@example.com"},
		Headers:  map[string]string{"X-Campaign": "spring"},
		Attachments: []mailer.Attachment{
			{Filename: "a.txt", ContentType: "text/plain", Content: []byte("hello")},
		},
	})
	require.NoError(t, err)
	original := ds[0]

	// Changing the template must not affect the replay.
	tmpl.Content = "<p>changed</p>"
	require.NoError(t, f.templates.Save(ctx, tmpl))

	d, err := f.pipeline.Resend(ctx, original.ID)
	require.NoError(t, err)
	assert.NotEqual(t, original.ID, d.ID)
	assert.Equal(t, original.ID, d.ResentFrom)
	assert.Equal(t, "pick", d.Template)
	assert.Equal(t, mailvault.StatePersisted, d.State)

	emails := f.sender.sent()
	require.Len(t, emails, 2)
	assert.Equal(t, emails[0], emails[1])

	assert.Equal(t, 2, f.sent.Len())
	first, err := f.sent.Get(ctx, original.ID)
	require.NoError(t, err)
	second, err := f.sent.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Body, second.Body)
	assert.JSONEq(t, string(first.Snapshot), string(second.Snapshot))

	_, err = f.pipeline.Resend(ctx, uuid.New())
	require.ErrorIs(t, err, store.ErrSentMessageNotFound)
}

func TestPipeline_ResendInvalidSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, mailvault.Config{AdminEmail: "admin@example.com"})

	raw, err := json.Marshal(map[string]any{"version": 99, "to": []string{"x@example.com"}})
	require.NoError(t, err)
	rec := &store.SentMessage{To: "x@example.com", Subject: "S", Body: "b", Snapshot: raw}
	require.NoError(t, f.sent.Persist(ctx, rec))

	_, err = f.pipeline.Resend(ctx, rec.ID)
	require.ErrorIs(t, err, mailvault.ErrInvalidSnapshot)
	assert.Empty(t, f.sender.sent())
}

func TestPipeline_Cleanup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

	seed := func(t *testing.T, f *fixture, ages ...time.Time) {
		t.Helper()
		for _, at := range ages {
			require.NoError(t, f.sent.Persist(ctx, &store.SentMessage{
				CreatedAt: at,
				To:        "x@example.com",
				Snapshot:  json.RawMessage(`{"version":1,"to":["x@example.com"]}`),
			}))
		}
	}

	t.Run("deletes strictly before cutoff", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, mailvault.Config{}, mailvault.WithClock(func() time.Time { return now }))
		cutoff := now.AddDate(0, 0, -30)
		seed(t, f, cutoff.Add(-time.Second), cutoff.Add(-48*time.Hour), cutoff, cutoff.Add(time.Second), now)

		n, err := f.pipeline.Cleanup(ctx, mailvault.Retention{Count: 30, Unit: mailvault.Days})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.Equal(t, 3, f.sent.Len())
	})

	t.Run("months follow the calendar", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, mailvault.Config{}, mailvault.WithClock(func() time.Time { return now }))
		// 2026-03-31 minus one month normalizes to 2026-03-03.
		seed(t, f, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC))

		n, err := f.pipeline.Cleanup(ctx, mailvault.Retention{Count: 1, Unit: mailvault.Months})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("invalid retention deletes nothing", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, mailvault.Config{}, mailvault.WithClock(func() time.Time { return now }))
		seed(t, f, now.AddDate(-5, 0, 0))

		_, err := f.pipeline.Cleanup(ctx, mailvault.Retention{Count: 1})
		require.ErrorIs(t, err, mailvault.ErrValidation)

		r, err := mailvault.ParseRetention("1", "")
		require.ErrorIs(t, err, mailvault.ErrValidation)
		_, err = f.pipeline.Cleanup(ctx, r)
		require.ErrorIs(t, err, mailvault.ErrValidation)

		assert.Equal(t, 1, f.sent.Len())
	})

	t.Run("archives before deleting", func(t *testing.T) {
		t.Parallel()

		arch := &archiver{}
		f := newFixture(t, mailvault.Config{}, mailvault.WithClock(func() time.Time { return now }), mailvault.WithArchiver(arch))
		seed(t, f, now.AddDate(0, 0, -10), now.AddDate(0, 0, -9), now)

		n, err := f.pipeline.Cleanup(ctx, mailvault.Retention{Count: 1, Unit: mailvault.Weeks})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		require.Len(t, arch.batches, 1)
		assert.Len(t, arch.batches[0], 2)
		assert.Equal(t, now.AddDate(0, 0, -7), arch.cutoff)
	})

	t.Run("archive failure keeps rows", func(t *testing.T) {
		t.Parallel()

		arch := &archiver{err: errors.New("bucket gone")}
		f := newFixture(t, mailvault.Config{}, mailvault.WithClock(func() time.Time { return now }), mailvault.WithArchiver(arch))
		seed(t, f, now.AddDate(-1, 0, 0))

		_, err := f.pipeline.Cleanup(ctx, mailvault.Retention{Count: 1, Unit: mailvault.Days})
		require.ErrorIs(t, err, mailvault.ErrArchive)
		assert.Equal(t, 1, f.sent.Len())
	})
}

type archiver struct {
	cutoff  time.Time
	err     error
	batches [][]*store.SentMessage
}

func (a *archiver) Archive(_ context.Context, cutoff time.Time, msgs []*store.SentMessage) error {
	if a.err != nil {
		return a.err
	}
	a.cutoff = cutoff
	a.batches = append(a.batches, msgs)
	return nil
}
