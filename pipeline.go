package mailvault

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/mailvault/pkg/directory"
	"github.com/dmitrymomot/mailvault/pkg/logger"
	"github.com/dmitrymomot/mailvault/pkg/mailer"
	"github.com/dmitrymomot/mailvault/pkg/mailtemplate"
	"github.com/dmitrymomot/mailvault/pkg/sanitizer"
	"github.com/dmitrymomot/mailvault/pkg/store"
)

// RecipientKey is the template variable holding the entity an envelope was expanded from.
const RecipientKey = "RecipientMember"

// Pipeline resolves, renders, dispatches and records messages.
// It is safe for concurrent use.
type Pipeline struct {
	templates store.TemplateStore
	sent      store.SentMessageStore
	sender    mailer.Sender
	archiver  Archiver

	resolver *mailtemplate.Resolver
	renderer *mailtemplate.Renderer
	files    *mailer.Renderer

	logger *slog.Logger
	now    func() time.Time

	before []BeforeSendHook
	after  []AfterSendHook

	cfg         Config
	concurrency int
}

// New creates a pipeline. sender may be nil when cfg.TestMode is set.
func New(cfg Config, templates store.TemplateStore, sent store.SentMessageStore, sender mailer.Sender, opts ...Option) *Pipeline {
	// Without a base URL the renderer cannot fail to build.
	renderer, _ := mailtemplate.NewRenderer(mailtemplate.RendererConfig{})

	p := &Pipeline{
		templates:   templates,
		sent:        sent,
		sender:      sender,
		resolver:    mailtemplate.NewResolver(nil),
		renderer:    renderer,
		logger:      slog.New(slog.DiscardHandler),
		now:         time.Now,
		cfg:         cfg,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// envelope is one transport call of a send.
type envelope struct {
	recipient *directory.Entity
	to        []string
}

// plan holds what a send resolves once for all of its envelopes.
type plan struct {
	msg     *Message
	tmpl    *mailtemplate.Template
	vars    map[string]any
	file    string
	from    string
	subject string
}

func (pl *plan) template() string {
	if pl.tmpl != nil {
		return pl.tmpl.Identifier
	}
	return pl.file
}

// data merges caller data over resolved variables for one envelope.
func (pl *plan) data(env envelope) map[string]any {
	data := make(map[string]any, len(pl.vars)+len(pl.msg.Data)+1)
	maps.Copy(data, pl.vars)
	maps.Copy(data, pl.msg.Data)
	if env.recipient != nil {
		data[RecipientKey] = env.recipient.TemplateData()
	}
	return data
}

// Send delivers msg. Every envelope yields a Delivery, failed ones included;
// the error joins the failures. A message that cannot be resolved returns no
// deliveries.
func (p *Pipeline) Send(ctx context.Context, msg *Message) ([]*Delivery, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrValidation)
	}

	envs := p.envelopes(ctx, msg)
	if len(envs) == 0 {
		return nil, ErrNoRecipient
	}

	pl, err := p.resolve(ctx, msg)
	if err != nil {
		p.logger.ErrorContext(ctx, "message resolution failed",
			slog.String("template", cmp.Or(msg.Template, msg.FileTemplate)),
			slog.String("error", err.Error()))
		return nil, err
	}

	deliveries := make([]*Delivery, len(envs))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, env := range envs {
		g.Go(func() error {
			deliveries[i] = p.deliver(ctx, pl, env)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, d := range deliveries {
		if d.Err != nil {
			errs = append(errs, d.Err)
		}
	}
	return deliveries, errors.Join(errs...)
}

// SendTest sends the user template identifier to a single address:
// to, else the template's test address, else the admin address.
func (p *Pipeline) SendTest(ctx context.Context, identifier, to string) (*Delivery, error) {
	tmpl, err := p.templates.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: template %q: %w", ErrResolution, identifier, err)
	}

	to = cmp.Or(strings.TrimSpace(to), tmpl.TestAddress, p.cfg.AdminEmail)
	if to == "" {
		return nil, ErrNoRecipient
	}

	deliveries, err := p.Send(ctx, &Message{Template: tmpl.Identifier, To: []string{to}})
	if len(deliveries) == 0 {
		return nil, err
	}
	return deliveries[0], err
}

// Resend replays a stored message exactly as it was sent. Templates and
// variables are not resolved again. The replay is recorded as a new message.
func (p *Pipeline) Resend(ctx context.Context, id uuid.UUID) (*Delivery, error) {
	rec, err := p.sent.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, err := DecodeSnapshot(rec.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("sent message %s: %w", id, err)
	}

	d := &Delivery{
		ID:         uuid.New(),
		ResentFrom: rec.ID,
		Template:   snap.Template,
		Email:      snap.Email(),
		TestMode:   p.cfg.TestMode,
	}
	ctx = logger.WithAttrs(ctx,
		slog.String("message_id", d.ID.String()),
		slog.String("resent_from", rec.ID.String()))

	p.dispatch(ctx, d)
	return d, d.Err
}

// Cleanup deletes messages created before r.Cutoff(now) and returns how many
// were deleted. With an archiver the rows are archived first; an archive
// failure deletes nothing.
func (p *Pipeline) Cleanup(ctx context.Context, r Retention) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	cutoff := r.Cutoff(p.now())

	if p.archiver != nil {
		msgs, err := p.sent.ListBefore(ctx, cutoff)
		if err != nil {
			return 0, err
		}
		if len(msgs) > 0 {
			if err := p.archiver.Archive(ctx, cutoff, msgs); err != nil {
				p.logger.ErrorContext(ctx, "sent message archive failed",
					slog.Time("cutoff", cutoff),
					slog.Int("count", len(msgs)),
					slog.String("error", err.Error()))
				return 0, fmt.Errorf("%w: %w", ErrArchive, err)
			}
		}
	}

	n, err := p.sent.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	retentionDeleted.Add(float64(n))

	p.logger.InfoContext(ctx, "sent messages cleaned up",
		slog.String("retention", r.String()),
		slog.Time("cutoff", cutoff),
		slog.Int64("deleted", n))
	return n, nil
}

// envelopes expands msg into transport calls. Entities fan out one envelope
// each; otherwise all To addresses share one.
func (p *Pipeline) envelopes(ctx context.Context, msg *Message) []envelope {
	if len(msg.Recipients) > 0 {
		envs := make([]envelope, 0, len(msg.Recipients))
		for i := range msg.Recipients {
			e := msg.Recipients[i]
			addr := strings.TrimSpace(e.Address)
			if addr == "" {
				p.logger.WarnContext(ctx, "recipient without address skipped",
					slog.String("type", e.Type),
					slog.String("id", e.ID))
				continue
			}
			envs = append(envs, envelope{recipient: &e, to: []string{addr}})
		}
		return envs
	}

	to := make([]string, 0, len(msg.To))
	for _, addr := range msg.To {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	if len(to) == 0 {
		return nil
	}
	return []envelope{{to: to}}
}

func (p *Pipeline) resolve(ctx context.Context, msg *Message) (*plan, error) {
	pl := &plan{msg: msg, from: msg.From, subject: msg.Subject}

	if msg.Template != "" {
		tmpl, err := p.templates.Ensure(ctx, msg.Template)
		if err != nil {
			return nil, fmt.Errorf("%w: template %q: %w", ErrResolution, msg.Template, err)
		}
		pl.tmpl = tmpl
		pl.from = cmp.Or(pl.from, tmpl.From)
		pl.subject = cmp.Or(pl.subject, tmpl.Subject)
	}
	pl.from = cmp.Or(pl.from, p.cfg.defaultFrom())

	if msg.Body != "" {
		return pl, nil
	}

	switch {
	case pl.tmpl != nil:
		vars, err := p.resolver.ResolveAll(ctx, pl.tmpl.Variables)
		if err != nil {
			return nil, fmt.Errorf("%w: template %q: %w", ErrResolution, pl.tmpl.Identifier, err)
		}
		pl.vars = vars
	case msg.FileTemplate != "" || p.cfg.DefaultTemplate != "":
		if p.files == nil {
			return nil, fmt.Errorf("%w: file templates are not configured", ErrValidation)
		}
		pl.file = cmp.Or(msg.FileTemplate, p.cfg.DefaultTemplate)
	default:
		return nil, fmt.Errorf("%w: message has no body and no template", ErrValidation)
	}
	return pl, nil
}

func (p *Pipeline) deliver(ctx context.Context, pl *plan, env envelope) *Delivery {
	d := &Delivery{
		ID:        uuid.New(),
		Template:  pl.template(),
		Recipient: env.recipient,
		TestMode:  p.cfg.TestMode,
	}
	ctx = logger.WithAttrs(ctx, slog.String("message_id", d.ID.String()))
	if d.Template != "" {
		ctx = logger.WithAttrs(ctx, slog.String("template", d.Template))
	}

	p.transition(ctx, d, StateRendering)
	email, err := p.render(pl, env)
	if err != nil {
		p.fail(ctx, d, err)
		return d
	}
	d.Email = email

	p.dispatch(ctx, d)
	return d
}

func (p *Pipeline) render(pl *plan, env envelope) (*mailer.Email, error) {
	msg := pl.msg
	data := pl.data(env)

	email := &mailer.Email{
		Headers:     msg.Headers,
		Tags:        msg.Tags,
		From:        pl.from,
		ReplyTo:     msg.ReplyTo,
		To:          env.to,
		CC:          msg.CC,
		BCC:         msg.BCC,
		Attachments: msg.Attachments,
	}

	subject := pl.subject
	if subject != "" && strings.Contains(subject, "{{") {
		s, err := p.renderer.Render(subject, data, true)
		if err != nil {
			return nil, fmt.Errorf("%w: subject: %w", ErrRender, err)
		}
		subject = s
	}

	switch {
	case msg.Body != "":
		if msg.Plain {
			email.Text = msg.Body
		} else {
			email.HTML = p.renderer.Absolutize(msg.Body)
		}
	case pl.tmpl != nil:
		body, err := p.renderer.Render(pl.tmpl.Content, data, msg.Plain)
		if err != nil {
			return nil, fmt.Errorf("%w: template %q: %w", ErrRender, pl.tmpl.Identifier, err)
		}
		if msg.Plain {
			email.Text = body
		} else {
			email.HTML = body
		}
	default:
		res, err := p.files.Render(p.cfg.Layout, pl.file, data)
		if err != nil {
			return nil, fmt.Errorf("%w: file template %q: %w", ErrRender, pl.file, err)
		}
		subject = cmp.Or(subject, res.Subject)
		email.Text = res.Text
		if !msg.Plain {
			email.HTML = p.renderer.Absolutize(res.HTML)
		}
	}

	if email.HTML != "" && email.Text == "" {
		email.Text = sanitizer.PlainText(email.HTML)
	}
	email.Subject = cmp.Or(strings.TrimSpace(subject), p.cfg.FallbackSubject)

	if err := email.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	// Hooks get their own copy of the caller's slices and maps.
	return email.Clone(), nil
}

// dispatch runs hooks, the transport and persistence for a rendered email.
func (p *Pipeline) dispatch(ctx context.Context, d *Delivery) {
	p.transition(ctx, d, StateDispatching)

	for _, hook := range p.before {
		if err := hook(ctx, d.Email); err != nil {
			p.fail(ctx, d, fmt.Errorf("%w: before send: %w", ErrHook, err))
			return
		}
	}
	if err := d.Email.Validate(); err != nil {
		p.fail(ctx, d, fmt.Errorf("%w: %w", ErrValidation, err))
		return
	}

	snapshot, err := NewSnapshot(d.Email, d.Template).Encode()
	if err != nil {
		p.fail(ctx, d, err)
		return
	}

	if !d.TestMode {
		if err := p.send(ctx, d.Email); err != nil {
			p.fail(ctx, d, fmt.Errorf("%w: %w", ErrDispatch, err))
			return
		}
	}
	d.SentAt = p.now()

	for _, hook := range p.after {
		if err := hook(ctx, d); err != nil {
			p.logger.WarnContext(ctx, "after send hook failed",
				slog.String("error", fmt.Errorf("%w: %w", ErrHook, err).Error()))
		}
	}

	rec := &store.SentMessage{
		CreatedAt: d.SentAt,
		To:        store.JoinAddresses(d.Email.To),
		From:      d.Email.From,
		Subject:   d.Email.Subject,
		Body:      d.Email.Body(),
		CC:        store.JoinAddresses(d.Email.CC),
		BCC:       store.JoinAddresses(d.Email.BCC),
		Snapshot:  snapshot,
		ID:        d.ID,
		TestMode:  d.TestMode,
	}
	if err := p.sent.Persist(ctx, rec); err != nil {
		p.fail(ctx, d, fmt.Errorf("%w: %w", ErrPersist, err))
		return
	}

	p.transition(ctx, d, StatePersisted)
	messagesTotal.WithLabelValues(d.State.String(), d.mode()).Inc()
	p.logger.InfoContext(ctx, "message sent",
		slog.String("to", rec.To),
		slog.String("subject", rec.Subject),
		slog.Bool("test_mode", d.TestMode))
}

func (p *Pipeline) send(ctx context.Context, email *mailer.Email) error {
	if p.sender == nil {
		return errors.New("no transport configured")
	}
	if p.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.SendTimeout)
		defer cancel()
	}

	start := time.Now()
	err := p.sender.Send(ctx, email)
	dispatchDuration.Observe(time.Since(start).Seconds())
	return err
}

func (p *Pipeline) transition(ctx context.Context, d *Delivery, s State) {
	d.State = s
	p.logger.DebugContext(ctx, "message state changed", slog.String("state", s.String()))
}

func (p *Pipeline) fail(ctx context.Context, d *Delivery, err error) {
	d.Err = err
	d.State = StateFailed
	messagesTotal.WithLabelValues(d.State.String(), d.mode()).Inc()
	p.logger.ErrorContext(ctx, "message failed", slog.String("error", err.Error()))
}
