package store_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailvault/pkg/mailtemplate"
	"github.com/dmitrymomot/mailvault/pkg/store"
)

func names(vars []mailtemplate.Variable) []string {
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, v.Name)
	}
	return out
}

// testTemplateStore runs the behaviour every TemplateStore must share.
func testTemplateStore(t *testing.T, newStore func(t *testing.T) store.TemplateStore) {
	t.Helper()

	t.Run("identifier is slugified and suffixed on collision", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first := mailtemplate.New("Welcome Email")
		require.NoError(t, s.Save(ctx, first))
		assert.Equal(t, "welcome-email", first.Identifier)

		second := mailtemplate.New("welcome email")
		require.NoError(t, s.Save(ctx, second))
		assert.Equal(t, "welcome-email-1", second.Identifier)

		third := mailtemplate.New("welcome-email")
		require.NoError(t, s.Save(ctx, third))
		assert.Equal(t, "welcome-email-2", third.Identifier)

		// Re-saving keeps the identifier: the template's own row does not collide.
		first.Subject = "Hello"
		require.NoError(t, s.Save(ctx, first))
		assert.Equal(t, "welcome-email", first.Identifier)

		got, err := s.GetByIdentifier(ctx, "welcome-email-1")
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)
	})

	t.Run("variables follow content", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		tmpl := mailtemplate.New("digest")
		tmpl.Content = `<p>{{.Title}}</p>{{range .Items}}<li>{{.Name}}</li>{{end}}{{.Footer}}`
		require.NoError(t, s.Save(ctx, tmpl))
		assert.Equal(t, []string{"Title", "Items", "Footer"}, names(tmpl.Variables))

		items, ok := tmpl.Variable("Items")
		require.True(t, ok)
		assert.True(t, items.List)
		assert.Equal(t, mailtemplate.ValueStatic, items.ValueType)

		items.ValueType = mailtemplate.ValueQuery
		items.RecordType = "product"
		items.Query = "Status=Featured"
		require.NoError(t, s.UpdateVariable(ctx, &items))

		tmpl, err := s.Get(ctx, tmpl.ID)
		require.NoError(t, err)
		tmpl.Content = `{{range .Items}}<li>{{.Name}}</li>{{end}}{{.Greeting}}`
		require.NoError(t, s.Save(ctx, tmpl))

		assert.ElementsMatch(t, []string{"Items", "Greeting"}, names(tmpl.Variables))
		kept, ok := tmpl.Variable("Items")
		require.True(t, ok)
		assert.Equal(t, items.ID, kept.ID)
		assert.Equal(t, mailtemplate.ValueQuery, kept.ValueType)
		assert.Equal(t, "product", kept.RecordType)
		assert.Equal(t, "Status=Featured", kept.Query)

		reloaded, err := s.GetByIdentifier(ctx, "digest")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Items", "Greeting"}, names(reloaded.Variables))
	})

	t.Run("malformed content writes nothing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		tmpl := mailtemplate.New("broken")
		tmpl.Content = `{{range .Items}}`
		require.ErrorIs(t, s.Save(ctx, tmpl), mailtemplate.ErrInvalidTemplate)

		_, err := s.GetByIdentifier(ctx, "broken")
		require.ErrorIs(t, err, store.ErrTemplateNotFound)
	})

	t.Run("invalid variable update is rejected", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		tmpl := mailtemplate.New("x")
		tmpl.Content = `{{.A}}`
		require.NoError(t, s.Save(ctx, tmpl))

		v := tmpl.Variables[0]
		v.ValueType = mailtemplate.ValueRandom
		require.ErrorIs(t, s.UpdateVariable(ctx, &v), mailtemplate.ErrInvalidVariable)

		v = mailtemplate.Variable{ID: uuid.New(), ValueType: mailtemplate.ValueStatic}
		require.ErrorIs(t, s.UpdateVariable(ctx, &v), store.ErrVariableNotFound)
	})

	t.Run("ensure creates missing templates once", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.Ensure(ctx, "order-shipped")
		require.NoError(t, err)
		assert.Equal(t, "order-shipped", created.Identifier)
		assert.Equal(t, mailtemplate.DefaultContent, created.Content)

		again, err := s.Ensure(ctx, "order-shipped")
		require.NoError(t, err)
		assert.Equal(t, created.ID, again.ID)

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		byName, err := s.Ensure(ctx, "Order Shipped")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byName.ID)

		all, err = s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		tmpl := mailtemplate.New("bye")
		require.NoError(t, s.Save(ctx, tmpl))
		require.NoError(t, s.Delete(ctx, tmpl.ID))

		_, err := s.Get(ctx, tmpl.ID)
		require.ErrorIs(t, err, store.ErrTemplateNotFound)
		require.ErrorIs(t, s.Delete(ctx, tmpl.ID), store.ErrTemplateNotFound)
	})
}

// testSentMessageStore runs the behaviour every SentMessageStore must share.
func testSentMessageStore(t *testing.T, newStore func(t *testing.T) store.SentMessageStore) {
	t.Helper()

	snapshot := json.RawMessage(`{"version":1}`)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("persist and get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		m := &store.SentMessage{To: "ann@example.com", Subject: "Hi", Body: "<p>Hi</p>", Snapshot: snapshot}
		require.NoError(t, s.Persist(ctx, m))
		assert.NotEqual(t, uuid.Nil, m.ID)
		assert.False(t, m.CreatedAt.IsZero())

		got, err := s.Get(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, m.To, got.To)
		assert.Equal(t, m.Body, got.Body)
		assert.JSONEq(t, string(snapshot), string(got.Snapshot))

		_, err = s.Get(ctx, uuid.New())
		require.ErrorIs(t, err, store.ErrSentMessageNotFound)

		require.ErrorIs(t, s.Persist(ctx, &store.SentMessage{Snapshot: snapshot}), store.ErrInvalidSentMessage)
		require.ErrorIs(t, s.Persist(ctx, &store.SentMessage{To: "a@example.com"}), store.ErrInvalidSentMessage)
	})

	t.Run("list newest first with filter", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i, to := range []string{"ann@example.com", "bob@example.com", "Ann.B@example.com"} {
			require.NoError(t, s.Persist(ctx, &store.SentMessage{
				To:        to,
				Subject:   fmt.Sprint(i),
				Snapshot:  snapshot,
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}))
		}

		all, err := s.List(ctx, store.ListParams{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "2", all[0].Subject)

		ann, err := s.List(ctx, store.ListParams{Recipient: "ann"})
		require.NoError(t, err)
		require.Len(t, ann, 2)

		page, err := s.List(ctx, store.ListParams{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "1", page[0].Subject)
	})

	t.Run("delete before cutoff is strict", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		cutoff := base
		for _, at := range []time.Time{cutoff.Add(-time.Hour), cutoff.Add(-time.Second), cutoff, cutoff.Add(time.Second)} {
			require.NoError(t, s.Persist(ctx, &store.SentMessage{To: "a@example.com", Snapshot: snapshot, CreatedAt: at}))
		}

		old, err := s.ListBefore(ctx, cutoff)
		require.NoError(t, err)
		require.Len(t, old, 2)
		assert.True(t, old[0].CreatedAt.Before(old[1].CreatedAt))

		n, err := s.DeleteBefore(ctx, cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		left, err := s.List(ctx, store.ListParams{})
		require.NoError(t, err)
		require.Len(t, left, 2)
		for _, m := range left {
			assert.False(t, m.CreatedAt.Before(cutoff))
		}
	})
}

func TestMemoryTemplates(t *testing.T) {
	t.Parallel()
	testTemplateStore(t, func(*testing.T) store.TemplateStore { return store.NewMemoryTemplates() })
}

func TestMemorySentMessages(t *testing.T) {
	t.Parallel()
	testSentMessageStore(t, func(*testing.T) store.SentMessageStore { return store.NewMemorySentMessages() })
}

func TestJoinAddresses(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a@example.com, b@example.com", store.JoinAddresses([]string{"a@example.com", "b@example.com"}))
	assert.Empty(t, store.JoinAddresses(nil))
}
