package mailtemplate_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailvault/pkg/directory"
	"github.com/dmitrymomot/mailvault/pkg/mailtemplate"
)

func registry(t *testing.T, n int) *directory.Registry {
	t.Helper()

	src := directory.NewMemorySource()
	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("Member %d", i)
		if i == 2 {
			name = "Uncle Bob"
		}
		src.Add(directory.Entity{
			Type:       "member",
			ID:         fmt.Sprint(i),
			Address:    fmt.Sprintf("m%d@example.com", i),
			Attributes: map[string]string{"Name": name, "Status": "Awesome"},
		})
	}

	reg := directory.NewRegistry()
	reg.Register("member", src)
	return reg
}

func TestResolver_Static(t *testing.T) {
	t.Parallel()

	v := mailtemplate.Variable{Name: "Greeting", ValueType: mailtemplate.ValueStatic, Value: "Hi", RecordType: "nope"}

	for _, reg := range []*directory.Registry{nil, directory.NewRegistry(), registry(t, 3)} {
		got, err := mailtemplate.NewResolver(reg).Resolve(context.Background(), v)
		require.NoError(t, err)
		assert.Equal(t, "Hi", got)
	}
}

func TestResolver_Random(t *testing.T) {
	t.Parallel()

	res := mailtemplate.NewResolver(registry(t, 8))
	ctx := context.Background()

	single, err := res.Resolve(ctx, mailtemplate.Variable{Name: "M", ValueType: mailtemplate.ValueRandom, RecordType: "member"})
	require.NoError(t, err)
	m, ok := single.(map[string]string)
	require.True(t, ok)
	assert.NotEmpty(t, m["Email"])

	list, err := res.Resolve(ctx, mailtemplate.Variable{Name: "Ms", ValueType: mailtemplate.ValueRandom, RecordType: "member", List: true})
	require.NoError(t, err)
	assert.Len(t, list, mailtemplate.ListLimit)
}

func TestResolver_Query(t *testing.T) {
	t.Parallel()

	res := mailtemplate.NewResolver(registry(t, 3))
	ctx := context.Background()

	t.Run("first match", func(t *testing.T) {
		t.Parallel()

		got, err := res.Resolve(ctx, mailtemplate.Variable{
			Name:       "Uncle",
			ValueType:  mailtemplate.ValueQuery,
			RecordType: "member",
			Query:      "Name:StartsWith=Uncle&Status=Awesome",
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"ID":     "2",
			"Email":  "m2@example.com",
			"Name":   "Uncle Bob",
			"Status": "Awesome",
		}, got)
	})

	t.Run("list", func(t *testing.T) {
		t.Parallel()

		got, err := res.Resolve(ctx, mailtemplate.Variable{
			Name:       "All",
			ValueType:  mailtemplate.ValueQuery,
			RecordType: "member",
			Query:      "Status=Awesome",
			List:       true,
		})
		require.NoError(t, err)
		items, ok := got.([]map[string]string)
		require.True(t, ok)
		require.Len(t, items, 3)
		assert.Equal(t, "1", items[0]["ID"])
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()

		got, err := res.Resolve(ctx, mailtemplate.Variable{
			Name:       "None",
			ValueType:  mailtemplate.ValueQuery,
			RecordType: "member",
			Query:      "Status=Gone",
		})
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestResolver_Errors(t *testing.T) {
	t.Parallel()

	res := mailtemplate.NewResolver(registry(t, 1))

	tests := []struct {
		name string
		v    mailtemplate.Variable
	}{
		{name: "unknown record type", v: mailtemplate.Variable{Name: "X", ValueType: mailtemplate.ValueRandom, RecordType: "order"}},
		{name: "missing record type", v: mailtemplate.Variable{Name: "X", ValueType: mailtemplate.ValueQuery}},
		{name: "malformed query", v: mailtemplate.Variable{Name: "X", ValueType: mailtemplate.ValueQuery, RecordType: "member", Query: "Name"}},
		{name: "unknown value type", v: mailtemplate.Variable{Name: "X", ValueType: "magic"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := res.Resolve(context.Background(), tt.v)
			require.ErrorIs(t, err, mailtemplate.ErrResolution)
		})
	}

	t.Run("unknown type keeps cause", func(t *testing.T) {
		t.Parallel()

		_, err := res.Resolve(context.Background(), mailtemplate.Variable{Name: "X", ValueType: mailtemplate.ValueRandom, RecordType: "order"})
		require.ErrorIs(t, err, directory.ErrUnknownType)
	})
}

func TestResolver_ResolveAll(t *testing.T) {
	t.Parallel()

	res := mailtemplate.NewResolver(registry(t, 2))

	data, err := res.ResolveAll(context.Background(), []mailtemplate.Variable{
		{Name: "Title", ValueType: mailtemplate.ValueStatic, Value: "News"},
		{Name: "Members", ValueType: mailtemplate.ValueQuery, RecordType: "member", List: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "News", data["Title"])
	assert.Len(t, data["Members"], 2)

	_, err = res.ResolveAll(context.Background(), []mailtemplate.Variable{
		{Name: "Bad", ValueType: mailtemplate.ValueRandom, RecordType: "order"},
	})
	require.ErrorIs(t, err, mailtemplate.ErrResolution)
}
