package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	t.Parallel()

	t.Run("applies config", func(t *testing.T) {
		t.Parallel()

		opts, err := options(Config{
			URL:          "redis://:secret@cache.internal:6380/2",
			PoolSize:     7,
			MinIdleConns: 1,
			DialTimeout:  time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, "cache.internal:6380", opts.Addr)
		assert.Equal(t, "secret", opts.Password)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 7, opts.PoolSize)
		assert.Equal(t, 1, opts.MinIdleConns)
		assert.Equal(t, time.Second, opts.DialTimeout)
	})

	t.Run("tls scheme", func(t *testing.T) {
		t.Parallel()

		opts, err := options(Config{URL: "rediss://cache.internal:6380"})
		require.NoError(t, err)
		assert.NotNil(t, opts.TLSConfig)
	})

	tests := []struct {
		name string
		url  string
		want error
	}{
		{name: "empty", url: "", want: ErrEmptyConnectionURL},
		{name: "http scheme", url: "http://localhost:6379", want: ErrFailedToParseURL},
		{name: "bad db", url: "redis://localhost:6379/abc", want: ErrFailedToParseURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := options(Config{URL: tt.url})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConnect_Unreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, Config{
		URL:           "redis://127.0.0.1:1",
		RetryAttempts: 2,
		RetryInterval: 10 * time.Millisecond,
		DialTimeout:   100 * time.Millisecond,
	})
	require.ErrorIs(t, err, ErrConnectionFailed)
}

func TestHealthcheck_NilClient(t *testing.T) {
	t.Parallel()
	require.ErrorIs(t, Healthcheck(nil)(context.Background()), ErrHealthcheckFailed)
}

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{URL: "redis://localhost:6379"}.Enabled())
}
