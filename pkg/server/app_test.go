package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dogmaai/magi-decision/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("server:\n  port: 18089\n"))
	require.NoError(t, err)
	return cfg
}

func TestAppRunsJanitorsAndClosesInOrder(t *testing.T) {
	var ticks atomic.Int32
	var closed []string

	app := New(testConfig(t), nil, nil, nil,
		WithJanitor("sweep", 5*time.Millisecond, func() { ticks.Add(1) }),
		WithJanitor("disabled", 0, func() { t.Fatal("must not run") }),
		WithCloser("publisher", func() error { closed = append(closed, "publisher"); return nil }),
		WithCloser("redis", func() error { closed = append(closed, "redis"); return errors.New("already closed") }),
		WithCloser("nil", nil),
	)
	require.NoError(t, app.Start(context.Background()))

	assert.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, app.Shutdown(ctx))
	assert.Equal(t, []string{"publisher", "redis"}, closed)
}
