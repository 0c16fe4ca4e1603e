package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTrades(t *testing.T) {
	trades := decodeTrades([]byte(`{"type":"trade","data":[{"s":"AAPL","p":190.5,"v":3,"t":1700000000123},{"s":"","p":1,"v":1,"t":1}]}`))
	require.Len(t, trades, 1)
	assert.Equal(t, "AAPL", trades[0].Symbol)
	assert.Equal(t, 190.5, trades[0].Price)
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), trades[0].Timestamp)

	assert.Empty(t, decodeTrades([]byte(`{"type":"ping"}`)))
	assert.Empty(t, decodeTrades([]byte(`not json`)))
}

func TestQuoteBookKeepsNewest(t *testing.T) {
	b := NewQuoteBook()
	now := time.Now()
	b.Update(models.Trade{Symbol: "aapl", Price: 2, Timestamp: now})
	b.Update(models.Trade{Symbol: "AAPL", Price: 1, Timestamp: now.Add(-time.Second)})

	tr, ok := b.Last("AAPL")
	require.True(t, ok)
	assert.Equal(t, 2.0, tr.Price)
	_, ok = b.Last("MSFT")
	assert.False(t, ok)
	assert.Equal(t, 1, b.Len())
}

func TestClientStreamsTrades(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		var sub map[string]string
		assert.NoError(t, conn.ReadJSON(&sub))
		assert.Equal(t, "subscribe", sub["type"])
		assert.Equal(t, "AAPL", sub["symbol"])

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"trade","data":[{"s":"AAPL","p":191,"v":1,"t":1700000000000}]}`))
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c := New("secret", "ws"+strings.TrimPrefix(srv.URL, "http"), []string{"AAPL"}, time.Millisecond, time.Hour, nil)
	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Subscribe(ctx))
	assert.True(t, c.IsConnected())

	trades, _ := c.Read(ctx)
	select {
	case tr := <-trades:
		require.NotNil(t, tr)
		assert.Equal(t, 191.0, tr.Price)
	case <-ctx.Done():
		t.Fatal("no trade received")
	}
	require.NoError(t, c.Close())
	assert.False(t, c.IsConnected())
}

func TestSubscribeRequiresConnection(t *testing.T) {
	c := New("k", "ws://127.0.0.1:1", []string{"AAPL"}, time.Millisecond, time.Second, nil)
	assert.ErrorIs(t, c.Subscribe(context.Background()), ErrNotConnected)
}
