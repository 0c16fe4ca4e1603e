package alpaca

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, positionsStatus int) *Client {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/account", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))
		_, _ = w.Write([]byte(`{"cash":"1000.50","portfolio_value":"2500.10","equity":"2500.10","buying_power":"2001"}`))
	})
	mux.HandleFunc("/v2/positions", func(w http.ResponseWriter, r *http.Request) {
		if positionsStatus != http.StatusOK {
			w.WriteHeader(positionsStatus)
			return
		}
		_, _ = w.Write([]byte(`[{"symbol":"AAPL","qty":"3","avg_entry_price":"150.25","current_price":"160","unrealized_pl":"29.25","market_value":"480"}]`))
	})
	mux.HandleFunc("/v2/positions/AAPL", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"AAPL","qty":"3","avg_entry_price":"150.25","current_price":"160","unrealized_pl":"29.25","market_value":"480"}`))
	})
	mux.HandleFunc("/v2/positions/MSFT", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":40410000,"message":"position does not exist"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "key", SecretKey: "secret", BaseURL: srv.URL + "/", Timeout: time.Second})
}

func TestSnapshot(t *testing.T) {
	c := newTestClient(t, http.StatusOK)

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1000.5", snap.Account.Cash.String())
	assert.Equal(t, "2001", snap.Account.BuyingPower.String())
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, 1, snap.TotalPositions)
	assert.Equal(t, "150.25", snap.Positions[0].AvgEntryPrice.String())
}

func TestSnapshotFailsWhenPositionsFail(t *testing.T) {
	c := newTestClient(t, http.StatusInternalServerError)
	_, err := c.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alpaca positions")
}

func TestPositionsForSymbol(t *testing.T) {
	c := newTestClient(t, http.StatusOK)

	ps, err := c.Positions(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "3", ps[0].Qty.String())

	ps, err = c.Positions(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Empty(t, ps)
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{APIKey: "k"}.Enabled())
	assert.True(t, Config{APIKey: "k", SecretKey: "s"}.Enabled())
}
