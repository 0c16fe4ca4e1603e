package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	domsvc "github.com/dogmaai/magi-decision/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchKeepsLaunchOrderAndIsolatesFailures(t *testing.T) {
	d := NewDispatcher([]domsvc.Agent{
		&fakeAgent{id: "B2", sig: models.SignalBuy, conf: models.Confidence(0.8), delay: 30 * time.Millisecond},
		&fakeAgent{id: "M1", panic: true},
		&fakeAgent{id: "C3", err: "401 unauthorized"},
		vote("R4", models.SignalSell, 0.6),
	}, WithPortfolio(&fakePortfolio{err: errors.New("alpaca down")}), WithContextSource(&fakeResearch{}))

	out := d.Dispatch(context.Background(), DispatchInput{Instrument: "AAPL", CompanyName: "Apple"})

	require.Len(t, out.Judgments, 4)
	ids := []string{out.Judgments[0].UnitID, out.Judgments[1].UnitID, out.Judgments[2].UnitID, out.Judgments[3].UnitID}
	assert.Equal(t, []string{"B2", "M1", "C3", "R4"}, ids)

	assert.Equal(t, models.SignalBuy, out.Judgments[0].Signal)
	assert.Contains(t, out.Judgments[1].Error, "panic")
	assert.Equal(t, 0.0, *out.Judgments[1].Confidence)
	assert.Equal(t, "401 unauthorized", out.Judgments[2].Error)
	assert.Equal(t, models.SignalSell, out.Judgments[3].Signal)

	assert.Nil(t, out.Portfolio)
	require.NotNil(t, out.HistoricalContext)
	assert.Equal(t, 1, out.HistoricalContext.DocumentCount)
}

func TestDispatchSubsetIgnoresUnknownUnits(t *testing.T) {
	research := &fakeResearch{}
	d := NewDispatcher([]domsvc.Agent{vote("B2", models.SignalBuy, 0.9), vote("R4", models.SignalBuy, 0.9)},
		WithContextSource(research))

	out := d.Dispatch(context.Background(), DispatchInput{Instrument: "AAPL", Units: []string{"r4", "ZZ9", "R4"}})
	require.Len(t, out.Judgments, 1)
	assert.Equal(t, "R4", out.Judgments[0].UnitID)
	assert.Nil(t, out.HistoricalContext)
	assert.Equal(t, 0, research.calls)

	out = d.Dispatch(context.Background(), DispatchInput{Instrument: "AAPL", Units: []string{"ISABEL"}})
	assert.Empty(t, out.Judgments)
	assert.NotNil(t, out.HistoricalContext)
}

func TestDispatchTimeoutDegradesOnlyTheSlowAgent(t *testing.T) {
	d := NewDispatcher([]domsvc.Agent{
		&fakeAgent{id: "B2", sig: models.SignalBuy, delay: time.Second},
		vote("R4", models.SignalSell, 0.7),
	}, WithAgentTimeout(20*time.Millisecond))

	started := time.Now()
	out := d.Dispatch(context.Background(), DispatchInput{Instrument: "AAPL"})
	assert.Less(t, time.Since(started), 500*time.Millisecond)

	assert.True(t, out.Judgments[0].Failed())
	assert.Equal(t, "B2", out.Judgments[0].UnitID)
	assert.False(t, out.Judgments[1].Failed())
}

func TestUnitsListsContextFirst(t *testing.T) {
	d := NewDispatcher([]domsvc.Agent{vote("B2", models.SignalBuy, 1), vote("B2", models.SignalSell, 1), nil},
		WithContextSource(&fakeResearch{}))
	assert.Equal(t, []string{"ISABEL", "B2"}, d.Units())
}

func TestDispatchUsesDefaultUnitsWhenNoneRequested(t *testing.T) {
	research := &fakeResearch{}
	d := NewDispatcher([]domsvc.Agent{vote("B2", models.SignalBuy, 0.9), vote("M1", models.SignalSell, 0.9), vote("R4", models.SignalBuy, 0.9)},
		WithContextSource(research), WithDefaultUnits([]string{"B2", "R4"}))

	out := d.Dispatch(context.Background(), DispatchInput{Instrument: "AAPL"})
	require.Len(t, out.Judgments, 2)
	assert.Equal(t, "B2", out.Judgments[0].UnitID)
	assert.Equal(t, "R4", out.Judgments[1].UnitID)
	assert.Nil(t, out.HistoricalContext)
	assert.Equal(t, 0, research.calls)

	out = d.Dispatch(context.Background(), DispatchInput{Instrument: "AAPL", Units: []string{"M1"}})
	require.Len(t, out.Judgments, 1)
	assert.Equal(t, "M1", out.Judgments[0].UnitID)
}
