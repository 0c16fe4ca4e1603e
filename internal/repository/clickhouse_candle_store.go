package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	domrepo "github.com/dogmaai/magi-decision/internal/domain/repository"
	pkgch "github.com/dogmaai/magi-decision/pkg/clickhouse"
	applogger "github.com/dogmaai/magi-decision/pkg/logger"
	"github.com/dogmaai/magi-decision/pkg/util"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// CHCandleStore implements CandleSource over a daily OHLCV table.
type CHCandleStore struct {
	db    *sql.DB
	table string
	now   func() time.Time
	l     *applogger.Logger
}

var _ domrepo.CandleSource = (*CHCandleStore)(nil)

func NewCHCandleStore(ch *pkgch.Client, table string, l *applogger.Logger) (*CHCandleStore, error) {
	return newCHCandleStore(ch.DB(), table, l)
}

func newCHCandleStore(db *sql.DB, table string, l *applogger.Logger) (*CHCandleStore, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid candle table name %q", table)
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCandleStore{db: db, table: table, now: time.Now, l: l}, nil
}

// Schema returns the DDL for the candle table.
func (s *CHCandleStore) Schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            bucket Date,
            symbol LowCardinality(String),
            open Float64,
            high Float64,
            low Float64,
            close Float64,
            volume Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, bucket)
    `, s.table)}
}

// GetDailyCandles returns bars within the period, oldest first.
func (s *CHCandleStore) GetDailyCandles(ctx context.Context, symbol string, period domrepo.Period) ([]models.Candle, error) {
	start := time.Now()
	if !domrepo.IsValidPeriod(period) {
		period = domrepo.DefaultPeriod()
	}
	from := util.StartOfDay(s.now()).AddDate(0, 0, -period.Days())
	q := fmt.Sprintf(`
        SELECT bucket, symbol, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND bucket >= ?
        ORDER BY bucket ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from)
	if err != nil {
		s.l.Error("clickhouse daily_candles query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get daily candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, period.Days())
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse daily_candles ok",
		applogger.String("symbol", symbol),
		applogger.String("period", string(period)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// FallbackCandles reads from primary and turns to secondary when primary fails
// or holds fewer than minBars bars.
type FallbackCandles struct {
	primary   domrepo.CandleSource
	secondary domrepo.CandleSource
	minBars   int
	l         *applogger.Logger
}

var _ domrepo.CandleSource = (*FallbackCandles)(nil)

func NewFallbackCandles(primary, secondary domrepo.CandleSource, minBars int, l *applogger.Logger) *FallbackCandles {
	if l == nil {
		l = applogger.Nop()
	}
	return &FallbackCandles{primary: primary, secondary: secondary, minBars: minBars, l: l}
}

func (f *FallbackCandles) GetDailyCandles(ctx context.Context, symbol string, period domrepo.Period) ([]models.Candle, error) {
	cs, err := f.primary.GetDailyCandles(ctx, symbol, period)
	if err == nil && len(cs) >= f.minBars {
		return cs, nil
	}
	if err != nil {
		f.l.Warn("primary candle source failed", applogger.String("symbol", symbol), applogger.Error(err))
	}
	more, serr := f.secondary.GetDailyCandles(ctx, symbol, period)
	if serr != nil {
		if err == nil {
			return cs, nil
		}
		return nil, fmt.Errorf("candles %s: %w", symbol, serr)
	}
	if len(more) < len(cs) {
		return cs, nil
	}
	return more, nil
}
