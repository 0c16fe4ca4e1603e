// Package yahoo reads daily history and quote snapshots from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	"github.com/dogmaai/magi-decision/internal/domain/repository"
	xhttp "github.com/dogmaai/magi-decision/pkg/http"
	"github.com/dogmaai/magi-decision/pkg/util"
)

var ErrNoData = errors.New("yahoo: no chart data")

// Client implements CandleSource and QuoteSource.
type Client struct {
	baseURL string
	http    *xhttp.Client
	now     func() time.Time
}

var (
	_ repository.CandleSource = (*Client)(nil)
	_ repository.QuoteSource  = (*Client)(nil)
)

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		now:     time.Now,
	}
}

type chartMeta struct {
	Symbol              string  `json:"symbol"`
	LongName            string  `json:"longName"`
	ShortName           string  `json:"shortName"`
	RegularMarketPrice  float64 `json:"regularMarketPrice"`
	RegularMarketVolume int64   `json:"regularMarketVolume"`
	RegularMarketTime   int64   `json:"regularMarketTime"`
	PreviousClose       float64 `json:"previousClose"`
	ChartPreviousClose  float64 `json:"chartPreviousClose"`
	FiftyTwoWeekHigh    float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow     float64 `json:"fiftyTwoWeekLow"`
	MarketCap           float64 `json:"marketCap"`
}

type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) chart(ctx context.Context, symbol, rng string) (*chartResult, error) {
	var resp chartResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol),
		QueryParams: map[string][]string{
			"range":    {rng},
			"interval": {"1d"},
		},
		Headers: map[string]string{"User-Agent": "Mozilla/5.0"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}
	return &resp.Chart.Result[0], nil
}

// GetDailyCandles returns daily bars oldest first. Bars without a close are skipped.
func (c *Client) GetDailyCandles(ctx context.Context, symbol string, period repository.Period) ([]models.Candle, error) {
	if !repository.IsValidPeriod(period) {
		period = repository.DefaultPeriod()
	}
	res, err := c.chart(ctx, symbol, string(period))
	if err != nil {
		return nil, err
	}
	if len(res.Indicators.Quote) == 0 {
		return []models.Candle{}, nil
	}
	q := res.Indicators.Quote[0]
	out := make([]models.Candle, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		cl := at(q.Close, i)
		if cl == nil {
			continue
		}
		out = append(out, models.Candle{
			Bucket: util.StartOfDay(time.Unix(ts, 0)),
			Symbol: symbol,
			Open:   valueOr(at(q.Open, i), *cl),
			High:   valueOr(at(q.High, i), *cl),
			Low:    valueOr(at(q.Low, i), *cl),
			Close:  *cl,
			Volume: valueOr(at(q.Volume, i), 0),
		})
	}
	return out, nil
}

// GetQuote builds a snapshot from the chart meta block.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	res, err := c.chart(ctx, symbol, "5d")
	if err != nil {
		return nil, err
	}
	m := res.Meta
	prev := m.PreviousClose
	if prev == 0 {
		prev = m.ChartPreviousClose
	}
	q := &models.Quote{
		Symbol:           m.Symbol,
		Name:             m.ShortName,
		Price:            m.RegularMarketPrice,
		PreviousClose:    prev,
		Volume:           m.RegularMarketVolume,
		MarketCap:        m.MarketCap,
		FiftyTwoWeekHigh: m.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  m.FiftyTwoWeekLow,
		Source:           "yahoo",
		Timestamp:        c.now().UTC(),
	}
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	if q.Name == "" {
		q.Name = m.LongName
	}
	if m.RegularMarketTime > 0 {
		q.Timestamp = time.Unix(m.RegularMarketTime, 0).UTC()
	}
	if prev > 0 {
		q.Change = q.Price - prev
		q.ChangePercent = q.Change / prev * 100
	}
	return q, nil
}

func at(xs []*float64, i int) *float64 {
	if i < len(xs) {
		return xs[i]
	}
	return nil
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
