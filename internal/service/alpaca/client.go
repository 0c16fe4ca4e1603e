// Package alpaca reads the brokerage account and open positions from the Alpaca trading API.
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	"github.com/dogmaai/magi-decision/internal/domain/repository"
	xhttp "github.com/dogmaai/magi-decision/pkg/http"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Config holds the paper or live trading endpoint and its key pair.
type Config struct {
	APIKey    string
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// Enabled reports whether both keys are present.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.SecretKey) != ""
}

type Client struct {
	baseURL string
	headers map[string]string
	http    *xhttp.Client
}

var _ repository.PortfolioProvider = (*Client)(nil)

func New(cfg Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: map[string]string{
			"APCA-API-KEY-ID":     cfg.APIKey,
			"APCA-API-SECRET-KEY": cfg.SecretKey,
		},
		http: xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
	}
}

type account struct {
	Cash           decimal.Decimal `json:"cash"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	Equity         decimal.Decimal `json:"equity"`
	BuyingPower    decimal.Decimal `json:"buying_power"`
}

type position struct {
	Symbol        string          `json:"symbol"`
	Qty           decimal.Decimal `json:"qty"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	UnrealizedPL  decimal.Decimal `json:"unrealized_pl"`
	MarketValue   decimal.Decimal `json:"market_value"`
}

func (p position) model() models.Position {
	return models.Position{
		Symbol:        p.Symbol,
		Qty:           p.Qty,
		AvgEntryPrice: p.AvgEntryPrice,
		CurrentPrice:  p.CurrentPrice,
		UnrealizedPL:  p.UnrealizedPL,
		MarketValue:   p.MarketValue,
	}
}

func (c *Client) get(ctx context.Context, path string, dest interface{}) error {
	return c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + path,
		Headers: c.headers,
	}, dest)
}

// Account returns the cash view.
func (c *Client) Account(ctx context.Context) (*models.Account, error) {
	var a account
	if err := c.get(ctx, "/v2/account", &a); err != nil {
		return nil, fmt.Errorf("alpaca account: %w", err)
	}
	return &models.Account{
		Cash:           a.Cash,
		PortfolioValue: a.PortfolioValue,
		Equity:         a.Equity,
		BuyingPower:    a.BuyingPower,
	}, nil
}

// Positions returns every open position, or the single position for symbol.
// A symbol without a position yields an empty slice.
func (c *Client) Positions(ctx context.Context, symbol string) ([]models.Position, error) {
	if symbol == "" {
		var ps []position
		if err := c.get(ctx, "/v2/positions", &ps); err != nil {
			return nil, fmt.Errorf("alpaca positions: %w", err)
		}
		out := make([]models.Position, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.model())
		}
		return out, nil
	}

	var p position
	err := c.get(ctx, "/v2/positions/"+url.PathEscape(symbol), &p)
	var se *xhttp.StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return []models.Position{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("alpaca position %s: %w", symbol, err)
	}
	return []models.Position{p.model()}, nil
}

// Snapshot fetches the account and all positions concurrently. Either failure fails the snapshot.
func (c *Client) Snapshot(ctx context.Context) (*models.PortfolioSnapshot, error) {
	var (
		acct      *models.Account
		positions []models.Position
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := c.Account(gctx)
		acct = a
		return err
	})
	g.Go(func() error {
		ps, err := c.Positions(gctx, "")
		positions = ps
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &models.PortfolioSnapshot{
		Account:        *acct,
		Positions:      positions,
		TotalPositions: len(positions),
	}, nil
}
