// Package isabel queries the research-document search service for historical context.
// It does not vote; its output is attached to results and to the arbiter prompt.
package isabel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dogmaai/magi-decision/internal/domain/models"
	"github.com/dogmaai/magi-decision/internal/domain/repository"
	xhttp "github.com/dogmaai/magi-decision/pkg/http"
	applogger "github.com/dogmaai/magi-decision/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const UnitID = "ISABEL"

type Config struct {
	URL     string
	Token   string
	Limit   int
	MaxDocs int
	Timeout time.Duration
}

func (c Config) Enabled() bool { return strings.TrimSpace(c.URL) != "" }

type Client struct {
	cfg    Config
	http   *xhttp.Client
	logger *applogger.Logger
}

var _ repository.ContextSource = (*Client)(nil)

func New(cfg Config, l *applogger.Logger) *Client {
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	if cfg.MaxDocs <= 0 {
		cfg.MaxDocs = 15
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if l == nil {
		l = applogger.Nop()
	}
	return &Client{
		cfg:    cfg,
		http:   xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		logger: l.With(applogger.String("unit", UnitID)),
	}
}

type searchRequest struct {
	Symbol string `json:"symbol"`
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
}

type searchResponse struct {
	Documents []models.Document `json:"documents"`
	Summary   string            `json:"summary"`
}

// Search runs a single query against the search-v2 endpoint.
func (c *Client) Search(ctx context.Context, symbol, query string) ([]models.Document, error) {
	headers := map[string]string{"Content-Type": "application/json"}
	if c.cfg.Token != "" {
		headers["Authorization"] = "Bearer " + c.cfg.Token
	}
	var resp searchResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.cfg.URL + "/api/isabel/search-v2",
		Headers: headers,
		Body:    searchRequest{Symbol: symbol, Query: query, Limit: c.cfg.Limit},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("isabel search %q: %w", query, err)
	}
	return resp.Documents, nil
}

// HistoricalContext runs the news and analysis queries concurrently. A failed query
// contributes no documents; the call only errors when every query failed.
func (c *Client) HistoricalContext(ctx context.Context, symbol, companyName string) (*models.HistoricalContext, error) {
	if companyName == "" {
		companyName = symbol
	}
	queries := []string{
		companyName + " latest news",
		symbol + " stock analysis",
	}
	results := make([][]models.Document, len(queries))
	errs := make([]error, len(queries))

	var g errgroup.Group
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			results[i], errs[i] = c.Search(ctx, symbol, q)
			if errs[i] != nil {
				c.logger.Warn("search failed", applogger.String("symbol", symbol), applogger.Error(errs[i]))
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(queries) {
		return nil, errs[0]
	}

	docs := dedupe(results, c.cfg.MaxDocs)
	c.logger.Debug("context retrieved", applogger.String("symbol", symbol), applogger.Int("documents", len(docs)))
	return &models.HistoricalContext{
		Documents:     docs,
		DocumentCount: len(docs),
		Summary:       summary(len(docs)),
	}, nil
}

// dedupe keeps the last document seen per id (or title) at the position of its first
// appearance, then caps the list.
func dedupe(batches [][]models.Document, limit int) []models.Document {
	index := make(map[string]int)
	out := make([]models.Document, 0)
	for _, batch := range batches {
		for _, d := range batch {
			key := d.ID
			if key == "" {
				key = d.Title
			}
			if i, ok := index[key]; ok {
				out[i] = d
				continue
			}
			index[key] = len(out)
			out = append(out, d)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func summary(n int) string {
	if n == 0 {
		return "No recent documents found."
	}
	return fmt.Sprintf("Found %d relevant documents.", n)
}
