package finnhub

import (
	"strings"
	"sync"

	"github.com/dogmaai/magi-decision/internal/domain/models"
)

// QuoteBook keeps the latest trade per symbol.
type QuoteBook struct {
	mu     sync.RWMutex
	trades map[string]models.Trade
}

func NewQuoteBook() *QuoteBook {
	return &QuoteBook{trades: make(map[string]models.Trade)}
}

// Update stores t unless a newer print for the same symbol is already held.
func (b *QuoteBook) Update(t models.Trade) {
	key := strings.ToUpper(t.Symbol)
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.trades[key]; ok && cur.Timestamp.After(t.Timestamp) {
		return
	}
	b.trades[key] = t
}

func (b *QuoteBook) Last(symbol string) (models.Trade, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.trades[strings.ToUpper(symbol)]
	return t, ok
}

func (b *QuoteBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.trades)
}
