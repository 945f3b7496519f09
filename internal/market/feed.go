// Package market publishes the latest traded price of each dashboard company.
package market

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// PriceSource returns the latest traded price of a symbol
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Quote is one observed price
type Quote struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"time"`
}

// PriceFeed polls a PriceSource and fans quotes out to subscribers
type PriceFeed struct {
	mu          sync.RWMutex
	source      PriceSource
	symbols     []string
	quotes      map[string]Quote
	subscribers []chan Quote
	logger      *log.Logger
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewPriceFeed creates a feed over symbols
func NewPriceFeed(source PriceSource, symbols []string, logger *log.Logger) *PriceFeed {
	if logger == nil {
		logger = log.Default()
	}
	return &PriceFeed{
		source:  source,
		symbols: symbols,
		quotes:  make(map[string]Quote, len(symbols)),
		logger:  logger,
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
}

// Latest returns the last quote of every symbol seen so far, in symbol order
func (pf *PriceFeed) Latest() []Quote {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	out := make([]Quote, 0, len(pf.quotes))
	for _, s := range pf.symbols {
		if q, ok := pf.quotes[s]; ok {
			out = append(out, q)
		}
	}
	return out
}

// Quote returns the last quote of symbol
func (pf *PriceFeed) Quote(symbol string) (Quote, bool) {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	q, ok := pf.quotes[symbol]
	return q, ok
}

// Subscribe returns a channel that receives quotes
func (pf *PriceFeed) Subscribe() chan Quote {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	ch := make(chan Quote, 2*len(pf.symbols)+1)
	pf.subscribers = append(pf.subscribers, ch)
	return ch
}

// Unsubscribe removes and closes a subscriber channel
func (pf *PriceFeed) Unsubscribe(ch chan Quote) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	for i, sub := range pf.subscribers {
		if sub == ch {
			pf.subscribers = append(pf.subscribers[:i], pf.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Start polls immediately and then at every interval until Stop
func (pf *PriceFeed) Start(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-pf.stopCh
		cancel()
	}()

	go func() {
		pf.Poll(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				pf.Poll(ctx)
			case <-pf.stopCh:
				return
			}
		}
	}()
}

// Stop halts polling. It is safe to call more than once.
func (pf *PriceFeed) Stop() {
	pf.stopOnce.Do(func() { close(pf.stopCh) })
}

// Poll fetches every symbol once and publishes the results. Failed symbols keep
// their previous quote. It returns the number of quotes published.
func (pf *PriceFeed) Poll(ctx context.Context) int {
	published := 0
	for _, symbol := range pf.symbols {
		if ctx.Err() != nil {
			return published
		}
		price, err := pf.source.CurrentPrice(ctx, symbol)
		if err != nil {
			pf.logger.Debug("price poll failed", "symbol", symbol, "err", err)
			continue
		}
		pf.publish(Quote{Symbol: symbol, Price: price, Time: pf.now()})
		published++
	}
	return published
}

func (pf *PriceFeed) publish(q Quote) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	pf.quotes[q.Symbol] = q

	// Sends must stay non-blocking while the lock is held
	for _, ch := range pf.subscribers {
		select {
		case ch <- q:
		default:
			// Skip if channel is full
		}
	}
}
