package yahoo

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quantlab/hindsight/market"
)

// Syncer keeps the data store aligned with the ticker book: every listed
// ticker up to date, nothing stored for delisted tickers.
type Syncer struct {
	Client *Client
	Store  *market.Store
	Book   *market.TickerBook

	log *zap.Logger
}

func NewSyncer(c *Client, store *market.Store, book *market.TickerBook, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{Client: c, Store: store, Book: book, log: log}
}

// FetchLatest downloads (or refreshes) one ticker's full history.
func (s *Syncer) FetchLatest(ctx context.Context, ticker string) error {
	series, err := s.Client.Fetch(ctx, ticker, LongAgo, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := s.Store.SaveSeries(series); err != nil {
		return fmt.Errorf("yahoo: save %s: %w", ticker, err)
	}
	return nil
}

// Sync updates every ticker in the book and removes stored data for
// tickers no longer listed. It keeps going after per-ticker failures and
// reports them together.
func (s *Syncer) Sync(ctx context.Context) error {
	var failed []string

	for _, ticker := range s.Book.Names() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.FetchLatest(ctx, ticker); err != nil {
			s.log.Error("sync failed", zap.String("ticker", ticker), zap.Error(err))
			failed = append(failed, ticker)
		}
	}

	// prune datasets whose tickers were dropped from the book
	for _, ticker := range s.storedTickers() {
		if s.Book.Has(ticker) {
			continue
		}
		s.log.Info("removing delisted dataset", zap.String("ticker", ticker))
		if err := s.Store.RemoveData(ticker); err != nil {
			return fmt.Errorf("yahoo: remove %s: %w", ticker, err)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("yahoo: sync failed for %v", failed)
	}
	return nil
}

// storedTickers lists every ticker with a history file on disk.
func (s *Syncer) storedTickers() []string {
	entries, err := os.ReadDir(s.Store.DataDir())
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".csv"))
	}
	return out
}
