package market

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// TickerBook is the registry of index tickers whose history is kept in the
// store. It persists as a YAML file so the list survives between sessions
// and can be hand-edited.
type TickerBook struct {
	path    string
	Tickers map[string]string `yaml:"tickers"` // ticker -> description
}

// DefaultTickers seeds a new book with the major world indices.
var DefaultTickers = map[string]string{
	"FTSE":  "London FTSE 100 index",
	"FTMC":  "London FTSE 250 index",
	"GDAXI": "Frankfurt DAX 30 index",
	"FCHI":  "Paris CAC 40",
	"IBEX":  "Madrid IBEX 35",
	"DJI":   "New York Dow Jones 30 index",
	"OEX":   "Chicago S&P 100 index",
	"VIX":   "Chicago S&P 500 volatility",
	"NDX":   "NASDAQ 100 index",
	"CCSI":  "Cairo EGX 70 index",
	"N225":  "Osaka Nikkei 225 index",
	"HSI":   "Hong Kong Hang Seng index",
}

// LoadTickerBook reads the book at path, seeding defaults when the file
// does not exist yet.
func LoadTickerBook(path string) (*TickerBook, error) {
	b := &TickerBook{path: path, Tickers: map[string]string{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		b.Reset()
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("market: read ticker book: %w", err)
	}

	if err := yaml.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("market: parse ticker book %s: %w", path, err)
	}
	if len(b.Tickers) == 0 {
		b.Reset()
	}
	return b, nil
}

// Save writes the book back to its YAML file.
func (b *TickerBook) Save() error {
	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("market: marshal ticker book: %w", err)
	}
	if err := os.WriteFile(b.path, data, 0644); err != nil {
		return fmt.Errorf("market: write ticker book: %w", err)
	}
	return nil
}

// Reset restores the default index list.
func (b *TickerBook) Reset() {
	b.Tickers = make(map[string]string, len(DefaultTickers))
	for k, v := range DefaultTickers {
		b.Tickers[k] = v
	}
}

// Add registers a ticker with a description.
func (b *TickerBook) Add(ticker, description string) {
	b.Tickers[ticker] = description
}

// Remove drops a ticker from the book.
func (b *TickerBook) Remove(ticker string) bool {
	if _, ok := b.Tickers[ticker]; !ok {
		return false
	}
	delete(b.Tickers, ticker)
	return true
}

// Has reports whether the ticker is listed.
func (b *TickerBook) Has(ticker string) bool {
	_, ok := b.Tickers[ticker]
	return ok
}

// Names returns the tickers in sorted order.
func (b *TickerBook) Names() []string {
	names := make([]string, 0, len(b.Tickers))
	for k := range b.Tickers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
