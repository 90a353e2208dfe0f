package market

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/quantlab/hindsight/dataset"
)

// Store is the on-disk layout for downloaded data and analysis output:
//
//	<dir>/data/<TICKER>.csv      downloaded daily history
//	<dir>/analysis/<NAME>.csv    cached analysis frames
//	<dir>/tickers.yaml           the ticker book
type Store struct {
	Dir string
}

func NewStore(dir string) (*Store, error) {
	s := &Store{Dir: dir}
	for _, d := range []string{s.DataDir(), s.AnalysisDir()} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("market: create %s: %w", d, err)
		}
	}
	return s, nil
}

func (s *Store) DataDir() string     { return filepath.Join(s.Dir, "data") }
func (s *Store) AnalysisDir() string { return filepath.Join(s.Dir, "analysis") }

func (s *Store) DataPath(ticker string) string {
	return filepath.Join(s.DataDir(), ticker+".csv")
}

func (s *Store) AnalysisPath(name string) string {
	return filepath.Join(s.AnalysisDir(), name+".csv")
}

func (s *Store) TickerBookPath() string {
	return filepath.Join(s.Dir, "tickers.yaml")
}

// HasData reports whether a history file exists for the ticker.
func (s *Store) HasData(ticker string) bool {
	_, err := os.Stat(s.DataPath(ticker))
	return err == nil
}

// LoadSeries reads the stored history for a ticker.
func (s *Store) LoadSeries(ticker string) (*Series, error) {
	f, err := dataset.ReadCSV(s.DataPath(ticker))
	if err != nil {
		return nil, fmt.Errorf("market: load %s: %w", ticker, err)
	}
	return FromFrame(ticker, f)
}

// SaveSeries writes a ticker history into the data directory.
func (s *Store) SaveSeries(series *Series) error {
	f, err := series.Frame()
	if err != nil {
		return err
	}
	return f.WriteCSV(s.DataPath(series.Ticker))
}

// RemoveData deletes a ticker's stored history, e.g. after it is dropped
// from the book.
func (s *Store) RemoveData(ticker string) error {
	err := os.Remove(s.DataPath(ticker))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// StoredPeriod returns the oldest and newest dates on disk for a ticker.
func (s *Store) StoredPeriod(ticker string) (from, to time.Time, err error) {
	series, err := s.LoadSeries(ticker)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return series.Period()
}
