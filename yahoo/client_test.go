package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/hindsight/market"
)

const sampleHistory = `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-04,103,104,102,103.5,103.5,1200
2024-01-03,102,103,101,102.5,102.5,1100
2024-01-02,101,102,100,101.5,101.5,1000
`

func TestParseHistory(t *testing.T) {
	s, err := ParseHistory("FTSE", strings.NewReader(sampleHistory))
	require.NoError(t, err)

	require.Equal(t, 3, s.Len())
	// bars come back oldest first even though the wire is newest first
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), s.Bars[0].Date)
	assert.Equal(t, 101.5, s.Bars[0].Close)
	assert.Equal(t, 103.5, s.Bars[2].Close)
	assert.Equal(t, 1000.0, s.Bars[0].Volume)
}

func TestParseHistoryMissingColumn(t *testing.T) {
	_, err := ParseHistory("FTSE", strings.NewReader("Date,Open\n2024-01-02,1\n"))
	assert.Error(t, err)
}

func TestFetch(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		fmt.Fprint(w, sampleHistory)
	}))
	defer srv.Close()

	c := NewClient(nil)
	c.BaseURL = srv.URL

	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

	s, err := c.Fetch(context.Background(), "FTSE", from, to)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Contains(t, gotPath, "table.csv")
	assert.Contains(t, gotPath, "s=%5EFTSE")
}

func TestFetchRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, sampleHistory)
	}))
	defer srv.Close()

	c := NewClient(nil)
	c.BaseURL = srv.URL

	_, err := c.Fetch(context.Background(), "FTSE", LongAgo, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestFetchNotFoundIsPermanent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(nil)
	c.BaseURL = srv.URL

	_, err := c.Fetch(context.Background(), "NOPE", LongAgo, time.Now())
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestSyncPrunesDelisted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleHistory)
	}))
	defer srv.Close()

	dir := t.TempDir()
	store, err := market.NewStore(dir)
	require.NoError(t, err)

	book, err := market.LoadTickerBook(store.TickerBookPath())
	require.NoError(t, err)
	book.Tickers = map[string]string{"FTSE": "London FTSE 100 index"}

	// pre-seed a dataset for a ticker no longer in the book
	stale := &market.Series{Ticker: "OLD", Bars: []market.Bar{{
		Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1,
	}}}
	require.NoError(t, store.SaveSeries(stale))

	c := NewClient(nil)
	c.BaseURL = srv.URL

	syncer := NewSyncer(c, store, book, nil)
	require.NoError(t, syncer.Sync(context.Background()))

	assert.True(t, store.HasData("FTSE"))
	assert.False(t, store.HasData("OLD"))
}
