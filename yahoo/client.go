// Package yahoo downloads daily index history in the CSV layout the
// Yahoo! Finance chart endpoint serves.
package yahoo

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/quantlab/hindsight/market"
)

// DefaultBaseURL is the historical-table endpoint. Tests point this at an
// httptest server.
const DefaultBaseURL = "https://ichart.finance.yahoo.com"

// LongAgo is the default start of a full-history download.
var LongAgo = time.Date(1897, 1, 1, 0, 0, 0, 0, time.UTC)

// Client fetches daily history for index tickers.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	MaxTries   uint

	log *zap.Logger
}

func NewClient(log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL: DefaultBaseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxTries: 4,
		log:      log,
	}
}

// Fetch downloads the daily history for one ticker over [from, to],
// retrying transient failures with exponential backoff.
func (c *Client) Fetch(ctx context.Context, ticker string, from, to time.Time) (*market.Series, error) {
	if ticker == "" {
		return nil, fmt.Errorf("yahoo: ticker is required")
	}
	if to.Before(from) {
		return nil, fmt.Errorf("yahoo: period end %s before start %s",
			to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 10 * time.Second

	notify := func(err error, d time.Duration) {
		c.log.Warn("retrying download",
			zap.String("ticker", ticker),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	operation := func() (*market.Series, error) {
		return c.fetchOnce(ctx, ticker, from, to)
	}

	series, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.MaxTries),
		backoff.WithNotify(notify))
	if err != nil {
		return nil, fmt.Errorf("yahoo: fetch %s: %w", ticker, err)
	}

	c.log.Info("downloaded history",
		zap.String("ticker", ticker),
		zap.Int("bars", series.Len()))
	return series, nil
}

func (c *Client) fetchOnce(ctx context.Context, ticker string, from, to time.Time) (*market.Series, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tableURL(ticker, from, to), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to parsing
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(fmt.Errorf("no data for ticker %q (404)", ticker))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("server error %d", resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	series, err := ParseHistory(ticker, resp.Body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return series, nil
}

// tableURL builds the query in the endpoint's historical-table format.
// The s parameter carries the URL-escaped ^TICKER index code.
func (c *Client) tableURL(ticker string, from, to time.Time) string {
	q := url.Values{}
	q.Set("s", "^"+ticker)
	q.Set("g", "d")
	q.Set("a", strconv.Itoa(int(from.Month())))
	q.Set("b", strconv.Itoa(from.Day()))
	q.Set("c", strconv.Itoa(from.Year()))
	q.Set("d", strconv.Itoa(int(to.Month())))
	q.Set("e", strconv.Itoa(to.Day()))
	q.Set("f", strconv.Itoa(to.Year()))
	q.Set("ignore", ".csv")
	return c.BaseURL + "/table.csv?" + q.Encode()
}

// ParseHistory reads the served CSV (Date,Open,High,Low,Close[,Adj Close]
// [,Volume], newest row first) into a Series, oldest bar first.
func ParseHistory(ticker string, r io.Reader) (*market.Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("yahoo: parse %s history: %w", ticker, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("yahoo: %s history is empty", ticker)
	}

	header := records[0]
	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	for _, need := range []string{"Date", "Open", "High", "Low", "Close"} {
		if _, ok := col[need]; !ok {
			return nil, fmt.Errorf("yahoo: %s history missing %q column", ticker, need)
		}
	}
	volumeIdx, hasVolume := col["Volume"]

	series := &market.Series{Ticker: ticker}
	for i, rec := range records[1:] {
		if len(rec) < len(header) {
			return nil, fmt.Errorf("yahoo: %s history row %d is short", ticker, i+1)
		}

		date, err := time.Parse("2006-01-02", rec[col["Date"]])
		if err != nil {
			return nil, fmt.Errorf("yahoo: %s history row %d: %w", ticker, i+1, err)
		}

		bar := market.Bar{Date: date}
		for _, f := range []struct {
			dst *float64
			idx int
		}{
			{&bar.Open, col["Open"]},
			{&bar.High, col["High"]},
			{&bar.Low, col["Low"]},
			{&bar.Close, col["Close"]},
		} {
			v, err := strconv.ParseFloat(rec[f.idx], 64)
			if err != nil {
				return nil, fmt.Errorf("yahoo: %s history row %d col %s: %w", ticker, i+1, header[f.idx], err)
			}
			*f.dst = v
		}
		if hasVolume {
			// volume may be blank on index rows
			if v, err := strconv.ParseFloat(rec[volumeIdx], 64); err == nil {
				bar.Volume = v
			}
		}
		series.Bars = append(series.Bars, bar)
	}

	sort.Slice(series.Bars, func(i, j int) bool {
		return series.Bars[i].Date.Before(series.Bars[j].Date)
	})
	return series, nil
}
