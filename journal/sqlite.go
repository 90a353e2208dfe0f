package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quantlab/hindsight/pkg/id"
	"github.com/quantlab/hindsight/report"
	"github.com/quantlab/hindsight/strategy"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, system, ticker, params, start_time, end_time,
		 initial_equity, final_equity, final_debt, cagr, mar, max_drawdown, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.System, r.Ticker, r.Params, r.Start, r.End,
		r.InitialEquity, r.FinalEquity, r.FinalDebt, r.CAGR, r.MAR, r.MaxDrawdown, r.CreatedAt,
	)
	return err
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, run_id, ticker, position, entry_price, exit_price,
		 open_time, close_time, trade_return, stopped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.Ticker, t.Position, t.EntryPrice, t.ExitPrice,
		t.OpenTime, t.CloseTime, t.Return, t.Stopped,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquityPoint) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (run_id, time, equity, debt)
		VALUES (?, ?, ?, ?)`,
		e.RunID, e.Time, e.Equity, e.Debt,
	)
	return err
}

// RecordBacktest stores a full backtest in one transaction: the run
// header, every trade and the daily equity curve. It returns the new
// run id.
func (j *SQLite) RecordBacktest(res *strategy.Result, summary *report.Summary, params strategy.Params) (string, error) {
	if res == nil || summary == nil {
		return "", fmt.Errorf("journal: nil result or summary")
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", err
	}

	runID := id.New()
	tx, err := j.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO runs
		(run_id, system, ticker, params, start_time, end_time,
		 initial_equity, final_equity, final_debt, cagr, mar, max_drawdown, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.System, res.Ticker, string(encoded), summary.Start, summary.End,
		res.InitialEquity, res.FinalEquity, res.FinalDebt,
		summary.CAGR, summary.MAR, summary.MaxDrawdown, time.Now().UTC(),
	); err != nil {
		return "", err
	}

	for _, t := range res.Trades {
		if _, err := tx.Exec(`
			INSERT INTO trades
			(trade_id, run_id, ticker, position, entry_price, exit_price,
			 open_time, close_time, trade_return, stopped)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id.New(), runID, res.Ticker, t.Position, t.EntryPrice, t.ExitPrice,
			t.EntryDate, t.ExitDate, t.Return, t.Stopped,
		); err != nil {
			return "", err
		}
	}

	dates := res.Frame.Dates()
	eq, err := res.Frame.Column(strategy.ColEquity)
	if err != nil {
		return "", err
	}
	debt, err := res.Frame.Column(strategy.ColDebt)
	if err != nil {
		return "", err
	}
	for i := range dates {
		if _, err := tx.Exec(`
			INSERT INTO equity (run_id, time, equity, debt)
			VALUES (?, ?, ?, ?)`,
			runID, dates[i], eq[i], debt[i],
		); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
