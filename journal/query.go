package journal

import (
	"database/sql"
	"fmt"
)

// GetRun returns a single run by ID.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	var rec RunRecord

	row := j.db.QueryRow(`
		SELECT run_id, system, ticker, params, start_time, end_time,
		       initial_equity, final_equity, final_debt, cagr, mar, max_drawdown, created_at
		FROM runs
		WHERE run_id = ?`, runID)

	err := row.Scan(
		&rec.RunID,
		&rec.System,
		&rec.Ticker,
		&rec.Params,
		&rec.Start,
		&rec.End,
		&rec.InitialEquity,
		&rec.FinalEquity,
		&rec.FinalDebt,
		&rec.CAGR,
		&rec.MAR,
		&rec.MaxDrawdown,
		&rec.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, fmt.Errorf("journal: run %q not found", runID)
		}
		return RunRecord{}, err
	}
	return rec, nil
}

// ListRuns returns runs for a system and ticker, newest first. Empty
// strings match everything.
func (j *SQLite) ListRuns(system, ticker string) ([]RunRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, system, ticker, params, start_time, end_time,
		       initial_equity, final_equity, final_debt, cagr, mar, max_drawdown, created_at
		FROM runs
		WHERE (? = '' OR system = ?) AND (? = '' OR ticker = ?)
		ORDER BY run_id DESC`,
		system, system, ticker, ticker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(
			&rec.RunID,
			&rec.System,
			&rec.Ticker,
			&rec.Params,
			&rec.Start,
			&rec.End,
			&rec.InitialEquity,
			&rec.FinalEquity,
			&rec.FinalDebt,
			&rec.CAGR,
			&rec.MAR,
			&rec.MaxDrawdown,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// BestRun returns the run with the highest MAR for a system and ticker.
func (j *SQLite) BestRun(system, ticker string) (RunRecord, error) {
	runs, err := j.ListRuns(system, ticker)
	if err != nil {
		return RunRecord{}, err
	}
	if len(runs) == 0 {
		return RunRecord{}, fmt.Errorf("journal: no runs for %s/%s", system, ticker)
	}
	best := runs[0]
	for _, r := range runs[1:] {
		if r.MAR > best.MAR {
			best = r
		}
	}
	return best, nil
}

// ListTradesByRun returns a run's trades in close order.
func (j *SQLite) ListTradesByRun(runID string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, run_id, ticker, position, entry_price, exit_price,
		       open_time, close_time, trade_return, stopped
		FROM trades
		WHERE run_id = ?
		ORDER BY close_time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID,
			&rec.RunID,
			&rec.Ticker,
			&rec.Position,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.OpenTime,
			&rec.CloseTime,
			&rec.Return,
			&rec.Stopped,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityByRun returns a run's equity curve in time order.
func (j *SQLite) ListEquityByRun(runID string) ([]EquityPoint, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, equity, debt
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityPoint
	for rows.Next() {
		var p EquityPoint
		if err := rows.Scan(&p.RunID, &p.Time, &p.Equity, &p.Debt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
