package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/peter-kozarec/foresight/pkg/common"
)

// Horizon months map onto distinct pre-aggregated quarter-forward columns;
// returns are never recomputed from raw price series at query time.
func forwardColumn(h common.Horizon) (string, error) {
	switch h {
	case common.Horizon1M:
		return "pct_change_q1_forward", nil
	case common.Horizon3M:
		return "pct_change_q2_forward", nil
	case common.Horizon6M:
		return "pct_change_q3_forward", nil
	default:
		return "", fmt.Errorf("no forward-return column for %d month horizon", h)
	}
}

// ForwardReturns computes realized forward returns for each symbol from the
// reference date, for every requested horizon. The benchmark's returns are
// read once per call and shared across all symbols. A symbol without a row
// yields nil actual returns; a missing benchmark row reads as 0.0 for every
// horizon.
func (d *DB) ForwardReturns(ctx context.Context, symbols []string, referenceDate time.Time, horizons []common.Horizon) (map[string]common.Outcomes, error) {
	if len(horizons) == 0 {
		horizons = common.DefaultHorizons
	}

	columns := make([]string, len(horizons))
	for i, h := range horizons {
		col, err := forwardColumn(h)
		if err != nil {
			return nil, err
		}
		columns[i] = col
	}

	benchmark, err := d.benchmarkReturns(ctx, referenceDate, horizons, columns)
	if err != nil {
		return nil, err
	}

	results := make(map[string]common.Outcomes, len(symbols))
	for _, symbol := range symbols {
		row, err := d.symbolRow(ctx, symbol, referenceDate, columns)
		if err != nil {
			return nil, err
		}

		outcomes := make(common.Outcomes, len(horizons))
		for i, h := range horizons {
			outcome := common.HorizonOutcome{BenchmarkReturn: benchmark[h]}
			if row != nil && row[i].Valid {
				actual := row[i].Float64
				outperformance := actual - benchmark[h]
				outcome.ActualReturn = &actual
				outcome.Outperformance = &outperformance
			}
			outcomes[h] = outcome
		}
		results[symbol] = outcomes
	}
	return results, nil
}

// benchmarkReturns reads the benchmark row once for the whole call.
func (d *DB) benchmarkReturns(ctx context.Context, referenceDate time.Time, horizons []common.Horizon, columns []string) (map[common.Horizon]float64, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE symbol = ? AND month_date = ? LIMIT 1`,
		strings.Join(columns, ", "), d.benchmarkTable)

	row, err := d.scanRow(ctx, query, d.benchmark, referenceDate)
	if err != nil {
		return nil, fmt.Errorf("benchmark returns for %s: %w", d.benchmark, err)
	}

	returns := make(map[common.Horizon]float64, len(horizons))
	for i, h := range horizons {
		// Missing benchmark data reads as a flat benchmark.
		if row != nil && row[i].Valid {
			returns[h] = row[i].Float64
		} else {
			returns[h] = 0.0
		}
	}
	return returns, nil
}

// symbolRow searches the configured return tables for the symbol's row at the
// reference date. Nil without error when no table has it.
func (d *DB) symbolRow(ctx context.Context, symbol string, referenceDate time.Time, columns []string) ([]sql.NullFloat64, error) {
	cols := strings.Join(columns, ", ")

	selects := make([]string, len(d.returnTables))
	args := make([]any, 0, 2*len(d.returnTables))
	for i, table := range d.returnTables {
		selects[i] = fmt.Sprintf(`SELECT %s FROM %s WHERE symbol = ? AND month_date = ?`, cols, table)
		args = append(args, symbol, referenceDate)
	}
	query := strings.Join(selects, " UNION ALL ") + " LIMIT 1"

	row, err := d.scanRow(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("forward returns for %s: %w", symbol, err)
	}
	return row, nil
}

func (d *DB) scanRow(ctx context.Context, query string, args ...any) ([]sql.NullFloat64, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("rows: %w", err)
		}
		return nil, nil
	}

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	values := make([]sql.NullFloat64, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return values, nil
}
