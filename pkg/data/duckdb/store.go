package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
)

// DefaultReturnTables are the pre-aggregated forward-return tables the
// upstream transformation layer maintains, searched in order for a symbol.
var DefaultReturnTables = []string{
	"major_indicies_analysis_return",
	"us_sector_analysis_return",
	"global_markets_analysis_return",
	"currency_analysis_return",
	"fixed_income_analysis_return",
}

const (
	// DefaultBenchmark is the symbol recommendations are judged against.
	DefaultBenchmark = "SPY"

	// DefaultBenchmarkTable holds the benchmark's forward returns.
	DefaultBenchmarkTable = "major_indicies_analysis_return"
)

// DB is a handle to the warehouse. It serves forward-return lookups, stored
// analysis reads, and evaluation-result appends over a single connection
// pool. All calls are synchronous and carry no internal retry; transient
// failures surface to the caller.
type DB struct {
	dataSourceName string
	db             *sql.DB

	benchmark      string
	benchmarkTable string
	returnTables   []string
}

type Option func(*DB)

// WithBenchmark overrides the benchmark symbol and the table it is read from.
func WithBenchmark(symbol, table string) Option {
	return func(d *DB) {
		d.benchmark = symbol
		d.benchmarkTable = table
	}
}

// WithReturnTables overrides the set of forward-return tables searched for a
// symbol.
func WithReturnTables(tables []string) Option {
	return func(d *DB) {
		d.returnTables = tables
	}
}

func New(dataSourceName string, opts ...Option) *DB {
	d := &DB{
		dataSourceName: dataSourceName,
		benchmark:      DefaultBenchmark,
		benchmarkTable: DefaultBenchmarkTable,
		returnTables:   DefaultReturnTables,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DB) Connect() error {
	db, err := sql.Open("duckdb", d.dataSourceName)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	d.db = db
	return nil
}

func (d *DB) Close() {
	_ = d.db.Close()
}

// Handle exposes the underlying pool for collaborators that manage their own
// tables, such as the model version registry.
func (d *DB) Handle() *sql.DB {
	return d.db
}

// EnsureSchema creates the tables this core owns. The analysis and return
// tables belong to the upstream transformation layer and are never created
// here.
func (d *DB) EnsureSchema(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS backtest_evaluation_results (
		backtest_date         DATE NOT NULL,
		model_provider        VARCHAR NOT NULL,
		model_name            VARCHAR NOT NULL,
		personality           VARCHAR NOT NULL,
		run_id                VARCHAR NOT NULL,
		evaluation_timestamp  TIMESTAMP NOT NULL,
		total_recommendations INTEGER NOT NULL,
		hits_1m               INTEGER, misses_1m INTEGER, accuracy_1m DOUBLE,
		hits_3m               INTEGER, misses_3m INTEGER, accuracy_3m DOUBLE,
		hits_6m               INTEGER, misses_6m INTEGER, accuracy_6m DOUBLE,
		avg_outperformance_1m DOUBLE,
		avg_outperformance_3m DOUBLE,
		avg_outperformance_6m DOUBLE,
		evaluation_details    JSON
	)`

	if _, err := d.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create backtest_evaluation_results: %w", err)
	}
	return nil
}
