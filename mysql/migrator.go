package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dbcopy/config"
	"dbcopy/internal"
	"dbcopy/value"
)

// TableConfigs resolves the configuration for a table. *config.Config
// implements it.
type TableConfigs interface {
	Table(name string) config.TableConfig
}

type runFunc func(ctx context.Context, table string, cfg config.TableConfig) Outcome

// Migrator copies a set of tables from Source to Target, one pipeline per
// table, all running at once. Parallelism is bounded by the connection
// pools and, when Concurrency is positive, by Concurrency.
type Migrator struct {
	Source      *sql.DB
	Target      *sql.DB
	Tables      TableConfigs
	Decoder     *value.Decoder
	Concurrency int

	// SchemaOnly skips data for every table regardless of its configuration.
	SchemaOnly bool

	// OnOutcome, if set, is called as each table finishes. Calls are
	// serialized.
	OnOutcome func(Outcome)

	run runFunc
}

func NewMigrator(source, target *sql.DB, tables TableConfigs) *Migrator {
	return &Migrator{
		Source:  source,
		Target:  target,
		Tables:  tables,
		Decoder: value.NewDecoder(),
	}
}

// Migrate runs a pipeline for every table, or for every base table of the
// source when tables is empty, and waits for all of them. A failing table
// never stops the others; each table's result is in the Report. The error
// is only set when the table list could not be read.
func (m *Migrator) Migrate(ctx context.Context, tables []string) (*Report, error) {
	start := time.Now()
	if len(tables) == 0 {
		var err error
		if tables, err = ListTables(ctx, m.Source); err != nil {
			return nil, fmt.Errorf("failed to get table list: %w", err)
		}
		internal.Logger.Debug("Found tables to migrate", "count", len(tables), "tables", tables)
	}

	run := m.run
	if run == nil {
		run = m.runPipeline
	}

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	if m.Concurrency > 0 {
		g.SetLimit(m.Concurrency)
	}

	outcomes := make([]Outcome, len(tables))
	for i, table := range tables {
		cfg := m.tableConfig(table)
		g.Go(func() error {
			outcomes[i] = runIsolated(ctx, run, table, cfg)
			if m.OnOutcome != nil {
				mu.Lock()
				m.OnOutcome(outcomes[i])
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{Outcomes: outcomes, Duration: time.Since(start)}
	internal.Logger.Info("Migration finished",
		"tables", len(outcomes),
		"failed", len(report.Failed()),
		"rows", report.Rows(),
		"duration", report.Duration)
	return report, nil
}

func (m *Migrator) tableConfig(table string) config.TableConfig {
	cfg := config.DefaultTableConfig()
	if m.Tables != nil {
		cfg = m.Tables.Table(table)
	}
	if m.SchemaOnly {
		cfg.SkipData = true
	}
	return cfg
}

func (m *Migrator) runPipeline(ctx context.Context, table string, cfg config.TableConfig) Outcome {
	return NewPipeline(m.Source, m.Target, table, cfg, m.Decoder).Run(ctx)
}

// runIsolated turns a panic in one pipeline into that table's failure.
func runIsolated(ctx context.Context, run runFunc, table string, cfg config.TableConfig) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			internal.Logger.Error("Table migration panicked", "table", table, "panic", r)
			out = Outcome{Table: table, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return run(ctx, table, cfg)
}

// Report holds one Outcome per table, in the order the tables were given.
type Report struct {
	Outcomes []Outcome
	Duration time.Duration
}

func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

func (r *Report) Rows() int64 {
	var n int64
	for _, o := range r.Outcomes {
		n += o.Rows
	}
	return n
}

// Err joins the errors of every failed table, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, o := range r.Failed() {
		errs = append(errs, fmt.Errorf("table %s: %w", o.Table, o.Err))
	}
	return errors.Join(errs...)
}
