package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dbcopy/config"
	"dbcopy/internal"
	"dbcopy/transform"
	"dbcopy/value"
)

// Stage is a step of a table pipeline.
type Stage int

const (
	StageSchemaCopy Stage = iota
	StageColumnDiscovery
	StageStreaming
	StageFlush
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageSchemaCopy:
		return "schema copy"
	case StageColumnDiscovery:
		return "column discovery"
	case StageStreaming:
		return "streaming"
	case StageFlush:
		return "flush"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Outcome is the result of one table's pipeline. When Err is set, Stage is
// the stage that failed and Rows counts the rows committed before it.
type Outcome struct {
	Table    string
	Stage    Stage
	Rows     int64
	Batches  int
	Outfile  string
	Duration time.Duration
	Err      error
}

func (o Outcome) OK() bool { return o.Err == nil }

// Pipeline copies one table: schema, then rows in batches.
type Pipeline struct {
	source  *sql.DB
	target  *sql.DB
	table   string
	cfg     config.TableConfig
	decoder *value.Decoder
	log     *slog.Logger
}

func NewPipeline(source, target *sql.DB, table string, cfg config.TableConfig, decoder *value.Decoder) *Pipeline {
	if decoder == nil {
		decoder = value.NewDecoder()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = config.DefaultBatchSize
	}
	return &Pipeline{
		source:  source,
		target:  target,
		table:   table,
		cfg:     cfg,
		decoder: decoder,
		log:     internal.Logger.With("table", table),
	}
}

// Run executes the pipeline to completion or to its first failure. Batches
// inserted before a failure stay in the target.
func (p *Pipeline) Run(ctx context.Context) Outcome {
	start := time.Now()
	out := Outcome{Table: p.table, Outfile: p.cfg.Outfile}

	p.log.Info("Migrating table", "batchSize", p.cfg.BatchSize, "skipData", p.cfg.SkipData, "outfile", p.cfg.Outfile)

	out.Err = p.run(ctx, &out)
	out.Duration = time.Since(start)

	if out.Err != nil {
		p.log.Error("Table migration failed", "stage", out.Stage, "rows", out.Rows, "error", out.Err)
		return out
	}
	p.log.Info("Table migration completed", "rows", out.Rows, "batches", out.Batches, "duration", out.Duration)
	return out
}

func (p *Pipeline) run(ctx context.Context, out *Outcome) (err error) {
	out.Stage = StageSchemaCopy

	s, err := p.openSink(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := p.release(ctx, s); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()

	if err := p.copySchema(ctx, s); err != nil {
		return err
	}
	if p.cfg.SkipData {
		out.Stage = StageDone
		return nil
	}

	out.Stage = StageColumnDiscovery
	columns, err := tableColumns(ctx, p.source, p.table)
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return fmt.Errorf("%w: no columns found for table %s", ErrColumnMismatch, p.table)
	}

	out.Stage = StageStreaming
	if err := p.copyRows(ctx, s, columns, out); err != nil {
		return err
	}

	out.Stage = StageDone
	return nil
}

func (p *Pipeline) openSink(ctx context.Context) (sink, error) {
	if p.cfg.Outfile != "" {
		return createFileSink(p.cfg.Outfile)
	}
	return acquireConn(ctx, p.target)
}

// release re-enables foreign key checks on the session and returns it.
func (p *Pipeline) release(ctx context.Context, s sink) error {
	if err := s.exec(context.WithoutCancel(ctx), enableForeignKeyChecks); err != nil {
		p.log.Warn("Failed to re-enable foreign key checks", "error", err)
	}
	return s.close()
}

func (p *Pipeline) copySchema(ctx context.Context, s sink) error {
	if err := s.exec(ctx, disableForeignKeyChecks); err != nil {
		return err
	}
	if err := s.exec(ctx, dropTable(p.table)); err != nil {
		return err
	}

	ddl, err := createStatement(ctx, p.source, p.table)
	if err != nil {
		return err
	}
	p.log.Debug("Creating table", "query", ddl)
	return s.exec(ctx, ddl)
}

func (p *Pipeline) copyRows(ctx context.Context, s sink, columns []string, out *Outcome) error {
	query := selectAll(p.table)

	streamCtx, cancel := context.WithCancel(ctx)
	rows, err := p.source.QueryContext(streamCtx, query)
	if err != nil {
		cancel()
		return classify("select rows", query, err)
	}
	// cancel first so an aborted stream is not drained
	defer func() {
		cancel()
		rows.Close()
	}()

	types, err := rows.ColumnTypes()
	if err != nil {
		return classify("select rows", query, err)
	}
	if len(types) != len(columns) {
		return fmt.Errorf("%w: select returned %d columns, schema lists %d", ErrColumnMismatch, len(types), len(columns))
	}
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = t.DatabaseTypeName()
	}

	transformers, loggers := p.columnTransformers(columns)
	inserts := newInsertBuilder(p.table, columns)
	batch := newRowBatch(p.cfg.BatchSize, len(columns))

	cells := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range cells {
		dest[i] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return classify("scan row", query, err)
		}

		row := batch.next()
		for i, raw := range cells {
			v, err := p.decoder.Decode(raw, typeNames[i])
			if err != nil {
				return fmt.Errorf("column %s: %w", columns[i], err)
			}
			if transformers[i] != nil {
				v = transformers[i].ApplyLogged(v, loggers[i])
			}
			row[i] = v
		}

		if batch.full() {
			if err := p.flush(ctx, s, inserts, batch, out); err != nil {
				return err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return classify("select rows", query, err)
	}

	out.Stage = StageFlush
	if batch.len() > 0 {
		return p.flush(ctx, s, inserts, batch, out)
	}
	return nil
}

func (p *Pipeline) flush(ctx context.Context, s sink, inserts *insertBuilder, batch *rowBatch, out *Outcome) error {
	n := batch.len()
	if err := s.exec(ctx, inserts.statement(n), batch.bind()...); err != nil {
		return err
	}
	batch.reset()

	out.Rows += int64(n)
	out.Batches++
	p.log.Debug("Inserted batch", "rows", n, "total", out.Rows)
	return nil
}

// columnTransformers aligns the configured transformers with columns.
func (p *Pipeline) columnTransformers(columns []string) ([]*transform.Transformer, []*slog.Logger) {
	transformers := make([]*transform.Transformer, len(columns))
	loggers := make([]*slog.Logger, len(columns))
	found := make(map[string]bool, len(p.cfg.Transformers))

	for i, column := range columns {
		tr, ok := p.cfg.Transformers[column]
		if !ok {
			continue
		}
		transformers[i] = &tr
		loggers[i] = p.log.With("column", column)
		found[column] = true
	}
	for column := range p.cfg.Transformers {
		if !found[column] {
			p.log.Warn("Transformer configured for unknown column", "column", column)
		}
	}
	return transformers, loggers
}

// IsPartial reports whether a failed outcome left rows in the target.
func (o Outcome) IsPartial() bool {
	return o.Err != nil && o.Rows > 0
}

// Cause returns a one-line description of the failure.
func (o Outcome) Cause() string {
	if o.Err == nil {
		return ""
	}
	var (
		unsupported *value.UnsupportedTypeError
		decodeErr   *value.DecodeError
		connErr     *ConnectionError
		stmtErr     *StatementError
	)
	kind := "error"
	switch {
	case errors.As(o.Err, &unsupported):
		kind = "unsupported type"
	case errors.As(o.Err, &decodeErr), errors.Is(o.Err, ErrColumnMismatch):
		kind = "decode error"
	case errors.As(o.Err, &connErr):
		kind = "connection error"
	case errors.As(o.Err, &stmtErr):
		kind = "statement error"
	}
	return fmt.Sprintf("%s during %s: %v", kind, o.Stage, o.Err)
}
