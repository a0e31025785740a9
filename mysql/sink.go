package mysql

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"

	"dbcopy/internal"
)

// sink receives the statements a pipeline issues against its target.
type sink interface {
	exec(ctx context.Context, query string, args ...any) error
	close() error
}

// connSink runs statements on a single target connection so session
// settings such as FOREIGN_KEY_CHECKS hold for the whole table.
type connSink struct {
	conn *sql.Conn
}

func acquireConn(ctx context.Context, db *sql.DB) (*connSink, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, &ConnectionError{Op: "acquire target connection", Err: err}
	}
	return &connSink{conn: conn}, nil
}

func (s *connSink) exec(ctx context.Context, query string, args ...any) error {
	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return classify("execute", query, err)
	}
	return nil
}

func (s *connSink) close() error {
	return s.conn.Close()
}

// fileSink renders statements with their arguments inlined into a SQL
// script instead of executing them.
type fileSink struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

func createFileSink(path string) (*fileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &fileSink{path: path, f: f, w: bufio.NewWriterSize(f, 1<<16)}, nil
}

func (s *fileSink) exec(_ context.Context, query string, args ...any) error {
	stmt, err := interpolate(query, args...)
	if err != nil {
		return err
	}
	if _, err := s.w.WriteString(stmt); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	if _, err := s.w.WriteString(";\n"); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

func (s *fileSink) close() error {
	flushErr := s.w.Flush()
	closeErr := s.f.Close()
	if flushErr != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", s.path, closeErr)
	}
	internal.Logger.Debug("Output file written", "file", s.path)
	return nil
}
