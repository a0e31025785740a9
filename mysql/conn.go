package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"dbcopy/internal"
)

// Open returns a pool of at most maxConns connections for dsn. Times are
// parsed and written in UTC, and statement arguments are interpolated
// client side so multi-row inserts are not bound by the server's
// placeholder limit.
func Open(dsn string, maxConns int) (*sql.DB, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.InterpolateParams = true

	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	internal.Logger.Debug("Opened connection pool", "host", cfg.Addr, "database", cfg.DBName, "maxConnections", maxConns)
	return db, nil
}

// Connect is Open followed by a ping.
func Connect(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	db, err := Open(dsn, maxConns)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &ConnectionError{Op: "ping", Err: err}
	}
	return db, nil
}

const selectDatabaseCharset = "SELECT `DEFAULT_CHARACTER_SET_NAME`, `DEFAULT_COLLATION_NAME` FROM `INFORMATION_SCHEMA`.`SCHEMATA` WHERE `SCHEMA_NAME` = DATABASE()"

// DatabaseCharset returns the default character set and collation of the
// database db is connected to.
func DatabaseCharset(ctx context.Context, db *sql.DB) (charset, collation string, err error) {
	err = db.QueryRowContext(ctx, selectDatabaseCharset).Scan(&charset, &collation)
	if err != nil {
		return "", "", classify("read database charset", selectDatabaseCharset, err)
	}
	return charset, collation, nil
}

// RecreateDatabase drops the database named in dsn and creates it again,
// empty, with the given character set and collation (either may be blank).
func RecreateDatabase(ctx context.Context, dsn, charset, collation string) error {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return fmt.Errorf("invalid dsn: %w", err)
	}
	name := cfg.DBName
	cfg.DBName = ""

	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return fmt.Errorf("failed to create connector: %w", err)
	}
	db := sql.OpenDB(connector)
	defer db.Close()

	return recreateDatabase(ctx, db, name, charset, collation)
}

func recreateDatabase(ctx context.Context, db *sql.DB, name, charset, collation string) error {
	if name == "" {
		return fmt.Errorf("failed to recreate database: no database name")
	}

	create := "CREATE DATABASE " + quoteIdent(name)
	if charset != "" {
		create += " CHARACTER SET " + charset
	}
	if collation != "" {
		create += " COLLATE " + collation
	}

	for _, query := range []string{"DROP DATABASE IF EXISTS " + quoteIdent(name), create} {
		internal.Logger.Debug("Executing statement", "query", query)
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to recreate database: %w", classify("recreate database", query, err))
		}
	}
	return nil
}
