package mysql

import (
	"context"
	"database/sql"
	"strings"
)

const (
	showBaseTables = "SHOW FULL TABLES WHERE `Table_type` = 'BASE TABLE'"

	selectColumns = "SELECT `COLUMN_NAME` FROM `INFORMATION_SCHEMA`.`COLUMNS` WHERE `TABLE_SCHEMA` = DATABASE() AND `TABLE_NAME` = ? ORDER BY `ORDINAL_POSITION`"

	disableForeignKeyChecks = "SET FOREIGN_KEY_CHECKS=0"
	enableForeignKeyChecks  = "SET FOREIGN_KEY_CHECKS=1"
)

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// ListTables returns the base tables of the database db is connected to.
// Views are left out since their rows belong to other tables.
func ListTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, showBaseTables)
	if err != nil {
		return nil, classify("list tables", showBaseTables, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var table, kind string
		if err := rows.Scan(&table, &kind); err != nil {
			return nil, classify("list tables", showBaseTables, err)
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list tables", showBaseTables, err)
	}
	return tables, nil
}

func showCreateTable(table string) string {
	return "SHOW CREATE TABLE " + quoteIdent(table)
}

func dropTable(table string) string {
	return "DROP TABLE IF EXISTS " + quoteIdent(table)
}

func selectAll(table string) string {
	return "SELECT * FROM " + quoteIdent(table)
}

// createStatement returns the source's CREATE TABLE statement for table.
func createStatement(ctx context.Context, db *sql.DB, table string) (string, error) {
	query := showCreateTable(table)
	var name, ddl string
	if err := db.QueryRowContext(ctx, query).Scan(&name, &ddl); err != nil {
		return "", classify("read create statement", query, err)
	}
	return ddl, nil
}

// tableColumns returns the column names of table in ordinal order.
func tableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, selectColumns, table)
	if err != nil {
		return nil, classify("read columns", selectColumns, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return nil, classify("read columns", selectColumns, err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("read columns", selectColumns, err)
	}
	return columns, nil
}
