package mysql

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func ok() driver.Result { return sqlmock.NewResult(0, 0) }

// expectSchemaCopy registers the statements that recreate table on target.
func expectSchemaCopy(source, target sqlmock.Sqlmock, table, ddl string) {
	target.ExpectExec("SET FOREIGN_KEY_CHECKS=0").WillReturnResult(ok())
	target.ExpectExec("DROP TABLE IF EXISTS `" + table + "`").WillReturnResult(ok())
	source.ExpectQuery("SHOW CREATE TABLE `" + table + "`").
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).AddRow(table, ddl))
	target.ExpectExec(ddl).WillReturnResult(ok())
}

func expectColumns(source sqlmock.Sqlmock, table string, columns ...string) {
	rows := sqlmock.NewRows([]string{"COLUMN_NAME"})
	for _, c := range columns {
		rows.AddRow(c)
	}
	source.ExpectQuery(selectColumns).WithArgs(table).WillReturnRows(rows)
}

func expectRelease(target sqlmock.Sqlmock) {
	target.ExpectExec("SET FOREIGN_KEY_CHECKS=1").WillReturnResult(ok())
}

// jsonArg matches a string argument holding JSON equal to the expected text.
type jsonArg string

func (j jsonArg) Match(v driver.Value) bool {
	s, isString := v.(string)
	if !isString {
		return false
	}
	var want, got any
	if err := json.Unmarshal([]byte(j), &want); err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(s), &got); err != nil {
		return false
	}
	return reflect.DeepEqual(want, got)
}

func intTable(values ...int64) *sqlmock.Rows {
	rows := sqlmock.NewRowsWithColumnDefinition(sqlmock.NewColumn("id").OfType("INT", int64(0)))
	for _, v := range values {
		rows.AddRow(v)
	}
	return rows
}
