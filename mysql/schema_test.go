package mysql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`users`", quoteIdent("users"))
	assert.Equal(t, "`we``ird`", quoteIdent("we`ird"))
}

func TestListTables(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(showBaseTables).WillReturnRows(
		sqlmock.NewRows([]string{"Tables_in_app", "Table_type"}).
			AddRow("orders", "BASE TABLE").
			AddRow("users", "BASE TABLE"),
	)

	tables, err := ListTables(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, tables)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTableColumns(t *testing.T) {
	db, mock := newMock(t)
	expectColumns(mock, "users", "id", "email")

	columns, err := tableColumns(context.Background(), db, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "email"}, columns)
}

func TestCreateStatementError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SHOW CREATE TABLE `users`").WillReturnError(&gomysql.MySQLError{Number: 1146, Message: "Table 'app.users' doesn't exist"})

	_, err := createStatement(context.Background(), db, "users")

	var stmtErr *StatementError
	require.True(t, errors.As(err, &stmtErr))
	assert.Equal(t, uint16(1146), stmtErr.Code())
	assert.Equal(t, "SHOW CREATE TABLE `users`", stmtErr.Statement)
}

func TestClassify(t *testing.T) {
	var connErr *ConnectionError
	assert.True(t, errors.As(classify("execute", "SELECT 1", gomysql.ErrInvalidConn), &connErr))
	assert.True(t, errors.As(classify("execute", "SELECT 1", context.DeadlineExceeded), &connErr))

	var stmtErr *StatementError
	err := classify("execute", "INSERT INTO `t` VALUES "+string(make([]byte, 200)), errors.New("syntax"))
	require.True(t, errors.As(err, &stmtErr))
	assert.Len(t, stmtErr.Statement, maxStatementLen+3)
	assert.Zero(t, stmtErr.Code())
}

func TestRecreateDatabase(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("DROP DATABASE IF EXISTS `app`").WillReturnResult(ok())
	mock.ExpectExec("CREATE DATABASE `app` CHARACTER SET utf8mb4 COLLATE utf8mb4_0900_ai_ci").WillReturnResult(ok())

	require.NoError(t, recreateDatabase(context.Background(), db, "app", "utf8mb4", "utf8mb4_0900_ai_ci"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecreateDatabaseWithoutCharset(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("DROP DATABASE IF EXISTS `app`").WillReturnResult(ok())
	mock.ExpectExec("CREATE DATABASE `app`").WillReturnError(errors.New("access denied"))

	err := recreateDatabase(context.Background(), db, "app", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to recreate database")
}

func TestRecreateDatabaseRequiresName(t *testing.T) {
	db, _ := newMock(t)
	require.Error(t, recreateDatabase(context.Background(), db, "", "", ""))
}

func TestDatabaseCharset(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(selectDatabaseCharset).WillReturnRows(
		sqlmock.NewRows([]string{"DEFAULT_CHARACTER_SET_NAME", "DEFAULT_COLLATION_NAME"}).AddRow("latin1", "latin1_swedish_ci"),
	)

	charset, collation, err := DatabaseCharset(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, "latin1", charset)
	assert.Equal(t, "latin1_swedish_ci", collation)
}

func TestOpenRejectsBadDSN(t *testing.T) {
	_, err := Open("not a dsn", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid dsn")
}

func TestOpen(t *testing.T) {
	db, err := Open("user:pass@tcp(127.0.0.1:3306)/app", 4)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 4, db.Stats().MaxOpenConnections)
}
