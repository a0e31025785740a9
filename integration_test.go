package main

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbcopy/config"
	"dbcopy/mysql"
)

const integrationConfig = `
source:
  dsn: "root:secret@tcp(source:3306)/shop"
target:
  dsn: "root:secret@tcp(target:3306)/shop_staging"
concurrency: 2
migrate:
  tables:
    users:
      batch_size: 2
      transformers:
        email:
          replace: "user@example.com"
        password_hash: nullify
        profile:
          merge: {migrated: true, address: {country: null}}
    audit_log:
      skip_data: true
`

type jsonEq string

func (j jsonEq) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	var want, got any
	if json.Unmarshal([]byte(j), &want) != nil || json.Unmarshal([]byte(s), &got) != nil {
		return false
	}
	return reflect.DeepEqual(want, got)
}

// Tests that a YAML config drives the migrator end to end.
func TestConfigDrivenMigration(t *testing.T) {
	cfg, err := config.LoadConfig(strings.NewReader(integrationConfig))
	require.NoError(t, err)

	source, sourceMock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer source.Close()
	target, targetMock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer target.Close()
	ok := sqlmock.NewResult(0, 0)

	usersDDL := "CREATE TABLE `users` (`id` bigint unsigned, `email` varchar(255), `password_hash` binary(32), `profile` json)"
	targetMock.ExpectExec("SET FOREIGN_KEY_CHECKS=0").WillReturnResult(ok)
	targetMock.ExpectExec("DROP TABLE IF EXISTS `users`").WillReturnResult(ok)
	sourceMock.ExpectQuery("SHOW CREATE TABLE `users`").
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).AddRow("users", usersDDL))
	targetMock.ExpectExec(usersDDL).WillReturnResult(ok)
	sourceMock.ExpectQuery("SELECT `COLUMN_NAME` FROM `INFORMATION_SCHEMA`.`COLUMNS` WHERE `TABLE_SCHEMA` = DATABASE() AND `TABLE_NAME` = ? ORDER BY `ORDINAL_POSITION`").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).
			AddRow("id").AddRow("email").AddRow("password_hash").AddRow("profile"))
	sourceMock.ExpectQuery("SELECT * FROM `users`").WillReturnRows(
		sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("id").OfType("UNSIGNED BIGINT", uint64(0)),
			sqlmock.NewColumn("email").OfType("VARCHAR", ""),
			sqlmock.NewColumn("password_hash").OfType("BINARY", []byte{}),
			sqlmock.NewColumn("profile").OfType("JSON", ""),
		).
			AddRow([]byte("1"), []byte("ann@corp.test"), []byte{0xde, 0xad}, []byte(`{"name":"Ann","address":{"country":"NZ","city":"Wellington"}}`)).
			AddRow([]byte("2"), []byte("bo@corp.test"), []byte{0xbe, 0xef}, nil).
			AddRow([]byte("3"), []byte("cy@corp.test"), []byte{0x00}, []byte(`{}`)),
	)
	targetMock.ExpectExec("INSERT INTO `users` (`id`, `email`, `password_hash`, `profile`) VALUES (?, ?, ?, ?), (?, ?, ?, ?)").
		WithArgs(
			uint64(1), "user@example.com", nil, jsonEq(`{"name":"Ann","migrated":true,"address":{"city":"Wellington"}}`),
			uint64(2), "user@example.com", nil, nil,
		).
		WillReturnResult(ok)
	targetMock.ExpectExec("INSERT INTO `users` (`id`, `email`, `password_hash`, `profile`) VALUES (?, ?, ?, ?)").
		WithArgs(uint64(3), "user@example.com", nil, jsonEq(`{"migrated":true,"address":{}}`)).
		WillReturnResult(ok)
	targetMock.ExpectExec("SET FOREIGN_KEY_CHECKS=1").WillReturnResult(ok)

	m := mysql.NewMigrator(source, target, cfg)
	m.Concurrency = 1
	report, err := m.Migrate(context.Background(), []string{"users"})
	require.NoError(t, err)
	require.NoError(t, report.Err())

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, int64(3), report.Outcomes[0].Rows)
	assert.Equal(t, 2, report.Outcomes[0].Batches)
	require.NoError(t, sourceMock.ExpectationsWereMet())
	require.NoError(t, targetMock.ExpectationsWereMet())

	assert.True(t, cfg.Table("audit_log").SkipData)
	assert.Equal(t, config.DefaultBatchSize, cfg.Table("orders").BatchSize)
}
