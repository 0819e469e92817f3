package database

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementsCoverEveryTable(t *testing.T) {
	stmts := Statements()
	require.Len(t, stmts, 7)
	for i, want := range []string{"cities", "stops", "buses", "seats", "trips", "trip_legs", "tickets"} {
		assert.True(t, strings.HasPrefix(stmts[i], "CREATE TABLE IF NOT EXISTS "+want+" "), "statement %d", i)
	}
}

func TestTicketsUniqueOnActiveSeat(t *testing.T) {
	stmts := Statements()
	tickets := stmts[len(stmts)-1]
	assert.Contains(t, tickets, "UNIQUE KEY uq_tickets_active_seat (trip_id, seat_id, active_flag)")
	assert.Contains(t, tickets, "IF(status = 'cancelled', NULL, 1)")
}

func TestMigrateStopsOnFirstError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS cities")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS stops")).
		WillReturnError(assert.AnError)

	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema statement 2")
	require.NoError(t, mock.ExpectationsWereMet())
}
