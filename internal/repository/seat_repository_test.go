package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatLabel(t *testing.T) {
	assert.Equal(t, "A1", SeatLabel(0, 0))
	assert.Equal(t, "B1", SeatLabel(0, 1))
	assert.Equal(t, "A2", SeatLabel(1, 0))
	assert.Equal(t, "Z10", SeatLabel(9, 25))
}

func TestOccupiedSeatIDs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSeatRepo(db)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("status = 'pending' AND (expires_at IS NULL OR expires_at > ?)")).
		WithArgs(4, now).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow(1).AddRow(3))

	ids, err := repo.OccupiedSeatIDs(context.Background(), 4, now)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupiedSeatIDsNoneIsEmptyNotNil(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT seat_id FROM tickets").WillReturnRows(sqlmock.NewRows([]string{"seat_id"}))

	ids, err := NewSeatRepo(db).OccupiedSeatIDs(context.Background(), 4, time.Now())
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestCreateLayoutLabelsSeats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSeatRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM buses WHERE id = ? FOR UPDATE")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM seats WHERE bus_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO seats (bus_id, seat_row, seat_col, label) VALUES")).
		WithArgs(2, 0, 0, "A1", 2, 0, 1, "B1", 2, 1, 0, "A2", 2, 1, 1, "B2").
		WillReturnResult(sqlmock.NewResult(40, 4))
	mock.ExpectCommit()

	seats, err := repo.CreateLayout(context.Background(), 2, 2, 2)
	require.NoError(t, err)
	require.Len(t, seats, 4)
	assert.Equal(t, "A1", seats[0].Label)
	assert.Equal(t, uint64(40), seats[0].ID)
	assert.Equal(t, "B2", seats[3].Label)
	assert.Equal(t, uint64(43), seats[3].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLayoutRefusesSecondLayout(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM buses").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(12))
	mock.ExpectRollback()

	_, err := NewSeatRepo(db).CreateLayout(context.Background(), 2, 3, 4)
	assert.ErrorIs(t, err, ErrLayoutExists)
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLayoutBounds(t *testing.T) {
	db, _ := newMock(t)
	repo := NewSeatRepo(db)
	for _, rc := range [][2]int{{0, 4}, {4, 0}, {27, 1}, {1, 27}} {
		_, err := repo.CreateLayout(context.Background(), 1, rc[0], rc[1])
		assert.ErrorIs(t, err, ErrInvalidLayout)
	}
}

func TestDeleteSeatInUse(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tickets WHERE seat_id = ?")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	err := NewSeatRepo(db).DeleteSeat(context.Background(), 9)
	assert.ErrorIs(t, err, ErrSeatInUse)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSeat(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM seats WHERE id = ?")).WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewSeatRepo(db).DeleteSeat(context.Background(), 9))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSeatMissing(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("DELETE FROM seats").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, NewSeatRepo(db).DeleteSeat(context.Background(), 9), ErrSeatNotFound)
}
