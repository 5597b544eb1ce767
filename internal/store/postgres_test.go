package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresSlot) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresSlot(db)
}

var (
	lockSQL   = regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtext($1))`)
	selectSQL = regexp.QuoteMeta(`SELECT payload FROM record_slots WHERE slot_key = $1`)
	upsertSQL = `INSERT INTO record_slots`
)

func TestPostgresSlot_EnsureSchema(t *testing.T) {
	db, mock, slot := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS record_slots`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, slot.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSlot_LoadMiss(t *testing.T) {
	db, mock, slot := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(selectSQL).WithArgs("patients").WillReturnError(sql.ErrNoRows)

	_, err := slot.Load(context.Background(), "patients")
	assert.ErrorIs(t, err, ErrMiss)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSlot_LoadSuccess(t *testing.T) {
	db, mock, slot := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(selectSQL).WithArgs("patients").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(`[]`)))

	got, err := slot.Load(context.Background(), "patients")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSlot_UpdateFirstWrite(t *testing.T) {
	db, mock, slot := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WithArgs("patients").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectSQL).WithArgs("patients").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(upsertSQL).WithArgs("patients", `["a"]`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := slot.Update(context.Background(), "patients", func(cur []byte) ([]byte, error) {
		assert.Nil(t, cur)
		return []byte(`["a"]`), nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSlot_UpdateExisting(t *testing.T) {
	db, mock, slot := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WithArgs("patients").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectSQL).WithArgs("patients").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(`["a"]`)))
	mock.ExpectExec(upsertSQL).WithArgs("patients", `["a","b"]`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := slot.Update(context.Background(), "patients", func(cur []byte) ([]byte, error) {
		assert.Equal(t, `["a"]`, string(cur))
		return []byte(`["a","b"]`), nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSlot_UpdateFnErrorRollsBack(t *testing.T) {
	db, mock, slot := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WithArgs("patients").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectSQL).WithArgs("patients").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := slot.Update(context.Background(), "patients", func([]byte) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
