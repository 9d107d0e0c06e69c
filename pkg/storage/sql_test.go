package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLStoreMock(t *testing.T) (*SQLStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	store := NewSQLStore(sqlx.NewDb(db, "postgres"), "ns")
	store.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	cleanup := func() {
		_ = store.Close()
	}
	return store, mock, cleanup
}

func TestSQLStoreGetRebindsForPostgres(t *testing.T) {
	store, mock, cleanup := newSQLStoreMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT payload FROM kv_entries WHERE namespace = $1 AND entry_key = $2`)).
		WithArgs("ns", "subjects").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(`[]`))

	got, err := store.Get(context.Background(), "subjects")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreGetMissing(t *testing.T) {
	store, mock, cleanup := newSQLStoreMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT payload FROM kv_entries`)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "subjects")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStoreSetUpserts(t *testing.T) {
	store, mock, cleanup := newSQLStoreMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO kv_entries (namespace, entry_key, payload, updated_at) VALUES ($1, $2, $3, $4)`)).
		WithArgs("ns", "calendar_events", `{}`, store.now().UTC()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Set(context.Background(), "calendar_events", []byte(`{}`)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreWrapsFailures(t *testing.T) {
	store, mock, cleanup := newSQLStoreMock(t)
	defer cleanup()

	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM kv_entries`)).
		WithArgs("ns", "subjects").
		WillReturnError(boom)

	err := store.Remove(context.Background(), "subjects")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
