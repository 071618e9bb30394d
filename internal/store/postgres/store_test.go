package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storepkg "foodexplorer/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStoreWithDB(db), mock
}

func TestGet_ReturnsValue(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`select value from durable_storage where key = $1`)).
		WithArgs("food_explorer_cart").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`{"items":[],"orders":[]}`))

	got, err := store.Get(context.Background(), "food_explorer_cart")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[],"orders":[]}`, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_MissingKeyIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`select value from durable_storage where key = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storepkg.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSet_Upserts(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`insert into durable_storage(key, value, updated_at)`)).
		WithArgs("k", "v").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Set(context.Background(), "k", "v"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSet_MissingSchemaIsReported(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`insert into durable_storage`)).
		WithArgs("k", "v").
		WillReturnError(&pq.Error{Code: undefinedTable, Message: "relation does not exist"})

	err := store.Set(context.Background(), "k", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema missing")

	var pqErr *pq.Error
	assert.True(t, errors.As(err, &pqErr))
}

func TestDelete(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`delete from durable_storage where key = $1`)).
		WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
