package uow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestDo_Commit(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	m := NewManager(db, 0)

	fnCalled := false
	err := m.Do(context.Background(), func(ctx context.Context) error {
		fnCalled = true
		assert.NotNil(t, GetTxFromContext(ctx))
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, fnCalled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDo_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	m := NewManager(db, 0)

	boom := errors.New("boom")
	err := m.Do(context.Background(), func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDo_RollbackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	m := NewManager(db, 0)

	assert.Panics(t, func() {
		m.Do(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDo_SetsLockTimeout(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout = '500ms'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	m := NewManager(db, 500*time.Millisecond)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		return nil
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDo_BeginError(t *testing.T) {
	db, mock := newMockDB(t)
	_ = mock

	// Close underlying db so Begin fails
	db.Close()

	m := NewManager(db, 0)
	err := m.Do(context.Background(), func(ctx context.Context) error {
		t.Fatal("fn must not run when Begin fails")
		return nil
	})
	assert.Error(t, err)
}

func TestGetTxFromContext_Missing(t *testing.T) {
	assert.Nil(t, GetTxFromContext(context.Background()))
}
