package database

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestRunInTxCommits(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	var sawTx bool
	err := NewTransactor(db).RunInTx(context.Background(), func(ctx context.Context) error {
		_, sawTx = TxFrom(ctx)
		_, isTx := Conn(ctx, db).(*sqlx.Tx)
		assert.True(t, isTx)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, sawTx)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := NewTransactor(db).RunInTx(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTxJoinsOuterTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	tr := NewTransactor(db)
	err := tr.RunInTx(context.Background(), func(ctx context.Context) error {
		return tr.RunInTx(ctx, func(context.Context) error { return nil })
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnWithoutTxUsesDB(t *testing.T) {
	db, _ := newMockDB(t)
	_, isDB := Conn(context.Background(), db).(*sqlx.DB)
	assert.True(t, isDB)
}
