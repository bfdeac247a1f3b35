package store

import (
	"context"
	"math/big"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entitysql/internal/instrument"
	"entitysql/internal/metadata"
	"entitysql/internal/sqlgen"
)

type Account struct {
	ID      *big.Int
	Email   string
	Balance int64
	Active  bool
}

type staticIDs struct{ next int64 }

func (s *staticIDs) NextBig() *big.Int {
	s.next++
	return big.NewInt(s.next)
}

func (s *staticIDs) NextBase36() string {
	s.next++
	return big.NewInt(s.next).Text(36)
}

func newMockDao(t *testing.T) (*Dao[Account], sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := metadata.NewRegistry(metadata.Identity)
	require.NoError(t, reg.Register(Account{}, metadata.TypeConfig{
		SQLName: "accounts",
		Fields:  map[string]metadata.FieldConfig{"ID": {Identity: true}},
	}))
	dao, err := NewDao[Account](NewWithDB(db, &PostgresDialect{}), sqlgen.New(reg, &staticIDs{next: 41}))
	require.NoError(t, err)
	return dao, mock
}

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "balance", "active"})
}

func TestDaoInsertAssignsIdentity(t *testing.T) {
	dao, mock := newMockDao(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO accounts (id,email,balance,active) VALUES ($1,$2,$3,$4)").
		WithArgs("42", "a@b.c", int64(10), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	acct := &Account{Email: "a@b.c", Balance: 10, Active: true}
	n, err := dao.Insert(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, big.NewInt(42), acct.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDaoInsertUniqueViolation(t *testing.T) {
	dao, mock := newMockDao(t)

	mock.ExpectExec("INSERT INTO accounts (id,email,balance,active) VALUES ($1,$2,$3,$4)").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := dao.Insert(context.Background(), &Account{ID: big.NewInt(7)})
	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDaoGet(t *testing.T) {
	dao, mock := newMockDao(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id,email,balance,active FROM accounts WHERE id=$1").
		WithArgs("42").
		WillReturnRows(accountRows().AddRow("42", "a@b.c", int64(10), true))
	mock.ExpectQuery("SELECT id,email,balance,active FROM accounts WHERE id=$1").
		WithArgs("43").
		WillReturnRows(accountRows())

	acct, err := dao.Get(ctx, big.NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, &Account{ID: big.NewInt(42), Email: "a@b.c", Balance: 10, Active: true}, acct)

	_, err = dao.Get(ctx, big.NewInt(43))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = dao.Get(ctx, 1, 2)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDaoUpdate(t *testing.T) {
	dao, mock := newMockDao(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE accounts SET email=$1,balance=$2,active=$3 WHERE id=$4").
		WithArgs("new@b.c", int64(5), false, "9").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE accounts SET email=$1 WHERE id=$2").
		WithArgs("only@b.c", "9").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := dao.Update(ctx, &Account{ID: big.NewInt(9), Email: "new@b.c", Balance: 5})
	require.NoError(t, err)

	_, err = dao.UpdateByConfig(ctx, &Account{ID: big.NewInt(9), Email: "only@b.c"}, true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDaoBatch(t *testing.T) {
	dao, mock := newMockDao(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id,email,balance,active FROM accounts WHERE id IN ($1,$2)").
		WithArgs("1", "2").
		WillReturnRows(accountRows().AddRow("1", "x", int64(0), false).AddRow("2", "y", int64(0), false))
	mock.ExpectExec("DELETE FROM accounts WHERE id IN ($1,$2)").
		WithArgs("1", "2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	items, err := dao.GetBatch(ctx, []any{big.NewInt(1)}, []any{big.NewInt(2)})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "y", items[1].Email)

	n, err := dao.DeleteBatch(ctx, []any{big.NewInt(1)}, []any{big.NewInt(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = dao.DeleteBatch(ctx, []any{1, 2})
	assert.ErrorContains(t, err, "key 0 has 2 values, want 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDaoDelete(t *testing.T) {
	dao, mock := newMockDao(t)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM accounts WHERE id=$1").
		WithArgs("3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM accounts WHERE id=$1").
		WithArgs("4").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM accounts WHERE 1=1 AND active = $1").
		WithArgs(false).
		WillReturnResult(sqlmock.NewResult(0, 6))

	n, err := dao.Delete(ctx, &Account{ID: big.NewInt(3)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = dao.DeleteByID(ctx, big.NewInt(4))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = dao.DeleteWhere(ctx, "AND active = ?", false)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDaoCountAndPage(t *testing.T) {
	dao, mock := newMockDao(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT(*) FROM accounts WHERE 1=1 AND balance > $1").
		WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery("SELECT COUNT(*) FROM (SELECT id,email,balance,active FROM accounts WHERE 1=1 AND active = $1) _TOTAL_").
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(5)))
	mock.ExpectQuery("SELECT id,email,balance,active FROM accounts WHERE 1=1 AND active = $1 LIMIT 2 OFFSET 0").
		WithArgs(true).
		WillReturnRows(accountRows().AddRow("1", "x", int64(0), true).AddRow("2", "y", int64(0), true))

	n, err := dao.Count(ctx, "AND balance > ?", int64(100))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	page, err := dao.Page(ctx, 2, 0, "AND active = ?", true)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDaoRejectsUnusableType(t *testing.T) {
	reg := metadata.NewRegistry(metadata.Identity)
	_, err := NewDao[struct{ hidden int }](NewWithDB(nil, &PostgresDialect{}), sqlgen.New(reg, nil))
	assert.ErrorIs(t, err, metadata.ErrConfiguration)
}

func TestDaoRecordsStatements(t *testing.T) {
	dao, mock := newMockDao(t)
	ctx := context.Background()

	var got []instrument.Event
	buf := instrument.NewEventBuffer(func(_ context.Context, batch []instrument.Event) error {
		got = append(got, batch...)
		return nil
	}, 100, 0)
	dao.WithRecorder(buf)

	mock.ExpectExec("DELETE FROM accounts WHERE id=$1").
		WithArgs("3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id,email,balance,active FROM accounts WHERE 1=1").
		WillReturnRows(accountRows().AddRow("1", "x", int64(0), false))
	mock.ExpectExec("DELETE FROM accounts WHERE 1=1").
		WillReturnError(context.DeadlineExceeded)

	_, err := dao.DeleteByID(ctx, big.NewInt(3))
	require.NoError(t, err)
	_, err = dao.List(ctx, "")
	require.NoError(t, err)
	_, err = dao.DeleteWhere(ctx, "")
	require.Error(t, err)

	buf.Stop()
	require.Len(t, got, 3)
	assert.Equal(t, "Account", got[0].Entity)
	assert.Equal(t, "delete", got[0].Action)
	assert.Equal(t, int64(1), got[0].Rows)
	assert.Equal(t, "select", got[1].Action)
	assert.Equal(t, instrument.StatusOK, got[1].Status)
	assert.Equal(t, instrument.StatusError, got[2].Status)
	assert.Contains(t, got[2].Error, "deadline exceeded")
	assert.NoError(t, mock.ExpectationsWereMet())
}
