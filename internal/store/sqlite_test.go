package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entitysql/internal/config"
	"entitysql/internal/idgen"
	"entitysql/internal/metadata"
	"entitysql/internal/sqlgen"
)

type Team struct {
	MyId        string
	YourId      string
	Name        string
	Description *string
	Score       float64
}

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		Path:   t.TempDir(),
		Name:   "entitysql_test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newSQLiteGenerator(t *testing.T) *sqlgen.Generator {
	t.Helper()
	reg := metadata.NewRegistry(metadata.UnderscoreUpper)
	require.NoError(t, reg.Register(Team{}, metadata.TypeConfig{
		Fields: map[string]metadata.FieldConfig{
			"MyId":   {Identity: true},
			"YourId": {Identity: true},
		},
	}))
	require.NoError(t, reg.Register(Account{}, metadata.TypeConfig{
		Fields: map[string]metadata.FieldConfig{"ID": {Identity: true}},
	}))
	ids := idgen.New(idgen.Options{
		Clock:     func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
		MachineID: idgen.FixedID(1),
		ProcessID: idgen.FixedID(2),
	})
	return sqlgen.New(reg, ids)
}

func TestCreateTableSQL(t *testing.T) {
	gen := newSQLiteGenerator(t)
	e, err := gen.Registry().Entity(Team{})
	require.NoError(t, err)

	assert.Equal(t, "CREATE TABLE IF NOT EXISTS TEAM (\n"+
		"\tMY_ID TEXT NOT NULL,\n"+
		"\tYOUR_ID TEXT NOT NULL,\n"+
		"\tNAME TEXT,\n"+
		"\tDESCRIPTION TEXT,\n"+
		"\tSCORE DOUBLE PRECISION,\n"+
		"\tPRIMARY KEY (MY_ID, YOUR_ID)\n"+
		")", CreateTableSQL(e))

	acct, err := gen.Registry().Entity(Account{})
	require.NoError(t, err)
	assert.Contains(t, CreateTableSQL(acct), "ID VARCHAR(40) NOT NULL")
	assert.Contains(t, CreateTableSQL(acct), "BALANCE BIGINT")
	assert.Contains(t, CreateTableSQL(acct), "ACTIVE BOOLEAN")
}

func TestSQLiteAccountRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	gen := newSQLiteGenerator(t)

	dao, err := NewDao[Account](s, gen)
	require.NoError(t, err)
	require.NoError(t, NewMigrator(s).EnsureTable(ctx, dao.Entity()))
	// Idempotent.
	require.NoError(t, NewMigrator(s).EnsureTable(ctx, dao.Entity()))

	acct := &Account{Email: "a@b.c", Balance: 250, Active: true}
	_, err = dao.Insert(ctx, acct)
	require.NoError(t, err)
	require.NotNil(t, acct.ID)
	assert.LessOrEqual(t, acct.ID.BitLen(), idgen.TotalBits)
	assert.Equal(t, uint32(1), idgen.Decompose(acct.ID).Machine)

	got, err := dao.Get(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, acct.ID.Cmp(got.ID))
	assert.Equal(t, "a@b.c", got.Email)
	assert.Equal(t, int64(250), got.Balance)
	assert.True(t, got.Active)

	_, err = dao.Insert(ctx, &Account{ID: acct.ID, Email: "dup"})
	assert.ErrorIs(t, err, ErrUniqueViolation)

	got.Email = "changed@b.c"
	got.Active = false
	n, err := dao.Update(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = dao.Get(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed@b.c", got.Email)
	assert.False(t, got.Active)

	n, err = dao.DeleteByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = dao.Get(ctx, acct.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteCompositeIdentity(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	dao, err := NewDao[Team](s, newSQLiteGenerator(t))
	require.NoError(t, err)
	require.NoError(t, NewMigrator(s).EnsureTable(ctx, dao.Entity()))

	desc := "first"
	teams := []*Team{
		{YourId: "x", Name: "Rockets", Description: &desc, Score: 1.5},
		{YourId: "x", Name: "Comets"},
		{MyId: "fixed", YourId: "y", Name: "Meteors", Score: -2},
	}
	for _, team := range teams {
		_, err := dao.Insert(ctx, team)
		require.NoError(t, err)
	}
	assert.Len(t, teams[0].MyId, idgen.Base36Width)
	assert.Equal(t, "fixed", teams[2].MyId)

	batch, err := dao.GetBatch(ctx, []any{teams[0].MyId, "x"}, []any{"fixed", "y"}, []any{"missing", "x"})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	names := []string{batch[0].Name, batch[1].Name}
	assert.ElementsMatch(t, []string{"Rockets", "Meteors"}, names)

	got, err := dao.Get(ctx, teams[0].MyId, "x")
	require.NoError(t, err)
	require.NotNil(t, got.Description)
	assert.Equal(t, "first", *got.Description)
	assert.Equal(t, 1.5, got.Score)

	// Only the configured positive properties are read back.
	partial, err := dao.SelectByConfig(ctx, &Team{MyId: teams[0].MyId, YourId: "x", Name: "any"}, true)
	require.NoError(t, err)
	assert.Equal(t, "Rockets", partial.Name)
	assert.Nil(t, partial.Description)
	assert.Zero(t, partial.Score)

	_, err = dao.UpdateByConfig(ctx, &Team{MyId: teams[1].MyId, YourId: "x", Score: 9}, true)
	require.NoError(t, err)
	got, err = dao.Get(ctx, teams[1].MyId, "x")
	require.NoError(t, err)
	assert.Equal(t, 9.0, got.Score)
	assert.Equal(t, "Comets", got.Name)

	count, err := dao.Count(ctx, "AND YOUR_ID = ?", "x")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	page, err := dao.Page(ctx, 2, 0, "ORDER BY NAME")
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Comets", page.Items[0].Name)
	assert.True(t, page.HasMore())

	list, err := dao.List(ctx, "AND SCORE < ?", 0.0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Meteors", list[0].Name)

	n, err := dao.Delete(ctx, teams[2])
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = dao.DeleteWhere(ctx, "AND YOUR_ID = ?", "x")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err = dao.Count(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, count)
}
