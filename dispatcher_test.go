package main

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestDispatcher(r *Registry) *Dispatcher {
	return NewDispatcher(r, NewHistory(10, clockwork.NewFakeClock()), discardLogger())
}

func TestDispatcher_Execute(t *testing.T) {
	path := newSQLiteFile(t, "shop.db",
		`CREATE TABLE users (id INTEGER, name TEXT)`,
		`INSERT INTO users VALUES (1, 'ada'), (2, 'grace')`,
	)
	d := newTestDispatcher(newTestRegistry(t, nil, sqliteConfig("shop", "Shop", path)))

	res, err := d.Execute(context.Background(), "shop", "SELECT id, name FROM users ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, "shop", res.DatabaseID)
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	assert.Equal(t, [][]any{{int64(1), "ada"}, {int64(2), "grace"}}, res.Rows)

	entries := d.History().Recent(10)
	require.Len(t, entries, 1)
	assert.Equal(t, "shop", entries[0].DatabaseID)
	assert.Equal(t, "SELECT id, name FROM users ORDER BY id", entries[0].Statement)
	assert.Equal(t, Outcome{Success: true, RowCount: 2}, entries[0].Outcome)
}

func TestDispatcher_ExecuteUnknownDatabase(t *testing.T) {
	d := newTestDispatcher(newTestRegistry(t, nil, sqliteConfig("shop", "", newSQLiteFile(t, "x.db"))))

	_, err := d.Execute(context.Background(), "nope", "SELECT 1")
	assert.ErrorIs(t, err, ErrUnknownDatabase)
	var derr *DispatchError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "nope", derr.DatabaseID)

	assert.Zero(t, d.History().Len(), "unknown ids are not recorded")
}

func TestDispatcher_ExecuteFailure(t *testing.T) {
	d := newTestDispatcher(newTestRegistry(t, nil, sqliteConfig("shop", "", newSQLiteFile(t, "x.db"))))

	_, err := d.Execute(context.Background(), "shop", "SELECT * FROM missing_table")
	assert.ErrorIs(t, err, ErrExecutionFailed)
	var derr *DispatchError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Message(), "missing_table")

	entries := d.History().Recent(10)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Outcome.Success)
	assert.Equal(t, derr.Message(), entries[0].Outcome.Error)
}

func TestDispatcher_ExecuteConnectionFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	refused := errors.New("dial tcp 127.0.0.1:5432: connection refused")
	down := newFakeBackend(ctrl, "down")
	down.EXPECT().Open(gomock.Any(), gomock.Any()).Return(nil, refused).Times(2)

	d := newTestDispatcher(newTestRegistry(t, BackendSet{"down": down}, fakeConfig("pg_down", "down")))

	for range 2 {
		_, err := d.Execute(context.Background(), "pg_down", "SELECT 1")
		assert.ErrorIs(t, err, ErrConnectionFailed)
		assert.ErrorIs(t, err, refused)
		assert.NotErrorIs(t, err, ErrExecutionFailed)
	}

	entries := d.History().Recent(10)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, Outcome{Error: refused.Error()}, e.Outcome)
	}
}

func TestDispatcher_ExecutePassesStatementUnchanged(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := NewMockConn(ctrl)
	fake := newFakeBackend(ctrl, "fake")
	fake.EXPECT().Open(gomock.Any(), gomock.Any()).Return(conn, nil)

	const stmt = "  DELETE FROM t; -- trailing comment\n"
	conn.EXPECT().Execute(gomock.Any(), stmt).Return(&ResultSet{Rows: [][]any{}}, nil)
	conn.EXPECT().Close().Return(nil)

	d := newTestDispatcher(newTestRegistry(t, BackendSet{"fake": fake}, fakeConfig("f", "fake")))
	res, err := d.Execute(context.Background(), "f", stmt)
	require.NoError(t, err)
	assert.Empty(t, res.Columns)
	assert.Equal(t, stmt, d.History().Recent(1)[0].Statement)
}
