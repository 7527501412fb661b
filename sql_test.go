package rewind_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"github.com/kode4food/rewind"
)

func setupSQLSerializer(t *testing.T) *rewind.SQLSerializer {
	db, err := sql.Open("sqlite3", ":memory:")
	assert.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ser, err := rewind.NewSQLSerializer(context.Background(), db)
	assert.NoError(t, err)
	return ser
}

func TestSQLRoundTrip(t *testing.T) {
	ser := setupSQLSerializer(t)
	e := setupTestEngine(t)
	id := rewind.NewStackID("game", "1")

	s, number := setupNumberStack(t, e, id, 10)
	assert.NoError(t, s.RegisterSerializer(ser, nil))

	ctx := context.Background()
	mustStore(t, s)
	*number = 42
	assert.NoError(t, s.Checkpoint(ctx))

	fresh, freshNum := setupNumberStack(t, e, id, 0)
	assert.NoError(t, fresh.RegisterSerializer(ser, nil))
	assert.NoError(t, fresh.Load(ctx))

	assert.Equal(t, 42, *freshNum)
	assert.Equal(t, 2, fresh.Depth())
}

func TestSQLNotFound(t *testing.T) {
	ser := setupSQLSerializer(t)
	_, err := ser.Load(context.Background(), rewind.NewStackID("missing"))
	assert.ErrorIs(t, err, rewind.ErrHistoryNotFound)
}

func TestSQLUpsert(t *testing.T) {
	ser := setupSQLSerializer(t)
	ctx := context.Background()
	id := rewind.NewStackID("game", "upsert")

	assert.NoError(t, ser.Save(ctx, id, rewind.History{{Sequence: 0}}))
	assert.NoError(t, ser.Save(ctx, id,
		rewind.History{{Sequence: 0}, {Sequence: 1}},
	))

	loaded, err := ser.Load(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, 2, loaded.Depth())
}

func TestSQLDelete(t *testing.T) {
	ser := setupSQLSerializer(t)
	ctx := context.Background()
	id := rewind.NewStackID("game", "del")

	assert.NoError(t, ser.Save(ctx, id, rewind.History{}))
	assert.NoError(t, ser.Delete(ctx, id))

	_, err := ser.Load(ctx, id)
	assert.ErrorIs(t, err, rewind.ErrHistoryNotFound)
}
