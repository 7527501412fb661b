package rewind_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/rewind"
)

func TestMemoryRoundTrip(t *testing.T) {
	ser := rewind.NewMemorySerializer(0)
	ctx := context.Background()
	id := rewind.NewStackID("prefs", "alice")

	h := rewind.History{{Sequence: 0}, {Sequence: 1}}
	assert.NoError(t, ser.Save(ctx, id, h))

	loaded, err := ser.Load(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, 2, loaded.Depth())
	assert.Equal(t, int64(1), loaded[1].Sequence)
}

func TestMemoryNotFound(t *testing.T) {
	ser := rewind.NewMemorySerializer(0)
	_, err := ser.Load(context.Background(), rewind.NewStackID("missing"))
	assert.ErrorIs(t, err, rewind.ErrHistoryNotFound)
}

func TestMemoryEviction(t *testing.T) {
	ser := rewind.NewMemorySerializer(2)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		id := rewind.NewStackID(rewind.ID(name))
		assert.NoError(t, ser.Save(ctx, id, rewind.History{}))
	}

	assert.Equal(t, 2, ser.Len())
	_, err := ser.Load(ctx, rewind.NewStackID("a"))
	assert.ErrorIs(t, err, rewind.ErrHistoryNotFound)

	_, err = ser.Load(ctx, rewind.NewStackID("c"))
	assert.NoError(t, err)
}

func TestRegisterSerializer(t *testing.T) {
	e := setupTestEngine(t)
	s, _ := setupNumberStack(t, e, rewind.NewStackID("game"), 0)

	assert.ErrorIs(t,
		s.RegisterSerializer(nil, nil), rewind.ErrNoSerializer,
	)

	ser := rewind.NewMemorySerializer(0)
	assert.NoError(t, s.RegisterSerializer(ser, nil))
	assert.ErrorIs(t,
		s.RegisterSerializer(ser, nil), rewind.ErrAlreadyBound,
	)
}

func TestPersistWithoutSerializer(t *testing.T) {
	e := setupTestEngine(t)
	s, _ := setupNumberStack(t, e, rewind.NewStackID("game"), 0)

	ctx := context.Background()
	assert.ErrorIs(t, s.Persist(ctx), rewind.ErrNoSerializer)
	assert.ErrorIs(t, s.Load(ctx), rewind.ErrNoSerializer)

	// a checkpoint without a serializer still stores
	assert.NoError(t, s.Checkpoint(ctx))
	assert.Equal(t, 1, s.Depth())
}

func TestCheckpointRoundTrip(t *testing.T) {
	e := setupTestEngine(t)
	ser := rewind.NewMemorySerializer(0)
	id := rewind.NewStackID("game", "1")

	s, number := setupNumberStack(t, e, id, 10)
	assert.NoError(t, s.RegisterSerializer(ser, nil))

	ctx := context.Background()
	mustStore(t, s)
	*number = 42
	assert.NoError(t, s.Checkpoint(ctx))

	// a fresh stack over a fresh target re-hydrates from storage
	fresh, freshNum := setupNumberStack(t, e, id, 0)
	assert.NoError(t, fresh.RegisterSerializer(ser, nil))
	assert.NoError(t, fresh.Load(ctx))

	assert.Equal(t, 42, *freshNum)
	assert.Equal(t, 2, fresh.Depth())

	// older snapshots are addressable too
	assert.NoError(t, fresh.Restore(ctx, 1))
	assert.Equal(t, 10, *freshNum)
}

func TestLoadResumesSequence(t *testing.T) {
	e := setupTestEngine(t)
	ser := rewind.NewMemorySerializer(0)
	id := rewind.NewStackID("game", "seq")

	s, number := setupNumberStack(t, e, id, 1)
	assert.NoError(t, s.RegisterSerializer(ser, nil))

	ctx := context.Background()
	mustStore(t, s)
	*number = 2
	assert.NoError(t, s.Checkpoint(ctx))

	fresh, freshNum := setupNumberStack(t, e, id, 0)
	assert.NoError(t, fresh.RegisterSerializer(ser, nil))
	assert.NoError(t, fresh.Load(ctx))

	*freshNum = 3
	mustStore(t, fresh)

	h := fresh.History()
	assert.Equal(t, 3, h.Depth())
	assert.Equal(t, int64(2), h[2].Sequence)
}

func TestLoadNotFound(t *testing.T) {
	e := setupTestEngine(t)
	s, _ := setupNumberStack(t, e, rewind.NewStackID("game"), 0)
	assert.NoError(t, s.RegisterSerializer(rewind.NewMemorySerializer(0), nil))

	err := s.Load(context.Background())
	assert.ErrorIs(t, err, rewind.ErrHistoryNotFound)
}

func TestSaveIDOverride(t *testing.T) {
	e := setupTestEngine(t)
	ser := rewind.NewMemorySerializer(0)
	saveID := rewind.NewStackID("shared", "slot")

	s, _ := setupNumberStack(t, e, rewind.NewStackID("game"), 7)
	assert.NoError(t, s.RegisterSerializer(ser, saveID))

	ctx := context.Background()
	assert.NoError(t, s.Checkpoint(ctx))

	// persisted under the override identifier, not the stack's own ID
	_, err := ser.Load(ctx, rewind.NewStackID("game"))
	assert.ErrorIs(t, err, rewind.ErrHistoryNotFound)

	loaded, err := ser.Load(ctx, saveID)
	assert.NoError(t, err)
	assert.Equal(t, 1, loaded.Depth())
}

func TestAlwaysPersistSync(t *testing.T) {
	e := setupTestEngineWithConfig(t, func(cfg *rewind.Config) {
		cfg.AlwaysPersist = true
	})
	ser := rewind.NewMemorySerializer(0)
	id := rewind.NewStackID("game", "always")

	s, _ := setupNumberStack(t, e, id, 5)
	assert.NoError(t, s.RegisterSerializer(ser, nil))

	mustStore(t, s)

	loaded, err := ser.Load(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, 1, loaded.Depth())
}

func TestCheckpointGroupFansOut(t *testing.T) {
	e := setupTestEngine(t)
	serA := rewind.NewMemorySerializer(0)
	serB := rewind.NewMemorySerializer(0)

	a, _ := setupNumberStack(t, e, rewind.NewStackID("a"), 1)
	b, _ := setupNumberStack(t, e, rewind.NewStackID("b"), 2)
	assert.NoError(t, a.RegisterSerializer(serA, nil))
	assert.NoError(t, b.RegisterSerializer(serB, nil))

	a.Join(b)

	ctx := context.Background()
	assert.NoError(t, a.Checkpoint(ctx))

	// each member persisted through its own serializer
	loadedA, err := serA.Load(ctx, rewind.NewStackID("a"))
	assert.NoError(t, err)
	assert.Equal(t, 1, loadedA.Depth())

	loadedB, err := serB.Load(ctx, rewind.NewStackID("b"))
	assert.NoError(t, err)
	assert.Equal(t, 1, loadedB.Depth())
}
