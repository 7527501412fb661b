package rewind_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/rewind"
)

func TestAlwaysPersistAsync(t *testing.T) {
	e := setupTestEngineWithConfig(t, func(cfg *rewind.Config) {
		cfg.AlwaysPersist = true
		cfg.EnableSaveWorker = true
		cfg.Save.WorkerCount = 1
	})
	ser := rewind.NewMemorySerializer(0)
	id := rewind.NewStackID("game", "async")

	s, number := setupNumberStack(t, e, id, 5)
	assert.NoError(t, s.RegisterSerializer(ser, nil))

	mustStore(t, s)
	*number = 6
	mustStore(t, s)

	ctx := context.Background()
	assert.Eventually(t, func() bool {
		h, err := ser.Load(ctx, id)
		return err == nil && h.Depth() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestAsyncPersistFailureDoesNotFailStore(t *testing.T) {
	e := setupTestEngineWithConfig(t, func(cfg *rewind.Config) {
		cfg.AlwaysPersist = true
		cfg.EnableSaveWorker = true
		cfg.Save.WorkerCount = 1
	})
	id := rewind.NewStackID("game", "broken")

	s, _ := setupNumberStack(t, e, id, 1)
	assert.NoError(t, s.RegisterSerializer(&failingSerializer{}, nil))

	// the store itself succeeds; the save failure is only logged
	mustStore(t, s)
	assert.Equal(t, 1, s.Depth())
}

type failingSerializer struct{}

func (f *failingSerializer) Save(context.Context, rewind.StackID, rewind.History) error {
	return errors.New("storage offline")
}

func (f *failingSerializer) Load(
	context.Context, rewind.StackID,
) (rewind.History, error) {
	return nil, errors.New("storage offline")
}
