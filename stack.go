package rewind

import (
	"context"
	"errors"
	"slices"
)

type (
	// Stack owns the bindings and snapshot history for one target. It is
	// not safe for concurrent use; callers must serialize access to a
	// Stack and to any group it belongs to
	Stack struct {
		engine  *Engine
		reg     *registry
		grp     *group
		ser     Serializer
		emitter *changeEmitter
		id      StackID
		saveID  StackID
		history History
		nextSeq int64
	}
)

var (
	// ErrAlreadyBound indicates a Serializer is already registered on
	// the Stack
	ErrAlreadyBound = errors.New("serializer already registered")

	// ErrNoSerializer indicates no Serializer is registered on the Stack
	ErrNoSerializer = errors.New("no serializer registered")
)

// ID returns the Stack's identifier components
func (s *Stack) ID() StackID {
	return s.id
}

// Depth returns the number of Snapshots currently held
func (s *Stack) Depth() int {
	return s.history.Depth()
}

// History returns a copy of the Stack's snapshot history, oldest first
func (s *Stack) History() History {
	return slices.Clone(s.history)
}

// Labels returns the registered binding labels in registration order
func (s *Stack) Labels() []string {
	return s.reg.labels()
}

// Register binds a labeled getter/setter pair. Most callers use the
// typed Bind and BindVar helpers instead
func (s *Stack) Register(label string, get Getter, set Setter) error {
	if err := s.reg.register(label, get, set); err != nil {
		return err
	}
	s.emitter.label(s.id, ChangeRegistered, label, s.Depth())
	return nil
}

// Unregister removes a binding. Snapshots captured while the label was
// bound keep it; apply skips labels that no longer resolve
func (s *Stack) Unregister(label string) error {
	if err := s.reg.unregister(label); err != nil {
		return err
	}
	s.emitter.label(s.id, ChangeUnregistered, label, s.Depth())
	return nil
}

// Store captures a Snapshot on every member of the Stack's group, each
// against its own bindings. History depth grows by exactly one per
// member
func (s *Stack) Store(ctx context.Context) error {
	return s.grp.fanout(func(m *Stack) error {
		return m.localStore(ctx, false)
	})
}

// Checkpoint stores on every member of the group, and each member with
// a registered Serializer also persists its full history synchronously.
// Members without one just store
func (s *Stack) Checkpoint(ctx context.Context) error {
	return s.grp.fanout(func(m *Stack) error {
		return m.localStore(ctx, true)
	})
}

// Restore applies the Snapshot at the given offset from the most recent
// one on every member of the group, each against its own history and
// bindings. History is left intact, so a later Restore may address a
// newer offset again
func (s *Stack) Restore(ctx context.Context, offset int) error {
	return s.grp.fanout(func(m *Stack) error {
		return m.localRestore(offset)
	})
}

// Update runs a mutation against the target and stores on success
func (s *Stack) Update(ctx context.Context, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	return s.Store(ctx)
}

// Join merges this Stack's group with another's into one transitively
// closed set. Joining must not interleave with an in-flight store or
// restore on either group
func (s *Stack) Join(other *Stack) {
	s.grp.merge(other.grp)
}

// RegisterSerializer binds a Serializer under the given save identifier.
// An empty identifier defaults to the Stack's own ID
func (s *Stack) RegisterSerializer(ser Serializer, saveID StackID) error {
	if ser == nil {
		return ErrNoSerializer
	}
	if s.ser != nil {
		return ErrAlreadyBound
	}
	if len(saveID) == 0 {
		saveID = s.id
	}
	s.ser = ser
	s.saveID = saveID
	return nil
}

// Persist writes the Stack's full history through its Serializer
func (s *Stack) Persist(ctx context.Context) error {
	if s.ser == nil {
		return ErrNoSerializer
	}
	return s.ser.Save(ctx, s.saveID, s.History())
}

// Load replaces the Stack's history with the persisted one and applies
// its most recent Snapshot so the target reflects the restored state
// immediately
func (s *Stack) Load(ctx context.Context) error {
	if s.ser == nil {
		return ErrNoSerializer
	}
	h, err := s.ser.Load(ctx, s.saveID)
	if err != nil {
		return err
	}

	s.history = h
	s.nextSeq = 0
	if len(h) > 0 {
		newest := h[len(h)-1]
		s.nextSeq = newest.Sequence + 1
		if err := s.reg.apply(newest); err != nil {
			return err
		}
	}
	s.emitter.snapshot(s.id, ChangeLoaded, nil, s.Depth())
	return nil
}

// Close releases the Stack's change producer. The Stack's history, if
// persisted, survives independently
func (s *Stack) Close() error {
	s.emitter.close()
	return nil
}

func (s *Stack) localStore(ctx context.Context, persist bool) error {
	snap, err := s.reg.capture(s.nextSeq)
	if err != nil {
		return err
	}
	s.history = append(s.history, snap)
	s.nextSeq++

	if limit := s.engine.config.MaxDepth; limit > 0 && len(s.history) > limit {
		evicted := s.history[0]
		s.history = slices.Delete(s.history, 0, 1)
		s.emitter.snapshot(s.id, ChangeEvicted, evicted, s.Depth())
	}
	s.emitter.snapshot(s.id, ChangeStored, snap, s.Depth())

	if s.ser == nil {
		return nil
	}
	if persist {
		return s.Persist(ctx)
	}
	if s.engine.config.AlwaysPersist {
		if w := s.engine.worker; w != nil {
			w.enqueue(s.ser, s.saveID, s.History())
			return nil
		}
		return s.Persist(ctx)
	}
	return nil
}

func (s *Stack) localRestore(offset int) error {
	snap, err := s.history.At(offset)
	if err != nil {
		return err
	}
	if err := s.reg.apply(snap); err != nil {
		return err
	}
	s.emitter.snapshot(s.id, ChangeRestored, snap, s.Depth())
	return nil
}
