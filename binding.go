package rewind

import (
	"encoding/json"
	"errors"
	"time"
)

type (
	// Getter produces the encoded current value of a bound property. It
	// must not mutate the target
	Getter func() (json.RawMessage, error)

	// Setter applies an encoded value back to a bound property
	Setter func(json.RawMessage) error

	binding struct {
		get   Getter
		set   Setter
		label string
	}

	// registry maps labels to accessor pairs in registration order
	registry struct {
		index    map[string]*binding
		bindings []*binding
	}
)

var (
	// ErrDuplicateLabel indicates a label is already registered on the
	// Stack
	ErrDuplicateLabel = errors.New("label already registered")

	// ErrUnknownLabel indicates a label is not registered on the Stack
	ErrUnknownLabel = errors.New("label not registered")

	// ErrNilAccessor indicates a binding was registered without both a
	// getter and a setter
	ErrNilAccessor = errors.New("getter and setter are required")
)

func newRegistry() *registry {
	return &registry{
		index: map[string]*binding{},
	}
}

func (r *registry) register(label string, get Getter, set Setter) error {
	if get == nil || set == nil {
		return ErrNilAccessor
	}
	if _, ok := r.index[label]; ok {
		return ErrDuplicateLabel
	}
	b := &binding{label: label, get: get, set: set}
	r.index[label] = b
	r.bindings = append(r.bindings, b)
	return nil
}

func (r *registry) unregister(label string) error {
	if _, ok := r.index[label]; !ok {
		return ErrUnknownLabel
	}
	delete(r.index, label)
	for i, b := range r.bindings {
		if b.label == label {
			r.bindings = append(r.bindings[:i], r.bindings[i+1:]...)
			break
		}
	}
	return nil
}

// capture invokes every getter in registration order. If any getter
// fails, no partial Snapshot is produced
func (r *registry) capture(seq int64) (*Snapshot, error) {
	values := make(map[string]json.RawMessage, len(r.bindings))
	for _, b := range r.bindings {
		data, err := b.get()
		if err != nil {
			return nil, err
		}
		values[b.label] = data
	}
	return &Snapshot{
		Timestamp: time.Now(),
		Sequence:  seq,
		Values:    values,
	}, nil
}

// apply invokes the setter for every snapshot label that still has a
// binding, in registration order. Labels without a current binding are
// skipped; setter errors propagate unmodified
func (r *registry) apply(snap *Snapshot) error {
	for _, b := range r.bindings {
		data, ok := snap.Values[b.label]
		if !ok {
			continue
		}
		if err := b.set(data); err != nil {
			return err
		}
	}
	return nil
}

func (r *registry) labels() []string {
	res := make([]string, len(r.bindings))
	for i, b := range r.bindings {
		res[i] = b.label
	}
	return res
}

// Bind registers a typed getter/setter pair under a label, handling the
// value encoding on either side
func Bind[T any](s *Stack, label string, get func() T, set func(T)) error {
	if get == nil || set == nil {
		return ErrNilAccessor
	}
	return s.Register(label,
		func() (json.RawMessage, error) {
			return json.Marshal(get())
		},
		func(data json.RawMessage) error {
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				return err
			}
			set(v)
			return nil
		},
	)
}

// BindVar registers direct access to a variable or struct field under a
// label
func BindVar[T any](s *Stack, label string, p *T) error {
	if p == nil {
		return ErrNilAccessor
	}
	return Bind(s, label,
		func() T { return *p },
		func(v T) { *p = v },
	)
}
