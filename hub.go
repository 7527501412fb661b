package rewind

import (
	"strings"
	"sync"
	"time"

	"github.com/kode4food/caravan/topic"
)

type (
	// ChangeType classifies a Change announced by a Stack
	ChangeType string

	// Change describes one observable transition on a Stack
	Change struct {
		Timestamp time.Time  `json:"timestamp"`
		StackID   StackID    `json:"stack_id"`
		Type      ChangeType `json:"type"`
		Label     string     `json:"label,omitempty"`
		Snapshot  *Snapshot  `json:"snapshot,omitempty"`
		Depth     int        `json:"depth"`
	}

	// ChangeHub filters changes based on active subscriptions
	ChangeHub struct {
		inner    topic.Topic[*Change]
		registry *interestRegistry
	}

	// Consumer receives the changes matching its interests
	Consumer struct {
		inner     topic.Consumer[*Change]
		interests *interests
		registry  *interestRegistry
		filtered  <-chan *Change
		once      sync.Once
		closeOnce sync.Once
	}

	// interestRegistry tracks active subscriptions and counts references
	interestRegistry struct {
		subscriptions map[ChangeType]map[string]int64
		allCount      int64
		mu            sync.RWMutex
	}

	// interests describes what changes a consumer wants to see
	interests struct {
		changeTypes map[ChangeType]bool // empty = all change types
		prefix      StackID             // nil = all stacks
	}

	// changeEmitter publishes a Stack's changes when anyone is listening
	changeEmitter struct {
		hub      *ChangeHub
		producer topic.Producer[*Change]
	}
)

const (
	ChangeStored       ChangeType = "stored"
	ChangeRestored     ChangeType = "restored"
	ChangeRegistered   ChangeType = "registered"
	ChangeUnregistered ChangeType = "unregistered"
	ChangeEvicted      ChangeType = "evicted"
	ChangeLoaded       ChangeType = "loaded"
)

const stackIDSep = "\x00"

func newChangeHub(inner topic.Topic[*Change]) *ChangeHub {
	return &ChangeHub{
		inner: inner,
		registry: &interestRegistry{
			subscriptions: map[ChangeType]map[string]int64{},
		},
	}
}

// NewConsumer creates a consumer interested in specific change types.
// If no change types are specified, the consumer receives all changes
func (ch *ChangeHub) NewConsumer(changeTypes ...ChangeType) *Consumer {
	return ch.newConsumer(&interests{
		changeTypes: typeSet(changeTypes),
	})
}

// NewStackConsumer creates a consumer interested in changes from Stacks
// whose ID matches the provided prefix, optionally narrowed to specific
// change types
func (ch *ChangeHub) NewStackConsumer(
	prefix StackID, changeTypes ...ChangeType,
) *Consumer {
	return ch.newConsumer(&interests{
		changeTypes: typeSet(changeTypes),
		prefix:      normalizePrefix(prefix),
	})
}

func (ch *ChangeHub) newConsumer(i *interests) *Consumer {
	ch.registry.adjust(i, 1)
	return &Consumer{
		inner:     ch.inner.NewConsumer(),
		interests: i,
		registry:  ch.registry,
	}
}

// hasSubscribers checks if any active subscription matches a change
func (ch *ChangeHub) hasSubscribers(typ ChangeType, id StackID) bool {
	return ch.registry.hasSubscribers(typ, id)
}

func (ch *ChangeHub) newEmitter() *changeEmitter {
	return &changeEmitter{
		hub:      ch,
		producer: ch.inner.NewProducer(),
	}
}

// Receive returns a channel of changes filtered by the consumer's
// interests
func (c *Consumer) Receive() <-chan *Change {
	c.once.Do(func() {
		filtered := make(chan *Change, 1)

		go func() {
			defer close(filtered)
			for ch := range c.inner.Receive() {
				if c.matches(ch) {
					filtered <- ch
				}
			}
		}()

		c.filtered = filtered
	})

	return c.filtered
}

// Close unregisters the consumer
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() {
		c.registry.adjust(c.interests, -1)
		c.inner.Close()
	})
	return nil
}

func (c *Consumer) matches(ch *Change) bool {
	if c.interests.prefix != nil &&
		!ch.StackID.HasPrefix(c.interests.prefix) {
		return false
	}

	if len(c.interests.changeTypes) > 0 &&
		!c.interests.changeTypes[ch.Type] {
		return false
	}

	return true
}

// adjust adds or removes one reference for a subscription. A wildcard
// dimension is keyed by the empty string
func (r *interestRegistry) adjust(i *interests, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i.prefix == nil && len(i.changeTypes) == 0 {
		r.allCount += delta
		return
	}

	idKey := ""
	if i.prefix != nil {
		idKey = stackIDKey(i.prefix)
	}

	if len(i.changeTypes) == 0 {
		r.adjustEntry("", idKey, delta)
		return
	}
	for ct := range i.changeTypes {
		r.adjustEntry(ct, idKey, delta)
	}
}

func (r *interestRegistry) adjustEntry(
	ct ChangeType, idKey string, delta int64,
) {
	if r.subscriptions[ct] == nil {
		r.subscriptions[ct] = map[string]int64{}
	}
	r.subscriptions[ct][idKey] += delta
	if r.subscriptions[ct][idKey] == 0 {
		delete(r.subscriptions[ct], idKey)
	}
	if len(r.subscriptions[ct]) == 0 {
		delete(r.subscriptions, ct)
	}
}

func (r *interestRegistry) hasSubscribers(typ ChangeType, id StackID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.allCount > 0 {
		return true
	}

	idKey := stackIDKey(id)
	for _, ct := range []ChangeType{"", typ} {
		subs, ok := r.subscriptions[ct]
		if !ok {
			continue
		}
		if ct != "" {
			if _, hasAll := subs[""]; hasAll {
				return true
			}
		}
		if hasPrefixSubscriber(subs, idKey) {
			return true
		}
	}

	return false
}

func (e *changeEmitter) label(
	id StackID, typ ChangeType, label string, depth int,
) {
	e.emit(&Change{StackID: id, Type: typ, Label: label, Depth: depth})
}

func (e *changeEmitter) snapshot(
	id StackID, typ ChangeType, snap *Snapshot, depth int,
) {
	e.emit(&Change{StackID: id, Type: typ, Snapshot: snap, Depth: depth})
}

func (e *changeEmitter) emit(ch *Change) {
	if !e.hub.hasSubscribers(ch.Type, ch.StackID) {
		return
	}
	ch.Timestamp = time.Now()
	e.producer.Send() <- ch
}

func (e *changeEmitter) close() {
	e.producer.Close()
}

func typeSet(changeTypes []ChangeType) map[ChangeType]bool {
	if len(changeTypes) == 0 {
		return nil
	}
	res := make(map[ChangeType]bool, len(changeTypes))
	for _, ct := range changeTypes {
		res[ct] = true
	}
	return res
}

func normalizePrefix(prefix StackID) StackID {
	if len(prefix) == 0 {
		return nil
	}
	return prefix
}

func hasPrefixSubscriber(subs map[string]int64, idKey string) bool {
	for prefix := range subs {
		if prefix == "" {
			continue
		}
		if idKey == prefix ||
			strings.HasPrefix(idKey, prefix+stackIDSep) {
			return true
		}
	}
	return false
}

func stackIDKey(id StackID) string {
	return id.Join(stackIDSep)
}
