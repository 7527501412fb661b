package rewind

import (
	"encoding/json"
	"fmt"
	"time"
)

type (
	// Snapshot is an immutable mapping from binding label to the value
	// captured at one point in time. Values are encoded at capture time,
	// so later mutation of the target cannot alter a Snapshot
	Snapshot struct {
		Timestamp time.Time                  `json:"timestamp"`
		Sequence  int64                      `json:"sequence"`
		Values    map[string]json.RawMessage `json:"values"`
	}

	// History is the ordered sequence of Snapshots owned by one Stack,
	// oldest first
	History []*Snapshot

	// OffsetRangeError indicates a restore offset that addresses beyond
	// the depth of a history
	OffsetRangeError struct {
		Offset int
		Depth  int
	}
)

// Depth returns the number of Snapshots in the history
func (h History) Depth() int {
	return len(h)
}

// At returns the Snapshot at the given distance from the most recent
// one. Offset 0 addresses the newest Snapshot
func (h History) At(offset int) (*Snapshot, error) {
	if offset < 0 || offset >= len(h) {
		return nil, &OffsetRangeError{Offset: offset, Depth: len(h)}
	}
	return h[len(h)-1-offset], nil
}

// Value returns the encoded value captured for a label
func (s *Snapshot) Value(label string) (json.RawMessage, bool) {
	data, ok := s.Values[label]
	return data, ok
}

// SnapshotValue decodes the value captured for a label into a concrete
// type
func SnapshotValue[T any](s *Snapshot, label string) (T, error) {
	var res T
	data, ok := s.Values[label]
	if !ok {
		return res, fmt.Errorf("%w: %s", ErrUnknownLabel, label)
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return res, err
	}
	return res, nil
}

func (e *OffsetRangeError) Error() string {
	return fmt.Sprintf(
		"restore offset out of range: %d (history depth %d)",
		e.Offset, e.Depth,
	)
}

func encodeHistory(h History) ([]byte, error) {
	return json.Marshal(h)
}

func decodeHistory(data []byte) (History, error) {
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return h, nil
}
