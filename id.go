package rewind

import (
	"strings"
	"unsafe"
)

type (
	// StackID identifies a Stack as a set of parts ("prefs", "alice").
	// Serializers use it as the persistence key, and the ChangeHub uses
	// it for prefix-based subscriptions
	StackID []ID

	// ID is a single component of a StackID
	ID string

	// JoinKeyFunc joins the parts of a StackID into a string for use as
	// the identity portion of a storage key
	JoinKeyFunc func(StackID) string

	// ParseKeyFunc parses the identity portion of a storage key back
	// into a StackID
	ParseKeyFunc func(string) StackID
)

func NewStackID(parts ...ID) StackID {
	return parts
}

// ParseStackID splits a string by the separator into a StackID
func ParseStackID(str, sep string) StackID {
	s := strings.Split(str, sep)
	return *(*StackID)(unsafe.Pointer(&s))
}

// Join combines the StackID parts into a single string using a separator
func (id StackID) Join(sep string) string {
	s := *(*[]string)(unsafe.Pointer(&id))
	return strings.Join(s, sep)
}

// Equal compares two StackIDs for equality
func (id StackID) Equal(other StackID) bool {
	if len(id) != len(other) {
		return false
	}
	for i, p := range id {
		if other[i] != p {
			return false
		}
	}
	return true
}

// HasPrefix checks if the StackID starts with the provided prefix
func (id StackID) HasPrefix(prefix StackID) bool {
	if len(prefix) > len(id) {
		return false
	}
	for i, p := range prefix {
		if id[i] != p {
			return false
		}
	}
	return true
}

// JoinKey is the default JoinKeyFunc; it joins StackID parts with ":"
func JoinKey(id StackID) string {
	return id.Join(":")
}

// ParseKey is the default ParseKeyFunc; it splits on ":" to reconstruct
// a StackID
func ParseKey(str string) StackID {
	return ParseStackID(str, ":")
}
