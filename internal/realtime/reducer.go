// Package realtime applies backend change notifications to in-memory record
// lists. The reducer is transport independent; webhooks and the Kafka
// consumer only decode into a Change.
package realtime

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the type of a change.
type Kind string

const (
	Insert Kind = "INSERT"
	Update Kind = "UPDATE"
	Delete Kind = "DELETE"
)

// ParseKind accepts the kinds case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case Insert, Update, Delete:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

var (
	// ErrUnknownKind is returned for change kinds other than insert, update and delete.
	ErrUnknownKind = errors.New("realtime: unknown change kind")
	// ErrMissingID is returned when a change carries no record id.
	ErrMissingID = errors.New("realtime: change has no record id")
)

// Keyed is a record with a stable id.
type Keyed interface {
	Key() string
}

// Change is one insert, update or delete of a record. For deletes only
// OldID (or Record's key) is needed.
type Change[T Keyed] struct {
	Kind   Kind
	Record T
	OldID  string
}

// ID returns the id the change refers to.
func (c Change[T]) ID() string {
	if c.Kind == Delete && c.OldID != "" {
		return c.OldID
	}
	if id := c.Record.Key(); id != "" {
		return id
	}
	return c.OldID
}

// Apply returns a new list with the change applied. The input is never
// modified.
//
//   - Insert prepends the record, or replaces it in place if the id exists.
//   - Update replaces the record in place, or prepends it if unknown.
//   - Delete removes the record; an unknown id is a no-op.
func Apply[T Keyed](list []T, c Change[T]) ([]T, error) {
	id := c.ID()
	if id == "" {
		return nil, ErrMissingID
	}

	idx := -1
	for i, r := range list {
		if r.Key() == id {
			idx = i
			break
		}
	}

	switch c.Kind {
	case Insert, Update:
		if idx >= 0 {
			out := make([]T, len(list))
			copy(out, list)
			out[idx] = c.Record
			return out, nil
		}
		out := make([]T, 0, len(list)+1)
		out = append(out, c.Record)
		return append(out, list...), nil
	case Delete:
		out := make([]T, 0, len(list))
		if idx < 0 {
			return append(out, list...), nil
		}
		out = append(out, list[:idx]...)
		return append(out, list[idx+1:]...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
}
