// Package stock provides identifier-indexed owning collections.
package stock

import (
	"errors"
	"fmt"
	"iter"
	"slices"
)

var (
	// ErrNotFound is returned for lookups and removals of unknown ids.
	ErrNotFound = errors.New("entity not found")
	// ErrInvariantViolation is returned when a removal would break a stock rule.
	ErrInvariantViolation = errors.New("stock invariant violation")
)

// ID identifies an entity within one stock. Ids start at 1 and are never reused.
type ID uint64

// Releaser is implemented by entities that hold resources to free on removal.
type Releaser interface {
	Release()
}

// Policy vets a removal before it happens. A non-nil error rejects it.
type Policy[T any] func(s *Stock[T], id ID, v T) error

// Stock owns entities of one kind and keeps them in insertion order.
// It is not safe for concurrent use.
type Stock[T any] struct {
	name     string
	next     ID
	order    []ID
	items    map[ID]T
	policies []Policy[T]
}

// New creates an empty stock. The name is used in error messages.
func New[T any](name string, policies ...Policy[T]) *Stock[T] {
	return &Stock[T]{
		name:     name,
		items:    make(map[ID]T),
		policies: policies,
	}
}

// Name returns the stock name.
func (s *Stock[T]) Name() string {
	return s.name
}

// Add takes ownership of v and returns its new id.
func (s *Stock[T]) Add(v T) ID {
	s.next++
	id := s.next
	s.items[id] = v
	s.order = append(s.order, id)
	return id
}

// Get returns the entity stored under id.
func (s *Stock[T]) Get(id ID) (T, error) {
	v, ok := s.items[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %d: %w", s.name, id, ErrNotFound)
	}
	return v, nil
}

// Contains reports whether id is present.
func (s *Stock[T]) Contains(id ID) bool {
	_, ok := s.items[id]
	return ok
}

// Remove deletes the entity under id after every policy accepts it.
// On error the stock is unchanged.
func (s *Stock[T]) Remove(id ID) error {
	v, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%s %d: %w", s.name, id, ErrNotFound)
	}

	for _, p := range s.policies {
		if err := p(s, id, v); err != nil {
			return fmt.Errorf("%s %d: %w", s.name, id, err)
		}
	}

	delete(s.items, id)
	s.order = slices.DeleteFunc(s.order, func(other ID) bool { return other == id })

	if r, ok := any(v).(Releaser); ok {
		r.Release()
	}
	return nil
}

// Len returns the number of entities.
func (s *Stock[T]) Len() int {
	return len(s.order)
}

// IDs returns a copy of the ids in insertion order.
func (s *Stock[T]) IDs() []ID {
	return slices.Clone(s.order)
}

// All yields entities in insertion order. Entities removed during iteration
// are skipped; entities added during iteration are not visited.
func (s *Stock[T]) All() iter.Seq2[ID, T] {
	return func(yield func(ID, T) bool) {
		for _, id := range slices.Clone(s.order) {
			v, ok := s.items[id]
			if !ok {
				continue
			}
			if !yield(id, v) {
				return
			}
		}
	}
}

// First returns the oldest entity.
func (s *Stock[T]) First() (ID, T, bool) {
	for id, v := range s.All() {
		return id, v, true
	}
	var zero T
	return 0, zero, false
}

// Find returns the first entity, in insertion order, matching fn.
func (s *Stock[T]) Find(fn func(T) bool) (ID, T, bool) {
	for id, v := range s.All() {
		if fn(v) {
			return id, v, true
		}
	}
	var zero T
	return 0, zero, false
}

// KeepLast rejects removal of the only remaining entity.
func KeepLast[T any]() Policy[T] {
	return func(s *Stock[T], _ ID, _ T) error {
		if s.Len() <= 1 {
			return fmt.Errorf("last %s: %w", s.name, ErrInvariantViolation)
		}
		return nil
	}
}

// KeepMarked rejects removal of a marked entity unless another entity can
// stand in for it. substitute is called with each other entity and the one
// being removed.
func KeepMarked[T any](marked func(T) bool, substitute func(candidate, removed T) bool) Policy[T] {
	return func(s *Stock[T], id ID, v T) error {
		if !marked(v) {
			return nil
		}
		for other, c := range s.All() {
			if other != id && substitute(c, v) {
				return nil
			}
		}
		return fmt.Errorf("%s has no substitute: %w", s.name, ErrInvariantViolation)
	}
}
