package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ridemate/internal/repository"

	"github.com/rs/zerolog/log"
)

// Collection is the local, optimistically updated copy of one remote
// collection. Projections are computed from it on read; there is only ever
// one copy of each record.
type Collection[T any] struct {
	mu       sync.RWMutex
	name     string
	idOf     func(T) string
	items    []T
	notifier Notifier
}

// NewCollection creates an empty collection
func NewCollection[T any](name string, idOf func(T) string, notifier Notifier) *Collection[T] {
	return &Collection[T]{
		name:     name,
		idOf:     idOf,
		notifier: orDiscard(notifier),
	}
}

// Name returns the collection name used in events and logs
func (c *Collection[T]) Name() string {
	return c.name
}

// Replace swaps the whole content, keeping the given order
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	c.items = append([]T(nil), items...)
	c.mu.Unlock()
	c.notifier.CollectionChanged(c.name)
}

// Reset empties the collection
func (c *Collection[T]) Reset() {
	c.Replace(nil)
}

// Len returns the number of records
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Snapshot returns a copy of every record in order
func (c *Collection[T]) Snapshot() []T {
	return c.Filter(nil)
}

// Filter returns the records matching keep, in order. A nil keep matches all.
func (c *Collection[T]) Filter(keep func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, 0, len(c.items))
	for _, item := range c.items {
		if keep == nil || keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Get returns the record with the given id
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := c.indexLocked(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Append adds a record at the end and returns the change's inverse
func (c *Collection[T]) Append(item T) (undo func()) {
	c.mu.Lock()
	c.items = append(c.items, item)
	c.mu.Unlock()
	c.notifier.CollectionChanged(c.name)

	return func() { c.drop(c.idOf(item)) }
}

// Prepend adds a record at the front and returns the change's inverse
func (c *Collection[T]) Prepend(item T) (undo func()) {
	c.mu.Lock()
	c.items = append([]T{item}, c.items...)
	c.mu.Unlock()
	c.notifier.CollectionChanged(c.name)

	return func() { c.drop(c.idOf(item)) }
}

// Revert reverses one change against the record's current value
type Revert[T any] func(T) T

// Patch replaces the record with fn's result. fn runs under the write lock,
// so it sees the current value, and returns the revert for its own change.
// The returned undo applies that revert to whatever the record holds by then,
// so changes made to it in the meantime survive.
func (c *Collection[T]) Patch(id string, fn func(T) (T, Revert[T], error)) (updated T, undo func(), err error) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return updated, nil, ErrNotFound
	}
	updated, revert, err := fn(c.items[i])
	if err != nil {
		c.mu.Unlock()
		return updated, nil, err
	}
	c.items[i] = updated
	c.mu.Unlock()
	c.notifier.CollectionChanged(c.name)

	undo = func() {
		c.mu.Lock()
		if j := c.indexLocked(id); j >= 0 && revert != nil {
			c.items[j] = revert(c.items[j])
		}
		c.mu.Unlock()
		c.notifier.CollectionChanged(c.name)
	}
	return updated, undo, nil
}

// Remove deletes the record with the given id. The returned undo puts it back
// at its old position.
func (c *Collection[T]) Remove(id string) (removed T, undo func(), err error) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return removed, nil, ErrNotFound
	}
	removed = c.items[i]
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	c.mu.Unlock()
	c.notifier.CollectionChanged(c.name)

	undo = func() {
		c.mu.Lock()
		at := min(i, len(c.items))
		c.items = append(c.items[:at:at], append([]T{removed}, c.items[at:]...)...)
		c.mu.Unlock()
		c.notifier.CollectionChanged(c.name)
	}
	return removed, undo, nil
}

func (c *Collection[T]) drop(id string) {
	c.mu.Lock()
	if i := c.indexLocked(id); i >= 0 {
		c.items = append(c.items[:i:i], c.items[i+1:]...)
	}
	c.mu.Unlock()
	c.notifier.CollectionChanged(c.name)
}

func (c *Collection[T]) indexLocked(id string) int {
	for i, item := range c.items {
		if c.idOf(item) == id {
			return i
		}
	}
	return -1
}

// Commit issues the remote write for an optimistic change. A retryable
// network failure is retried once; any remaining failure undoes the local
// change and raises a notification.
func (c *Collection[T]) Commit(ctx context.Context, op, id string, undo func(), write func(context.Context) error) error {
	err := write(ctx)

	var netErr *repository.NetworkError
	if err != nil && errors.As(err, &netErr) && netErr.Retryable() && ctx.Err() == nil {
		log.Warn().
			Err(err).
			Str("collection", c.name).
			Str("id", id).
			Str("op", op).
			Msg("Remote write failed, retrying")
		err = write(ctx)
	}
	if err == nil {
		return nil
	}

	if undo != nil {
		undo()
	}
	log.Error().
		Err(err).
		Str("collection", c.name).
		Str("id", id).
		Str("op", op).
		Msg("Remote write failed, local change rolled back")
	c.notifier.Notify(LevelError, fmt.Sprintf("Could not %s. The change was reverted.", op))

	return fmt.Errorf("failed to %s: %w", op, err)
}

// Synchronizer is a collection that follows the active identity
type Synchronizer interface {
	Refresh(ctx context.Context) error
	Reset()
}
