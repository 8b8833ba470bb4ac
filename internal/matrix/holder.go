package matrix

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// Holder publishes the active matrix snapshot to scoring goroutines. Readers
// call Current with no locking; the optimizer (single writer) calls Swap.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder starts with the given snapshot, or the defaults when nil.
func NewHolder(s *Snapshot) *Holder {
	if s == nil {
		s = Default()
	}
	h := &Holder{}
	h.current.Store(s)
	return h
}

// Current returns the active snapshot. Never nil.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Swap atomically replaces the active snapshot. Nil is ignored.
func (h *Holder) Swap(s *Snapshot) {
	if s == nil {
		return
	}
	h.current.Store(s)
}

// LoadOrDefault builds a holder from the store, falling back to the built-in
// matrix on any load error. A broken matrix row must never stop scoring.
func LoadOrDefault(ctx context.Context, store Store) *Holder {
	if store == nil {
		return NewHolder(nil)
	}
	doc, err := store.Load(ctx)
	if err != nil {
		zap.L().Warn("matrix: load failed, using defaults", zap.Error(err))
		return NewHolder(nil)
	}
	if doc == nil {
		return NewHolder(nil)
	}
	return NewHolder(FromDocument(*doc))
}
