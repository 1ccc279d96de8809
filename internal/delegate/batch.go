// Package delegate adapts internal/ax's low-level attribute facade to the
// internal/propcache.Delegate interface: per-attribute read/write glue,
// error classification, and (for object-valued properties) element-handle
// resolution. See spec.md §4.2.
package delegate

import (
	"context"
	"sync"

	"github.com/axstate/windowstate/internal/ax"
)

// Batch shares one GetMultipleAttributes round-trip across several Scalar
// and ObjectResolver delegates' Initialize calls, so an owner (window or application)
// contacts the OS once per object instead of once per attribute, per
// spec.md §4.3's "single batch" requirement.
type Batch struct {
	facade ax.Facade
	el     ax.Element
	attrs  []ax.Attr

	once   sync.Once
	result map[ax.Attr]any
	err    error
}

// NewBatch constructs a Batch that will fetch attrs from el on first use.
func NewBatch(facade ax.Facade, el ax.Element, attrs []ax.Attr) *Batch {
	return &Batch{facade: facade, el: el, attrs: attrs}
}

// Fetch performs the batched read on first call; subsequent calls return
// the cached result (or error) without re-contacting the OS.
func (b *Batch) Fetch(ctx context.Context) (map[ax.Attr]any, error) {
	b.once.Do(func() {
		b.result, b.err = b.facade.GetMultipleAttributes(ctx, b.el, b.attrs)
	})
	return b.result, b.err
}
