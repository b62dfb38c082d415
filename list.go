package botdispatch

import (
	"fmt"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
)

// DescriptorList holds the descriptors of one normalized update kind,
// sorted ascending by OrderKey. It is append-only; Freeze seals it, after
// which Add fails with ErrFrozen and reads need no synchronization.
type DescriptorList struct {
	kind   UpdateKind
	mu     sync.Mutex
	items  []*Descriptor
	frozen atomic.Bool
}

// NewDescriptorList creates an empty list for kind.
func NewDescriptorList(kind UpdateKind) *DescriptorList {
	return &DescriptorList{kind: kind.Normalize()}
}

// Kind returns the normalized kind the list serves.
func (l *DescriptorList) Kind() UpdateKind { return l.kind }

// Add inserts d at its ordered position. Descriptors with equal keys keep
// insertion order.
func (l *DescriptorList) Add(d *Descriptor) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.frozen.Load() {
		return fmt.Errorf("add %s to %s list: %w", d.name, l.kind, ErrFrozen)
	}
	if d.kind.Normalize() != l.kind {
		return fmt.Errorf("add %s to %s list: %w", d.name, l.kind, ErrKindMismatch)
	}

	l.place(d)
	return nil
}

// insert is Add for callers that already validated d and hold no lock.
func (l *DescriptorList) insert(d *Descriptor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.place(d)
}

func (l *DescriptorList) place(d *Descriptor) {
	key := d.Key()
	i, _ := slices.BinarySearchFunc(l.items, key, func(e *Descriptor, k OrderKey) int {
		return e.Key().Compare(k)
	})
	for i < len(l.items) && l.items[i].Key().Compare(key) == 0 {
		i++
	}
	l.items = slices.Insert(l.items, i, d)
}

// Freeze seals the list. It is one-way and idempotent.
func (l *DescriptorList) Freeze() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frozen.Store(true)
}

// Frozen reports whether the list is sealed.
func (l *DescriptorList) Frozen() bool { return l.frozen.Load() }

// Len returns the number of descriptors.
func (l *DescriptorList) Len() int { return len(l.items) }

// At returns the i-th descriptor in evaluation order.
func (l *DescriptorList) At(i int) *Descriptor { return l.items[i] }

// All yields the descriptors in evaluation order.
func (l *DescriptorList) All() iter.Seq[*Descriptor] {
	return func(yield func(*Descriptor) bool) {
		for _, d := range l.items {
			if !yield(d) {
				return
			}
		}
	}
}
