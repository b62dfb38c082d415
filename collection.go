package botdispatch

import (
	"fmt"
	"slices"
	"sync"
)

// Collection gathers descriptors at startup into one DescriptorList per
// normalized update kind. The router freezes it when it is built.
type Collection struct {
	mu     sync.Mutex
	lists  map[UpdateKind]*DescriptorList
	names  map[string]struct{}
	next   int
	frozen bool
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{
		lists: make(map[UpdateKind]*DescriptorList),
		names: make(map[string]struct{}),
	}
}

// Add validates d, assigns its registration index and files it under its
// normalized kind. Malformed descriptors are rejected with a
// *RegistrationError; nothing is added in that case.
func (c *Collection) Add(d *Descriptor) error {
	return c.AddAll(d)
}

// AddAll adds every descriptor or none of them. All of ds are validated,
// duplicates among them included, before the first is filed.
func (c *Collection) AddAll(ds ...*Descriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(ds))
	for _, d := range ds {
		if err := c.check(d, seen); err != nil {
			return err
		}
		seen[d.name] = struct{}{}
	}
	for _, d := range ds {
		c.insert(d)
	}
	return nil
}

func (c *Collection) check(d *Descriptor, seen map[string]struct{}) error {
	if l := c.lists[d.kind.Normalize()]; c.frozen || (l != nil && l.Frozen()) {
		return fmt.Errorf("add %s: %w", d.name, ErrFrozen)
	}
	if d.name == "" {
		return &RegistrationError{Handler: d.String(), Err: fmt.Errorf("handler name is required")}
	}
	if err := d.validate(); err != nil {
		return &RegistrationError{Handler: d.name, Err: err}
	}
	_, dup := c.names[d.name]
	if _, again := seen[d.name]; dup || again {
		return &RegistrationError{Handler: d.name, Err: ErrDuplicateHandler}
	}
	return nil
}

func (c *Collection) insert(d *Descriptor) {
	kind := d.kind.Normalize()
	list, ok := c.lists[kind]
	if !ok {
		list = NewDescriptorList(kind)
		c.lists[kind] = list
	}

	d.index = c.next
	list.insert(d)
	c.next++
	c.names[d.name] = struct{}{}
}

// Register builds a descriptor and adds it.
//
// Example:
//
//	err := c.Register("help", botdispatch.KindMessage, botdispatch.Of[helpHandler](),
//	    botdispatch.WithFilters(botdispatch.OnMessage(filters.Command("help"))),
//	)
func (c *Collection) Register(name string, kind UpdateKind, inst Instantiator, opts ...DescriptorOption) error {
	return c.Add(NewDescriptor(name, kind, inst, opts...))
}

// Freeze seals the collection and every list in it.
func (c *Collection) Freeze() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.frozen = true
	for _, l := range c.lists {
		l.Freeze()
	}
}

// Frozen reports whether the collection is sealed.
func (c *Collection) Frozen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frozen
}

// List returns the list serving kind, or nil when nothing is registered
// for it. Chosen inline results resolve to the inline query list.
func (c *Collection) List(kind UpdateKind) *DescriptorList {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lists[kind.Normalize()]
}

// Kinds returns the normalized kinds that have descriptors.
func (c *Collection) Kinds() []UpdateKind {
	c.mu.Lock()
	defer c.mu.Unlock()

	kinds := make([]UpdateKind, 0, len(c.lists))
	for k := range c.lists {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Len returns the total number of descriptors.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}
