package botdispatch

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Table is a declarative registration table: which handler serves which
// update kind, behind which filters, in which order.
//
// Example:
//
//	handlers:
//	  - name: start
//	    kind: message
//	    priority: 0
//	    filters:
//	      - name: command
//	        args: [start]
//	  - name: ask-name
//	    kind: message
//	    state: {scope: chat, match: is, value: asking}
//	    filters:
//	      - name: has_text
type Table struct {
	Handlers []TableEntry `yaml:"handlers"`
}

// TableEntry declares one descriptor.
type TableEntry struct {
	// Name is the descriptor name.
	Name string `yaml:"name"`

	// Handler names the bound Instantiator. Defaults to Name.
	Handler string `yaml:"handler"`

	Kind        string       `yaml:"kind"`
	Priority    int          `yaml:"priority"`
	Concurrency int          `yaml:"concurrency"`
	Shape       *FilterSpec  `yaml:"shape"`
	State       *StateSpec   `yaml:"state"`
	Filters     []FilterSpec `yaml:"filters"`
}

// FilterSpec names a bound FilterBuilder and its arguments.
type FilterSpec struct {
	Name string   `yaml:"name"`
	Args []string `yaml:"args"`
}

// StateSpec declares a string-valued state gate.
type StateSpec struct {
	// Scope is "chat" (default) or "sender".
	Scope string `yaml:"scope"`

	// Match is "any", "none" or "is".
	Match string `yaml:"match"`

	// Value is the expected state when Match is "is".
	Value string `yaml:"value"`
}

// FilterBuilder builds a filter from table arguments.
type FilterBuilder func(args ...string) (Filter[*Update], error)

// TableBindings binds the names a table uses to Go values.
type TableBindings struct {
	Handlers map[string]Instantiator
	Filters  map[string]FilterBuilder
	States   *StateRegistry
}

// LoadTable decodes a YAML table. Unknown fields are rejected.
func LoadTable(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var t Table
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return &t, nil
		}
		return nil, fmt.Errorf("decode handler table: %w", err)
	}
	return &t, nil
}

// ApplyTable builds every entry of t and adds it to c. Entries are all
// built before any is added, so a malformed entry leaves c untouched.
func (c *Collection) ApplyTable(t *Table, b TableBindings) error {
	descs := make([]*Descriptor, 0, len(t.Handlers))
	for _, e := range t.Handlers {
		d, err := e.descriptor(b)
		if err != nil {
			return &RegistrationError{Handler: e.Name, Err: err}
		}
		descs = append(descs, d)
	}
	return c.AddAll(descs...)
}

func (e TableEntry) descriptor(b TableBindings) (*Descriptor, error) {
	kind, err := ParseKind(e.Kind)
	if err != nil {
		return nil, err
	}

	handler := e.Handler
	if handler == "" {
		handler = e.Name
	}
	inst, ok := b.Handlers[handler]
	if !ok {
		return nil, fmt.Errorf("no handler bound to %q", handler)
	}

	opts := []DescriptorOption{WithPriority(e.Priority), WithConcurrency(e.Concurrency)}

	if e.Shape != nil {
		f, err := e.Shape.build(b)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithShape(f))
	}
	if e.State != nil {
		f, err := e.State.build(b)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithStateGate(f))
	}
	for _, spec := range e.Filters {
		f, err := spec.build(b)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithFilters(f))
	}

	return NewDescriptor(e.Name, kind, inst, opts...), nil
}

func (s FilterSpec) build(b TableBindings) (Filter[*Update], error) {
	fn, ok := b.Filters[s.Name]
	if !ok {
		return nil, fmt.Errorf("unknown filter %q", s.Name)
	}
	f, err := fn(s.Args...)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", s.Name, err)
	}
	return f, nil
}

func (s StateSpec) build(b TableBindings) (Filter[*Update], error) {
	if b.States == nil {
		return nil, errors.New("state gate needs a state registry")
	}

	var m StateMatch[string]
	switch s.Match {
	case "", "any":
		m = AnyState[string]()
	case "none":
		m = NoState[string]()
	case "is":
		m = StateIs(s.Value)
	default:
		return nil, fmt.Errorf("unknown state match %q", s.Match)
	}

	switch s.Scope {
	case "", "chat":
		return ChatStateGate(b.States, m), nil
	case "sender":
		return SenderStateGate(b.States, m), nil
	}
	return nil, fmt.Errorf("unknown state scope %q", s.Scope)
}
