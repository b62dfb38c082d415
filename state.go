package botdispatch

import (
	"fmt"
	"reflect"
	"sync"
)

// StateKeeper maps a conversation key to its current state. Reads and
// writes are per key; callers that need a multi-step conversation to be
// consistent under concurrent handlers must serialize them themselves.
type StateKeeper[K comparable, S comparable] interface {
	Get(key K) (S, bool)
	Set(key K, s S)
	Delete(key K)
}

// MemoryKeeper is an in-memory StateKeeper.
type MemoryKeeper[K comparable, S comparable] struct {
	mu sync.RWMutex
	m  map[K]S
}

// NewMemoryKeeper creates an empty in-memory keeper.
func NewMemoryKeeper[K comparable, S comparable]() *MemoryKeeper[K, S] {
	return &MemoryKeeper[K, S]{m: make(map[K]S)}
}

// Get returns the state of key.
func (k *MemoryKeeper[K, S]) Get(key K) (S, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	s, ok := k.m[key]
	return s, ok
}

// Set records s for key.
func (k *MemoryKeeper[K, S]) Set(key K, s S) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = s
}

// Delete forgets key.
func (k *MemoryKeeper[K, S]) Delete(key K) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.m, key)
}

// Modify replaces the state of key with fn's result in one step. fn gets
// the current state and whether one exists; returning keep=false deletes it.
func (k *MemoryKeeper[K, S]) Modify(key K, fn func(cur S, ok bool) (next S, keep bool)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	cur, ok := k.m[key]
	next, keep := fn(cur, ok)
	if !keep {
		delete(k.m, key)
		return
	}
	k.m[key] = next
}

// Len returns the number of keys with a state.
func (k *MemoryKeeper[K, S]) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.m)
}

// ChatKeeper holds state per chat.
type ChatKeeper[S comparable] struct {
	*MemoryKeeper[int64, S]
}

// SenderKeeper holds state per user.
type SenderKeeper[S comparable] struct {
	*MemoryKeeper[int64, S]
}

// StateRegistry owns one keeper per (key type, state type, keeper type)
// combination. The first caller of a combination constructs it; everyone
// after shares it.
type StateRegistry struct {
	mu      sync.Mutex
	keepers map[reflect.Type]any
}

// NewStateRegistry creates an empty registry.
func NewStateRegistry() *StateRegistry {
	return &StateRegistry{keepers: make(map[reflect.Type]any)}
}

type keeperKey[K comparable, S comparable, P any] struct{}

// Keeper returns the registry's keeper of type P, constructing it with
// newFn on first use.
func Keeper[K comparable, S comparable, P StateKeeper[K, S]](reg *StateRegistry, newFn func() P) P {
	t := reflect.TypeFor[keeperKey[K, S, P]]()

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if k, ok := reg.keepers[t]; ok {
		return k.(P)
	}
	k := newFn()
	reg.keepers[t] = k
	return k
}

// ChatState returns the shared per-chat keeper for S.
func ChatState[S comparable](reg *StateRegistry) *ChatKeeper[S] {
	return Keeper[int64, S](reg, newChatKeeper[S])
}

// SenderState returns the shared per-user keeper for S.
func SenderState[S comparable](reg *StateRegistry) *SenderKeeper[S] {
	return Keeper[int64, S](reg, newSenderKeeper[S])
}

func newChatKeeper[S comparable]() *ChatKeeper[S] {
	return &ChatKeeper[S]{NewMemoryKeeper[int64, S]()}
}

func newSenderKeeper[S comparable]() *SenderKeeper[S] {
	return &SenderKeeper[S]{NewMemoryKeeper[int64, S]()}
}

type stateMode int

const (
	stateAny stateMode = iota
	stateNone
	stateEquals
)

// StateMatch is what a state gate expects of the current state.
type StateMatch[S comparable] struct {
	mode  stateMode
	value S
}

// AnyState matches whatever the state is, including none.
func AnyState[S comparable]() StateMatch[S] { return StateMatch[S]{mode: stateAny} }

// NoState matches only keys without a recorded state.
func NoState[S comparable]() StateMatch[S] { return StateMatch[S]{mode: stateNone} }

// StateIs matches keys whose state equals v.
func StateIs[S comparable](v S) StateMatch[S] { return StateMatch[S]{mode: stateEquals, value: v} }

// Matches reports whether a lookup result satisfies m.
func (m StateMatch[S]) Matches(s S, ok bool) bool {
	switch m.mode {
	case stateNone:
		return !ok
	case stateEquals:
		return ok && s == m.value
	}
	return true
}

func (m StateMatch[S]) String() string {
	switch m.mode {
	case stateNone:
		return "none"
	case stateEquals:
		return fmt.Sprintf("is(%v)", m.value)
	}
	return "any"
}

// StateGate builds the state gate of a descriptor. The keeper is fetched
// from reg on first evaluation. An update without a key only passes AnyState.
// On success the gate publishes the current state.
func StateGate[K comparable, S comparable, P StateKeeper[K, S]](
	reg *StateRegistry,
	newFn func() P,
	resolve func(*Update) (K, bool),
	m StateMatch[S],
) Filter[*Update] {
	return NamedFunc("state", func(mc *MatchContext[*Update]) bool {
		key, ok := resolve(mc.Value)
		if !ok {
			return m.mode == stateAny
		}
		s, found := Keeper[K, S](reg, newFn).Get(key)
		if !m.Matches(s, found) {
			return false
		}
		if found {
			mc.Publish(s)
		}
		return true
	})
}

// ChatStateGate gates on the per-chat state of S.
func ChatStateGate[S comparable](reg *StateRegistry, m StateMatch[S]) Filter[*Update] {
	return StateGate[int64, S](reg, newChatKeeper[S], ChatKey, m)
}

// SenderStateGate gates on the per-user state of S.
func SenderStateGate[S comparable](reg *StateRegistry, m StateMatch[S]) Filter[*Update] {
	return StateGate[int64, S](reg, newSenderKeeper[S], SenderKey, m)
}
