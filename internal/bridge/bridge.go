// Package bridge relays named events between backend logic and the
// presentation surfaces.
//
// Events are addressed to a surface (window label) and carry a name and an
// opaque JSON payload. A handler registered with On receives every event of
// its name emitted to its surface after registration, in emission order.
// There is no replay buffer and no notion of direction: the front-end and
// the backend use the same two primitives.
package bridge

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("bridge closed")

// Event is a named message addressed to one surface.
type Event struct {
	ID      ulid.ULID
	Window  string
	Name    string
	Payload json.RawMessage
}

// Handler receives events. Handlers for one subscription are never called
// concurrently.
type Handler func(Event)

type key struct {
	window string
	name   string
}

// Bridge is a publish/subscribe registry keyed by (surface, event name).
// It is safe for concurrent use.
type Bridge struct {
	mu     sync.RWMutex
	subs   map[key][]*Subscription
	closed bool

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates an empty bridge.
func New() *Bridge {
	return &Bridge{
		subs:    make(map[key][]*Subscription),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// On registers h for events named name emitted to window.
func (b *Bridge) On(window, name string, h Handler) *Subscription {
	sub := newSubscription(b, key{window: window, name: name}, h)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.stop()
		return sub
	}
	b.subs[sub.key] = append(b.subs[sub.key], sub)
	b.mu.Unlock()

	go sub.run()
	return sub
}

// Emit sends an event to every handler registered for (window, name).
// payload is marshalled to JSON; a json.RawMessage or []byte is used as-is.
// Emit never waits for handlers.
func (b *Bridge) Emit(window, name string, payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", name, err)
	}

	ev := Event{
		ID:      b.newID(),
		Window:  window,
		Name:    name,
		Payload: raw,
	}

	// Enqueue under the read lock so concurrent emits to one subscription
	// keep the order in which they acquired it.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for _, sub := range b.subs[key{window: window, name: name}] {
		sub.enqueue(ev)
	}
	return nil
}

// Listeners returns the number of handlers registered for (window, name).
func (b *Bridge) Listeners(window, name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[key{window: window, name: name}])
}

// Close cancels every subscription. Events already queued are dropped.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	all := b.subs
	b.subs = make(map[key][]*Subscription)
	b.mu.Unlock()

	for _, subs := range all {
		for _, sub := range subs {
			sub.stop()
		}
	}
}

func (b *Bridge) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[sub.key]
	for i, s := range subs {
		if s == sub {
			b.subs[sub.key] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[sub.key]) == 0 {
		delete(b.subs, sub.key)
	}
}

func (b *Bridge) newID() ulid.ULID {
	b.idMu.Lock()
	defer b.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), b.entropy)
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		if !json.Valid(p) {
			return nil, errors.New("invalid JSON")
		}
		return p, nil
	case []byte:
		if !json.Valid(p) {
			return nil, errors.New("invalid JSON")
		}
		return json.RawMessage(p), nil
	default:
		return json.Marshal(payload)
	}
}

// Subscription is a registered handler. Each subscription delivers on its
// own goroutine from an unbounded FIFO, so a slow handler delays only
// itself.
type Subscription struct {
	bridge  *Bridge
	key     key
	handler Handler

	mu      sync.Mutex
	queue   []Event
	wake    chan struct{}
	done    chan struct{}
	stopped bool
}

func newSubscription(b *Bridge, k key, h Handler) *Subscription {
	return &Subscription{
		bridge:  b,
		key:     k,
		handler: h,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Cancel unregisters the handler. Queued events are dropped.
func (s *Subscription) Cancel() {
	s.bridge.remove(s)
	s.stop()
}

func (s *Subscription) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.queue = nil
	close(s.done)
}

func (s *Subscription) enqueue(ev Event) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if s.stopped || len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.queue[0]
			s.queue[0] = Event{}
			s.queue = s.queue[1:]
			s.mu.Unlock()

			s.deliver(ev)
		}
	}
}

func (s *Subscription) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[bridge] Handler for %s on %q panicked: %v", ev.Name, ev.Window, r)
		}
	}()
	s.handler(ev)
}
