// Package events provides the per-session publish/subscribe bus.
//
// Subscribers register for a single event [Name]. [Bus.Emit] delivers
// synchronously, in subscription order, on the caller's goroutine. Handlers
// may subscribe, unsubscribe or emit from within a handler; changes take
// effect for the next emission.
package events

import (
	"sync"
	"time"
)

// Name identifies an event.
type Name string

// Session events.
const (
	Rendered            Name = "rendered"
	SyncLayoutCompleted Name = "syncLayoutCompleted"
	WorkerStarted       Name = "initialFA2wwStarted"
	WorkerCompleted     Name = "initialFA2wwCompleted"

	ClickNode      Name = "clickNode"
	RightClickNode Name = "rightClickNode"
	DragNode       Name = "dragNode"
	DraggedNode    Name = "draggedNode"
	EnterNode      Name = "enterNode"
	LeaveNode      Name = "leaveNode"

	NodeInfoBoxOpened Name = "nodeInfoBoxOpened"
	NodeInfoBoxClosed Name = "nodeInfoBoxClosed"
	ContextMenuOpened Name = "contextMenuOpened"
	ContextMenuClosed Name = "contextMenuClosed"
)

// All lists every event name the session emits.
var All = []Name{
	Rendered, SyncLayoutCompleted, WorkerStarted, WorkerCompleted,
	ClickNode, RightClickNode, DragNode, DraggedNode, EnterNode, LeaveNode,
	NodeInfoBoxOpened, NodeInfoBoxClosed, ContextMenuOpened, ContextMenuClosed,
}

// Pointer is a raw pointer interaction in graph coordinates.
type Pointer struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button int     `json:"button,omitempty"`
}

// Event is a single emission.
type Event struct {
	Name    Name           `json:"name"`
	Node    string         `json:"node,omitempty"`
	Pointer *Pointer       `json:"pointer,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Time    time.Time      `json:"time"`
}

// Handler receives events.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a publish/subscribe channel per event name.
// The zero value is ready for use. Bus is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Name][]subscription
	nextID uint64
}

// Subscribe registers h for events named name and returns a function that
// removes the registration.
func (b *Bus) Subscribe(name Name, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[Name][]subscription)
	}
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, id) })
	}
}

// SubscribeAll registers h for every name in All.
func (b *Bus) SubscribeAll(h Handler) (unsubscribe func()) {
	unsubs := make([]func(), 0, len(All))
	for _, n := range All {
		unsubs = append(unsubs, b.Subscribe(n, h))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Emit delivers e to every subscriber of e.Name in subscription order.
// A zero Time is set to the current time.
func (b *Bus) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[e.Name]))
	copy(subs, b.subs[e.Name])
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(e)
	}
}

// Count returns the number of subscribers for name.
func (b *Bus) Count(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Clear removes every subscription.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = nil
}

func (b *Bus) remove(name Name, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			b.subs[name] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}
