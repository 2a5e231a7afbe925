package events

import (
	"slices"
	"testing"
)

func TestEmitOrder(t *testing.T) {
	var b Bus
	var got []string
	b.Subscribe(Rendered, func(Event) { got = append(got, "first") })
	b.Subscribe(Rendered, func(Event) { got = append(got, "second") })
	b.Subscribe(ClickNode, func(Event) { got = append(got, "other") })

	b.Emit(Event{Name: Rendered})
	if !slices.Equal(got, []string{"first", "second"}) {
		t.Errorf("delivery = %v, want [first second]", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	var b Bus
	calls := 0
	unsub := b.Subscribe(EnterNode, func(Event) { calls++ })
	b.Emit(Event{Name: EnterNode})
	unsub()
	unsub()
	b.Emit(Event{Name: EnterNode})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if b.Count(EnterNode) != 0 {
		t.Errorf("Count() = %d, want 0", b.Count(EnterNode))
	}
}

func TestHandlerMaySubscribeDuringEmit(t *testing.T) {
	var b Bus
	inner := 0
	b.Subscribe(LeaveNode, func(Event) {
		b.Subscribe(LeaveNode, func(Event) { inner++ })
	})
	b.Emit(Event{Name: LeaveNode})
	if inner != 0 {
		t.Errorf("handler added during emit ran %d times, want 0", inner)
	}
	b.Emit(Event{Name: LeaveNode})
	if inner != 1 {
		t.Errorf("inner = %d, want 1", inner)
	}
}

func TestEmitSetsTimeAndPayload(t *testing.T) {
	var b Bus
	var got Event
	b.Subscribe(ClickNode, func(e Event) { got = e })
	b.Emit(Event{Name: ClickNode, Node: "a", Pointer: &Pointer{X: 1, Y: 2}})

	if got.Node != "a" || got.Pointer.X != 1 {
		t.Errorf("event = %+v", got)
	}
	if got.Time.IsZero() {
		t.Error("Time not set")
	}
}

func TestSubscribeAllAndClear(t *testing.T) {
	var b Bus
	seen := map[Name]bool{}
	unsub := b.SubscribeAll(func(e Event) { seen[e.Name] = true })
	for _, n := range All {
		b.Emit(Event{Name: n})
	}
	if len(seen) != len(All) {
		t.Errorf("seen %d names, want %d", len(seen), len(All))
	}
	unsub()

	b.Subscribe(Rendered, func(Event) { t.Error("handler ran after Clear") })
	b.Clear()
	b.Emit(Event{Name: Rendered})
}
