// Package history implements the linear undo/redo log of a graph session.
//
// A [Manager] stores [Action]s in order. Actions before the cursor are active
// (never reverted, or re-applied by redo); actions from the cursor on form a
// single contiguous reverted suffix reachable by redo. Adding an action while
// the cursor sits before the tail discards that suffix: there are no
// branching timelines.
//
// The manager only records what happened. Interpreting a [Change] and
// replaying it against the graph is the session's job.
package history

// Action is one reversible entry of the log.
type Action struct {
	Change   Change
	Reverted bool
}

// Type returns the type of the action's change.
func (a *Action) Type() Type {
	if a.Change == nil {
		return ""
	}
	return a.Change.Type()
}

// Manager is the append-only action log with a single cursor.
//
// The zero value is an empty log ready for use.
// Manager is not safe for concurrent use.
type Manager struct {
	actions []*Action
	cursor  int // number of active actions
}

// NewManager returns an empty log.
func NewManager() *Manager {
	return &Manager{}
}

// Add appends a new active action and returns it. A reverted suffix is
// discarded first. Nil changes are ignored.
func (m *Manager) Add(c Change) *Action {
	if c == nil {
		return nil
	}
	for i := m.cursor; i < len(m.actions); i++ {
		m.actions[i] = nil
	}
	m.actions = m.actions[:m.cursor]
	a := &Action{Change: c}
	m.actions = append(m.actions, a)
	m.cursor++
	return a
}

// Latest returns the most recent active action.
func (m *Manager) Latest() (*Action, bool) {
	if m.cursor == 0 {
		return nil, false
	}
	return m.actions[m.cursor-1], true
}

// LatestReverted returns the reverted action adjacent to the cursor, the one
// a redo would re-apply.
func (m *Manager) LatestReverted() (*Action, bool) {
	if m.cursor >= len(m.actions) {
		return nil, false
	}
	return m.actions[m.cursor], true
}

// MarkLatestReverted flags the most recent active action as reverted and
// moves the cursor back. It reports false when nothing is active.
func (m *Manager) MarkLatestReverted() bool {
	a, ok := m.Latest()
	if !ok {
		return false
	}
	a.Reverted = true
	m.cursor--
	return true
}

// MarkLatestRevertedNotReverted clears the reverted flag of the action
// adjacent to the cursor and moves the cursor forward. It reports false when
// nothing is reverted.
func (m *Manager) MarkLatestRevertedNotReverted() bool {
	a, ok := m.LatestReverted()
	if !ok {
		return false
	}
	a.Reverted = false
	m.cursor++
	return true
}

// Len returns the number of actions, active and reverted.
func (m *Manager) Len() int { return len(m.actions) }

// Cursor returns the number of active actions.
func (m *Manager) Cursor() int { return m.cursor }

// CanUndo reports whether an active action exists.
func (m *Manager) CanUndo() bool { return m.cursor > 0 }

// CanRedo reports whether a reverted action exists.
func (m *Manager) CanRedo() bool { return m.cursor < len(m.actions) }

// Entries returns a summary of every action in order.
func (m *Manager) Entries() []Entry {
	out := make([]Entry, len(m.actions))
	for i, a := range m.actions {
		out[i] = Entry{Type: a.Type(), Reverted: a.Reverted}
	}
	return out
}

// Entry is a read-only view of an action.
type Entry struct {
	Type     Type `json:"type"`
	Reverted bool `json:"reverted"`
}
