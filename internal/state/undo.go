package state

import (
	"github.com/nuance-app/nuance/internal/core"
)

// undoDepth bounds the snapshot stack; older snapshots fall off the bottom.
const undoDepth = 20

// snapshot captures the catalog and working input before a mutation.
// History is deliberately excluded: saves are not undoable.
type snapshot struct {
	Catalog *core.Catalog  `json:"catalog"`
	Day     *core.DayInput `json:"day"`
}

type undoStack struct {
	depth int
	stack []snapshot
}

func newUndoStack(depth int) *undoStack {
	return &undoStack{depth: depth}
}

func (u *undoStack) push(s snapshot) {
	u.stack = append(u.stack, s)
	u.trim()
}

func (u *undoStack) pop() (snapshot, bool) {
	if len(u.stack) == 0 {
		return snapshot{}, false
	}
	s := u.stack[len(u.stack)-1]
	u.stack = u.stack[:len(u.stack)-1]
	return s, true
}

func (u *undoStack) trim() {
	if u.depth > 0 && len(u.stack) > u.depth {
		u.stack = u.stack[len(u.stack)-u.depth:]
	}
}

func (u *undoStack) len() int { return len(u.stack) }

// snapshotLocked pushes the current catalog and day input. Callers hold a.mu.
func (a *App) snapshotLocked() {
	a.undo.push(snapshot{
		Catalog: a.catalog.Clone(),
		Day:     a.day.Clone(),
	})
}

// Snapshot records an undo point explicitly, for callers about to batch
// several mutations they want reverted as one step.
func (a *App) Snapshot() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshotLocked()
}

// Undo restores the most recent snapshot. Catalog and working input revert;
// history and access state do not.
func (a *App) Undo() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.undo.pop()
	if !ok {
		return core.ErrNothingToUndo
	}
	a.catalog = s.Catalog
	a.day = s.Day
	hydrate(a.catalog, a.day)
	return nil
}

// UndoDepth reports how many undo steps are available.
func (a *App) UndoDepth() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.undo.len()
}
