// Package journal records undo actions so that a group of in-memory state
// changes spread over several components can be rolled back together.
//
// Every component that must revert with the ledger appends an undo function
// after each mutation. A caller takes a Snapshot before a unit of work and
// either calls RevertToSnapshot on failure or Reset once the outermost unit
// has succeeded.
package journal

import "fmt"

// Journal is an ordered list of undo actions. The zero value is ready to use.
// A nil *Journal accepts appends and discards them.
type Journal struct {
	entries []func()
}

// New returns an empty journal.
func New() *Journal { return &Journal{} }

// Append records the action that undoes the mutation just performed.
func (j *Journal) Append(undo func()) {
	if j == nil || undo == nil {
		return
	}
	j.entries = append(j.entries, undo)
}

// Snapshot returns an identifier for the current position in the journal.
func (j *Journal) Snapshot() int {
	if j == nil {
		return 0
	}
	return len(j.entries)
}

// RevertToSnapshot undoes, newest first, every action recorded after the
// snapshot was taken.
func (j *Journal) RevertToSnapshot(id int) {
	if j == nil {
		return
	}
	if id < 0 || id > len(j.entries) {
		panic(fmt.Sprintf("journal: snapshot %d out of range [0, %d]", id, len(j.entries)))
	}
	for i := len(j.entries) - 1; i >= id; i-- {
		j.entries[i]()
		j.entries[i] = nil
	}
	j.entries = j.entries[:id]
}

// Reset forgets every recorded action, making the changes permanent.
func (j *Journal) Reset() {
	if j == nil {
		return
	}
	clear(j.entries)
	j.entries = j.entries[:0]
}

// Len reports the number of recorded actions.
func (j *Journal) Len() int {
	if j == nil {
		return 0
	}
	return len(j.entries)
}
