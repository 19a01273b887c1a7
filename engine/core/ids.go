package core

// IDTable maps state ids onto small ids. A small id stays bound to its state id while it has
// references and is handed out again once the last one is released, so small ids stay below the
// number of state ids referenced at once.
//
// IDTable is not safe for concurrent use.
type IDTable struct {
	refs map[int64]*idRef
	free []int64
	next int64
}

type idRef struct {
	id   int64
	uses int
}

// NewIDTable creates an empty table.
//
// Returns:
//   - *IDTable: the table
func NewIDTable() *IDTable {
	return &IDTable{refs: make(map[int64]*idRef)}
}

// Acquire returns the small id bound to stateID, binding the lowest free one on first use, and
// adds a reference.
//
// Parameters:
//   - stateID: the state id
//
// Returns:
//   - int64: the small id, starting at 0
func (t *IDTable) Acquire(stateID int64) int64 {
	if r, ok := t.refs[stateID]; ok {
		r.uses++
		return r.id
	}
	id := t.next
	if n := len(t.free); n > 0 {
		lowest := 0
		for i, f := range t.free {
			if f < t.free[lowest] {
				lowest = i
			}
		}
		id = t.free[lowest]
		t.free[lowest] = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.next++
	}
	t.refs[stateID] = &idRef{id: id, uses: 1}
	return id
}

// Lookup returns the small id bound to stateID without adding a reference.
func (t *IDTable) Lookup(stateID int64) (int64, bool) {
	r, ok := t.refs[stateID]
	if !ok {
		return 0, false
	}
	return r.id, true
}

// Release drops one reference to stateID. Unknown state ids are ignored.
func (t *IDTable) Release(stateID int64) {
	r, ok := t.refs[stateID]
	if !ok {
		return
	}
	r.uses--
	if r.uses > 0 {
		return
	}
	delete(t.refs, stateID)
	t.free = append(t.free, r.id)
}

// Len returns the number of bound state ids.
func (t *IDTable) Len() int {
	return len(t.refs)
}
