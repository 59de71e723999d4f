package prediction

import "gitlab.com/yawning/avl.git"

// jitterEntry is the payload stored in the AVL tree, keyed by move id.
type jitterEntry struct {
	moveID int
	state  InputState
}

// JitterBuffer dejitters out-of-order server-received moves, sized to
// roughly 0.1s of ticks (spec §4.6: "pushed into a jitter buffer sized
// to ≈0.1 s of ticks, keyed by move_id. Each server tick pops the next
// in-order state; if none is ready, the tick is skipped"). Ordering is
// kept in an AVL tree rather than a manually re-sorted slice, the same
// structure xendarboh-katzenpost/server/internal/decoy/decoy.go uses
// for its ETA-ordered SURB sweep.
type JitterBuffer struct {
	capacity int
	tree     *avl.Tree
	byID     map[int]*avl.Node
	cursor   int
	started  bool
}

// NewJitterBuffer builds a buffer holding at most capacity entries.
func NewJitterBuffer(capacity int) *JitterBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &JitterBuffer{
		capacity: capacity,
		tree: avl.New(func(a, b interface{}) int {
			ea, eb := a.(*jitterEntry), b.(*jitterEntry)
			switch {
			case ea.moveID < eb.moveID:
				return -1
			case ea.moveID > eb.moveID:
				return 1
			default:
				return 0
			}
		}),
		byID: map[int]*avl.Node{},
	}
}

// Append inserts a move, keyed by its MoveID, evicting the
// lowest-keyed entry if the buffer is already at capacity.
func (j *JitterBuffer) Append(s InputState) {
	if existing, ok := j.byID[s.MoveID]; ok {
		j.tree.Remove(existing)
		delete(j.byID, s.MoveID)
	}

	if j.tree.Len() >= j.capacity {
		j.evictOldest()
	}

	entry := &jitterEntry{moveID: s.MoveID, state: s}
	node := j.tree.Insert(entry)
	j.byID[s.MoveID] = node
}

func (j *JitterBuffer) evictOldest() {
	iter := j.tree.Iterator(avl.Forward)
	node := iter.First()
	if node == nil {
		return
	}
	entry := node.Value.(*jitterEntry)
	j.tree.Remove(node)
	delete(j.byID, entry.moveID)
}

// Pop removes and returns the next in-order state. The first call
// picks up the lowest buffered move id as the starting cursor; every
// call after that requires an exact match on the expected next id, so
// a tick with a gap correctly reports "nothing ready" rather than
// skipping ahead.
func (j *JitterBuffer) Pop() (InputState, bool) {
	if !j.started {
		iter := j.tree.Iterator(avl.Forward)
		node := iter.First()
		if node == nil {
			return InputState{}, false
		}
		j.cursor = node.Value.(*jitterEntry).moveID
		j.started = true
	}

	node, ok := j.byID[j.cursor]
	if !ok {
		return InputState{}, false
	}
	entry := node.Value.(*jitterEntry)
	j.tree.Remove(node)
	delete(j.byID, entry.moveID)
	j.cursor = NextMoveID(j.cursor)
	return entry.state, true
}

// Len reports how many moves are currently buffered.
func (j *JitterBuffer) Len() int {
	return j.tree.Len()
}
