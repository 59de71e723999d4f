// Package prediction implements client-side input prediction and
// server reconciliation (spec §4.6): packed per-tick input state,
// a server-side jitter buffer for out-of-order moves, a reconciliation
// loop that replays stored moves after a correction, clock nudging and
// a rewind ring buffer for lag-compensated hit tests. Grounded on
// original_source/bge_network/controllers.py's PlayerController
// (on_initialised's pending_moves/buffered_moves setup, player_update,
// server_check_move, client_apply_correction).
package prediction

// ButtonState is the tri-state of one logical button for one tick
// (spec §4.6: "pressed, held, released ... none is implicit").
type ButtonState uint8

const (
	ButtonNone ButtonState = iota
	ButtonPressed
	ButtonHeld
	ButtonReleased
)

// MaxMoveID is the wraparound modulus for move identifiers (spec
// §4.6 "Increment move_id (modulo 1000)").
const MaxMoveID = 1000

// InputState is one tick's packed client input (spec §4.6 step 1): a
// named button set plus analogue ranges, together with the move id and
// the physics state the client observed after applying it.
type InputState struct {
	MoveID   int
	Buttons  map[string]ButtonState
	Ranges   map[string]float64
	Position [3]float64
	Yaw      float64
}

// NextMoveID increments a move id with the spec's modulo-1000 wrap.
func NextMoveID(current int) int {
	return (current + 1) % MaxMoveID
}

// RecentStates is the short deque of packed states piggybacked on every
// move send (spec §4.6 step 3: "push into a short recent_states deque
// (≤ 5)"), guarding against dropped unreliable move packets.
type RecentStates struct {
	max    int
	states []InputState
}

// NewRecentStates builds a deque capped at max entries (spec default 5).
func NewRecentStates(max int) *RecentStates {
	if max <= 0 {
		max = 5
	}
	return &RecentStates{max: max}
}

// Push appends a state, evicting the oldest once over capacity.
func (r *RecentStates) Push(s InputState) {
	r.states = append(r.states, s)
	if len(r.states) > r.max {
		r.states = r.states[len(r.states)-r.max:]
	}
}

// All returns the buffered states, oldest first.
func (r *RecentStates) All() []InputState {
	return append([]InputState{}, r.states...)
}
