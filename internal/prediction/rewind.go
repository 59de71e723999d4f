package prediction

// RewindState is one tick's recorded physics snapshot for a single
// pawn (spec §4.6: "position, orientation, active animations with
// their frame numbers").
type RewindState struct {
	Tick        int64
	Position    [3]float64
	Orientation [3]float64
	Animations  map[string]int
}

// RewindBuffer is a fixed-depth ring of past physics states for one
// pawn, one second deep at tick rate (spec §4.6: "MUST retain a ring
// buffer of past states ... one-second deep at tick rate"), grounded
// on controllers.py's `server_fire`'s `PhysicsRewindSignal.invoke(...,
// WorldInfo.tick - latency_ticks)` rollback call.
type RewindBuffer struct {
	states []RewindState
	next   int
	filled bool
}

// NewRewindBuffer allocates a buffer holding depth ticks of history.
func NewRewindBuffer(depth int) *RewindBuffer {
	if depth <= 0 {
		depth = 1
	}
	return &RewindBuffer{states: make([]RewindState, depth)}
}

// Record stores the current tick's state, overwriting the oldest slot.
func (r *RewindBuffer) Record(s RewindState) {
	r.states[r.next] = s
	r.next = (r.next + 1) % len(r.states)
	if r.next == 0 {
		r.filled = true
	}
}

// At returns the recorded state for the given tick, if still within
// the retained window.
func (r *RewindBuffer) At(tick int64) (RewindState, bool) {
	limit := len(r.states)
	if !r.filled {
		limit = r.next
	}
	for i := 0; i < limit; i++ {
		if r.states[i].Tick == tick {
			return r.states[i], true
		}
	}
	return RewindState{}, false
}

// RollbackTick computes the tick to roll pawns back to for a
// lag-compensated hit evaluation (spec §4.6: "current_tick -
// ping_in_ticks - 1").
func RollbackTick(currentTick int64, pingTicks int64) int64 {
	return currentTick - pingTicks - 1
}

// Rewind rolls every tracked pawn back to its recorded state at
// targetTick, invokes callback, then restores the present state. The
// caller supplies restoreCurrent since "present state" is whatever the
// live physics interface holds, not something this buffer owns.
func Rewind(buffers map[string]*RewindBuffer, targetTick int64, apply func(pawn string, s RewindState), callback func(), restoreCurrent func()) {
	for pawn, buf := range buffers {
		if s, ok := buf.At(targetTick); ok {
			apply(pawn, s)
		}
	}
	callback()
	restoreCurrent()
}
