package prediction

import (
	"container/list"
	"math"
)

// MaxPositionErrorSquared and MaxOrientationAngleErrorSquared are the
// authority-side correction thresholds (spec §4.6: "≈0.5" and
// "≈(5°)²"), grounded on controllers.py's
// `max_position_difference_squared = 0.5` and
// `max_rotation_difference_squared = ((2 * pi) / 60) ** 2` (the
// teacher expresses the angle limit in radians-squared directly; this
// port keeps the spec's degree-based constant instead, since no
// physics-engine radian convention is owned by this module).
var (
	MaxPositionErrorSquared         = 0.5
	MaxOrientationAngleErrorSquared = math.Pow(5*math.Pi/180, 2)
)

// PendingMoves is the client's ordered record of applied-but-not-yet-
// acknowledged moves (spec §4.6 step 3's `sent_states`, and
// controllers.py's `self.pending_moves = OrderedDict()`), used to
// discard acknowledged moves and replay the remainder after a
// correction.
type PendingMoves struct {
	order *list.List
	byID  map[int]*list.Element
}

// NewPendingMoves returns an empty ordered move record.
func NewPendingMoves() *PendingMoves {
	return &PendingMoves{order: list.New(), byID: map[int]*list.Element{}}
}

// Store records a move, keeping insertion order.
func (p *PendingMoves) Store(s InputState) {
	if el, ok := p.byID[s.MoveID]; ok {
		el.Value = s
		return
	}
	el := p.order.PushBack(s)
	p.byID[s.MoveID] = el
}

// DiscardThrough removes every move whose id is no newer than moveID
// (spec §4.6: "Client states older than the acknowledged move_id are
// discarded").
func (p *PendingMoves) DiscardThrough(moveID int) {
	for el := p.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(InputState).MoveID <= moveID {
			delete(p.byID, el.Value.(InputState).MoveID)
			p.order.Remove(el)
		}
		el = next
	}
}

// From returns every stored move with id >= moveID, in order, for
// replay after a correction (spec §4.6: "re-applies every stored input
// state from move_id forward").
func (p *PendingMoves) From(moveID int) []InputState {
	var out []InputState
	for el := p.order.Front(); el != nil; el = el.Next() {
		s := el.Value.(InputState)
		if s.MoveID >= moveID {
			out = append(out, s)
		}
	}
	return out
}

// Len reports how many moves are currently stored.
func (p *PendingMoves) Len() int {
	return p.order.Len()
}

// Correction is the authority's verdict for a single validated move
// (spec §4.6: `client_correct_move(move_id, position, yaw, velocity,
// angular_yaw)`).
type Correction struct {
	MoveID     int
	Position   [3]float64
	Yaw        float64
	Velocity   [3]float64
	AngularYaw float64
}

// Validate compares the server's post-step pawn state against the
// client-reported move and returns a Correction when the divergence
// exceeds the error thresholds (spec §4.6 "After the server's own
// physics tick ..."), grounded on controllers.py's
// `get_corrected_state`.
func Validate(move InputState, serverPosition [3]float64, serverVelocity [3]float64, serverYaw, serverAngularYaw float64) (Correction, bool) {
	dx := serverPosition[0] - move.Position[0]
	dy := serverPosition[1] - move.Position[1]
	dz := serverPosition[2] - move.Position[2]
	positionErrorSquared := dx*dx + dy*dy + dz*dz

	yawDiff := serverYaw - move.Yaw
	yawErrorSquared := yawDiff * yawDiff
	wrapped := (4 * math.Pi * math.Pi) - yawErrorSquared
	if wrapped < yawErrorSquared {
		yawErrorSquared = wrapped
	}

	if positionErrorSquared <= MaxPositionErrorSquared && yawErrorSquared <= MaxOrientationAngleErrorSquared {
		return Correction{}, false
	}

	return Correction{
		MoveID:     move.MoveID,
		Position:   serverPosition,
		Yaw:        serverYaw,
		Velocity:   serverVelocity,
		AngularYaw: serverAngularYaw,
	}, true
}

// ApplyMove replays one stored input against a pawn's physics
// interface; callers supply the actual stepping function since physics
// is an external collaborator (spec §6 "Engine collaborators").
type ApplyMove func(InputState)

// Reconcile discards acknowledged history, then replays every move
// from the corrected id forward through apply, so local prediction
// reconverges without a visible teleport (spec §4.6).
func Reconcile(pending *PendingMoves, correction Correction, apply ApplyMove) {
	replay := pending.From(correction.MoveID)
	pending.DiscardThrough(correction.MoveID - 1)
	for _, move := range replay {
		apply(move)
	}
}
