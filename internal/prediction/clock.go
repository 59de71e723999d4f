package prediction

// ClockSync tracks the client's estimate of the server's elapsed time
// and nudges the local clock towards it (spec §4.6 "Clock
// synchronisation"), grounded on controllers.py's
// `server_setup_clock`/`PlayerClock` collaborator (the clock itself
// lives in `.clock`, not reproduced here since its replicated-attribute
// wiring is `internal/replication`'s concern; this type owns only the
// nudge arithmetic).
type ClockSync struct {
	NudgeMinimum float64
	NudgeMaximum float64

	EstimatedElapsedServer float64
}

// NewClockSync returns a ClockSync using the spec's default thresholds
// (0.05s / 0.4s).
func NewClockSync() *ClockSync {
	return &ClockSync{NudgeMinimum: 0.05, NudgeMaximum: 0.4}
}

// Adjust computes diff = estimated_elapsed_server - (localElapsed +
// ping) and returns the correction to subtract from
// EstimatedElapsedServer: zero inside the dead zone, the full diff
// when it exceeds NudgeMaximum ("snap"), otherwise diff*0.8 ("nudge").
func (c *ClockSync) Adjust(localElapsed, ping float64) float64 {
	diff := c.EstimatedElapsedServer - (localElapsed + ping)
	abs := diff
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs < c.NudgeMinimum:
		return 0
	case abs > c.NudgeMaximum:
		c.EstimatedElapsedServer -= diff
		return diff
	default:
		nudge := diff * 0.8
		c.EstimatedElapsedServer -= nudge
		return nudge
	}
}
