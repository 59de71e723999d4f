package transport

import "time"

// LatencyEstimator samples round-trip time via heartbeat ack/not-ack
// callbacks (spec §4.4: "Heartbeat packets carry a latency sample id;
// on ack, the round-trip is recorded"). Grounded on the shape of the
// teacher's on_success/on_failure Packet callbacks rather than a
// specific file, since the pack carries no equivalent utility module.
type LatencyEstimator struct {
	nextID  uint32
	started map[uint32]time.Time
	rtt     time.Duration
}

// NewLatencyEstimator returns an estimator with no samples taken yet.
func NewLatencyEstimator() *LatencyEstimator {
	return &LatencyEstimator{started: map[uint32]time.Time{}}
}

// StartSample begins timing a new heartbeat round trip and returns its id.
func (l *LatencyEstimator) StartSample() uint32 {
	l.nextID++
	id := l.nextID
	l.started[id] = time.Now()
	return id
}

// StopSample completes a sample on ack, recording the measured RTT.
func (l *LatencyEstimator) StopSample(id uint32) time.Duration {
	start, ok := l.started[id]
	if !ok {
		return l.rtt
	}
	delete(l.started, id)
	l.rtt = time.Since(start)
	return l.rtt
}

// IgnoreSample discards a sample whose heartbeat was never acked.
func (l *LatencyEstimator) IgnoreSample(id uint32) {
	delete(l.started, id)
}

// RTT returns the most recently measured round-trip time.
func (l *LatencyEstimator) RTT() time.Duration { return l.rtt }

// Ping returns half the most recent RTT, matching info.ping = rtt / 2.
func (l *LatencyEstimator) Ping() time.Duration { return l.rtt / 2 }
