package transport

import (
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"repcore/internal/events"
	"repcore/internal/neterr"
	"repcore/internal/wire"
	"repcore/pkg/logging"
)

const (
	// SequenceMaxSize bounds sequence numbers; they wrap at 2^8 (spec §3).
	SequenceMaxSize = 255
	// AckWindow is the width (in packets) of the ack bitmap and the
	// received-sequence deque (spec §3, §4.4).
	AckWindow = 32
	// DefaultBandwidth is the starting bandwidth estimate, in bytes per
	// second.
	DefaultBandwidth = 1000
	// DefaultPacketGrowth is the additive-increase step applied on send.
	DefaultPacketGrowth = 500
	// DefaultTimeout is how long without a received datagram before the
	// connection is considered dead (spec §4.4).
	DefaultTimeout = 10 * time.Second
)

// Connection mediates one remote peer: sequence counters, ack bitmap,
// outstanding-ack bookkeeping, bandwidth estimate and throttle state
// (spec §3 Connection). Grounded on
// original_source/network/connection.py's Connection class, generalized
// from Python's dict/deque primitives to Go maps/slices and from a
// GUID-less design to carrying an xid-based identifier (spec's
// generalisation of the teacher's Session.GUID used for "session
// migration" in source/protocol/raknet.go).
type Connection struct {
	Addr string
	GUID xid.ID

	LocalSequence  uint8
	RemoteSequence uint8

	incomingAck *wire.BitField
	requestedAck map[uint8]*Packet
	receivedWindow []uint8

	Bandwidth    float64
	PacketGrowth float64

	taggedThrottleSequence *uint8
	ThrottlePending        bool

	TimeoutDuration  time.Duration
	LastReceivedTime time.Time

	queue [][]byte

	Latency *LatencyEstimator

	log *logrus.Entry

	// PacketsLost is a cumulative count of outstanding_ack entries that
	// aged out of the window, reliable or not (SPEC_FULL.md [METRICS]).
	PacketsLost float64

	timeoutFired bool

	// Bus carries this connection's transport events: "timeout" (fired
	// once, no payload), "acked" (ConnectionEvent.RTT from a heartbeat
	// round trip) and "not_acked" (once per received datagram whose ack
	// information leaves at least one reliable packet considered lost),
	// per SPEC_FULL.md [MESSAGE BUS].
	Bus *events.Bus[ConnectionEvent]
}

// ConnectionEvent is the payload published on a Connection's Bus. Only
// the "acked" message populates RTT; "timeout" and "not_acked" carry a
// zero ConnectionEvent.
type ConnectionEvent struct {
	RTT time.Duration
}

// NewConnection allocates a Connection for a freshly accepted peer address.
func NewConnection(addr string) *Connection {
	return &Connection{
		Addr:             addr,
		GUID:             xid.New(),
		incomingAck:      wire.NewBitField(AckWindow),
		requestedAck:     map[uint8]*Packet{},
		Bandwidth:        DefaultBandwidth,
		PacketGrowth:     DefaultPacketGrowth,
		TimeoutDuration:  DefaultTimeout,
		Latency:          NewLatencyEstimator(),
		log:              logging.For("transport").WithField("addr", addr),
		Bus:              events.New[ConnectionEvent](),
	}
}

// isMoreRecent reports whether base is newer than sequence under
// wrap-around-at-256 circular comparison (spec §3 invariant).
func isMoreRecent(base, sequence uint8) bool {
	const half = SequenceMaxSize / 2
	diffBS := int(base) - int(sequence)
	diffSB := int(sequence) - int(base)
	return (base > sequence && diffBS <= half) || (sequence > base && diffSB > half)
}

// outgoingAckBitfield builds the ack bitmap to send alongside the next
// outbound datagram: bit i set iff (remoteSequence-(i+1)) was received.
func (c *Connection) outgoingAckBitfield() *wire.BitField {
	bf := wire.NewBitField(AckWindow)
	for i := 0; i < AckWindow; i++ {
		target := uint8(int(c.RemoteSequence) - (i + 1))
		bf.Set(i, c.receivedContains(target))
	}
	return bf
}

func (c *Connection) receivedContains(seq uint8) bool {
	for _, s := range c.receivedWindow {
		if s == seq {
			return true
		}
	}
	return false
}

func (c *Connection) pushReceived(seq uint8) {
	c.receivedWindow = append(c.receivedWindow, seq)
	if len(c.receivedWindow) > AckWindow {
		c.receivedWindow = c.receivedWindow[1:]
	}
}

// updateReliableInformation pops acked entries from requestedAck,
// invokes the not-ack callback of every entry that fell outside the ack
// window (presumed dropped) and requeues the reliable ones, and halves
// bandwidth plus starts throttling if a reliable packet was lost while
// no throttle was pending (spec §4.4).
func (c *Connection) updateReliableInformation(ackBase uint8, bitfield *wire.BitField) {
	for relative := 0; relative < AckWindow; relative++ {
		absolute := uint8(int(ackBase) - (relative + 1))
		if bitfield.Get(relative) {
			if p, ok := c.requestedAck[absolute]; ok {
				delete(c.requestedAck, absolute)
				p.ack()
				c.checkThrottleCleared(absolute)
			}
		}
	}
	if p, ok := c.requestedAck[ackBase]; ok {
		delete(c.requestedAck, ackBase)
		p.ack()
		c.checkThrottleCleared(ackBase)
	}

	var consideredDropped []uint8
	for seq := range c.requestedAck {
		if ageOf(ackBase, seq) >= AckWindow {
			consideredDropped = append(consideredDropped, seq)
		}
	}

	var requeue []*Packet
	for _, seq := range consideredDropped {
		p := c.requestedAck[seq]
		delete(c.requestedAck, seq)
		c.PacketsLost++
		p.notAck()
		if reliable := p.ToReliable(); reliable != nil {
			requeue = append(requeue, reliable)
		}
	}
	if len(requeue) > 0 {
		c.Bus.Publish("not_acked", ConnectionEvent{})
		if !c.ThrottlePending {
			c.startThrottling()
		}
		// Resending a lost packet does not grow the bandwidth estimate.
		bandwidth := c.Bandwidth
		for _, p := range requeue {
			c.QueuePacket(p)
		}
		c.Bandwidth = bandwidth
	}
}

// ageOf returns how many sequence steps behind base seq is, treating
// the sequence space as wrapping at SequenceMaxSize+1.
func ageOf(base, seq uint8) int {
	age := int(base) - int(seq)
	if age < 0 {
		age += SequenceMaxSize + 1
	}
	return age
}

func (c *Connection) checkThrottleCleared(sequence uint8) {
	if c.taggedThrottleSequence != nil && *c.taggedThrottleSequence == sequence {
		c.stopThrottling()
	}
}

func (c *Connection) startThrottling() {
	c.Bandwidth /= 2
	c.ThrottlePending = true
}

func (c *Connection) stopThrottling() {
	c.taggedThrottleSequence = nil
	c.ThrottlePending = false
}

// QueuePacket frames and enqueues one outbound packet, advancing the
// local sequence and growing the bandwidth estimate (spec §4.4 "On send").
func (c *Connection) QueuePacket(p *Packet) {
	c.LocalSequence = uint8((int(c.LocalSequence) + 1) % (SequenceMaxSize + 1))
	sequence := c.LocalSequence

	if c.ThrottlePending && c.taggedThrottleSequence == nil {
		seq := sequence
		c.taggedThrottleSequence = &seq
	}

	ackBitfield := c.outgoingAckBitfield()
	c.requestedAck[sequence] = p

	header := make([]byte, 2)
	header[0] = sequence
	header[1] = c.RemoteSequence
	message := append(header, ackBitfield.Pack()...)
	message = append(message, p.encode()...)

	c.Bandwidth += c.PacketGrowth
	c.queue = append(c.queue, message)
}

// ReceiveMessage parses one received datagram: header, ack bitmap,
// reliability bookkeeping, then decodes and returns its packet
// collection for dispatch (spec §4.4 "On receive").
func (c *Connection) ReceiveMessage(data []byte) ([]*Packet, error) {
	if len(data) < 2+c.incomingAck.ByteSize() {
		return nil, fmt.Errorf("%w: datagram shorter than header", neterr.ErrMalformedDatagram)
	}
	sequence := data[0]
	ackBase := data[1]
	offset := 2

	consumed := c.incomingAck.UnpackFrom(data[offset:])
	offset += consumed

	c.updateReliableInformation(ackBase, c.incomingAck)

	if isMoreRecent(sequence, c.RemoteSequence) {
		c.RemoteSequence = sequence
	}
	c.pushReceived(sequence)

	packets, err := DecodeCollection(data[offset:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", neterr.ErrMalformedDatagram, err)
	}

	c.LastReceivedTime = time.Now()
	return packets, nil
}

// RequestMessages drains the outbound queue, first appending a
// heartbeat packet when this is a network tick (spec §4.4).
func (c *Connection) RequestMessages(isNetworkTick bool) [][]byte {
	if isNetworkTick {
		sampleID := c.Latency.StartSample()
		c.QueuePacket(&Packet{
			Protocol: ProtocolHeartbeat,
			Reliable: false,
			OnSuccess: func() {
				rtt := c.Latency.StopSample(sampleID)
				c.Bus.Publish("acked", ConnectionEvent{RTT: rtt})
			},
			OnFailure: func() { c.Latency.IgnoreSample(sampleID) },
		})
	}
	out := c.queue
	c.queue = nil
	return out
}

// TimedOut reports whether no datagram has been received within
// TimeoutDuration. Publishes "timeout" on Bus exactly once per connection.
func (c *Connection) TimedOut(now time.Time) bool {
	if c.LastReceivedTime.IsZero() {
		return false
	}
	timedOut := now.Sub(c.LastReceivedTime) > c.TimeoutDuration
	if timedOut && !c.timeoutFired {
		c.log.Info("connection timed out")
		c.timeoutFired = true
		c.Bus.Publish("timeout", ConnectionEvent{})
	}
	return timedOut
}

