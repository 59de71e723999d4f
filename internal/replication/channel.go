package replication

import (
	"time"

	"repcore/internal/wire"
)

// Channel is the unit of per-object, per-connection state
// synchronisation (spec §4.2). One Channel exists per (connection,
// replicable) pair — last-replicated descriptions are tracked here
// rather than on Replicable itself, since two peers watching the same
// instance must independently track what they've each been sent; see
// DESIGN.md for why this departs from spec §3's compressed wording.
// Grounded on
// original_source/network/streams/replication/channels.py's
// ReplicableChannelBase / ClientReplicableChannel / ServerReplicableChannel.
type Channel struct {
	Replicable *Replicable

	lastDescriptions map[string]uint64
	lastReplication  time.Time
	initial          bool

	// shadow marks a channel whose replicable has been destroyed
	// server-side, for its grace window (spec §4.2 "Shadow channels").
	// The channel keeps all of its state, including the Replicable.
	shadow       bool
	shadowExpiry time.Time
}

// NewChannel opens a channel for a freshly visible replicable. The
// first ComputeUpdate call on a new channel always emits a
// replicable_created-flagged initial update (spec §4.2).
func NewChannel(r *Replicable) *Channel {
	return &Channel{Replicable: r, lastDescriptions: map[string]uint64{}, initial: true}
}

// Update is the outcome of Channel.ComputeUpdate: the payload to send
// plus whether this is the channel's first (initial) update, which the
// caller must prefix with a replicable_created packet (spec §4.2).
type Update struct {
	Payload []byte
	Initial bool
}

// ComputeUpdate evaluates the outbound delta for this tick (spec §4.2
// "Outbound (server side)", steps 1-5). Returns ok=false when nothing
// changed (skip sending an attribute_update this tick).
func (c *Channel) ComputeUpdate(now time.Time, updatePeriod time.Duration, isOwner, isComplaining bool) (Update, bool) {
	if !c.initial && now.Sub(c.lastReplication) < updatePeriod {
		return Update{}, false
	}

	names := c.Replicable.eligibleAttributes(isOwner, isComplaining, c.initial)
	toSerialise := map[string]any{}

	for _, name := range names {
		idx, def, ok := c.attributeDef(name)
		if !ok {
			continue
		}
		value := c.Replicable.Values[name]
		s, err := wire.Get(def.Flag)
		if err != nil {
			continue
		}
		digest := wire.Describe(s, value)
		if last, seen := c.lastDescriptions[name]; seen && last == digest && !c.initial {
			continue
		}
		c.lastDescriptions[name] = digest
		toSerialise[name] = value
		_ = idx
	}

	if len(toSerialise) == 0 {
		return Update{}, false
	}

	payload := c.Replicable.Class.serialiser.Pack(toSerialise)
	update := Update{Payload: payload, Initial: c.initial}
	c.initial = false
	c.lastReplication = now
	return update, true
}

func (c *Channel) attributeDef(name string) (int, *AttributeDef, bool) {
	for i := range c.Replicable.Class.Attributes {
		if c.Replicable.Class.Attributes[i].Name == name {
			return i, &c.Replicable.Class.Attributes[i], true
		}
	}
	return 0, nil, false
}

// ApplyUpdate decodes an inbound attribute_update payload, merges it
// into the replicable's values, and returns the names that should be
// reported to the notifier callback (those flagged NotifyOnReplicated
// that were actually present in this payload), in declaration order
// (spec §4.2 "Inbound").
func (c *Channel) ApplyUpdate(payload []byte) ([]string, error) {
	previous := c.Replicable.Values
	out, _, err := c.Replicable.Class.serialiser.Unpack(payload, previous)
	if err != nil {
		return nil, err
	}
	c.Replicable.Values = out.Values

	notifySet := map[string]bool{}
	for _, a := range c.Replicable.Class.Attributes {
		if a.NotifyOnReplicated {
			notifySet[a.Name] = true
		}
	}

	var notify []string
	for _, a := range c.Replicable.Class.Attributes {
		if notifySet[a.Name] {
			for _, present := range out.Present {
				if present == a.Name {
					notify = append(notify, a.Name)
					break
				}
			}
		}
	}
	return notify, nil
}

// FlushRPCs drains the replicable's pending RPC queue into two
// concatenated, framed byte runs: reliable and unreliable. Each
// invocation is framed as a one-byte function index followed by its
// packed args (spec §4.2 "Outbound RPCs").
func (c *Channel) FlushRPCs() (reliable, unreliable []byte) {
	for _, p := range c.Replicable.drainRPCs() {
		frame := append([]byte{byte(p.FunctionIndex)}, p.Args...)
		if p.Reliable {
			reliable = append(reliable, frame...)
		} else {
			unreliable = append(unreliable, frame...)
		}
	}
	return reliable, unreliable
}

// DecodeRPCRun parses a concatenated RPC byte run into (functionIndex,
// argsPayload) pairs using each function's own parameter FlagSerialiser
// to determine frame length.
func (c *Channel) DecodeRPCRun(data []byte) ([]InvokedRPC, error) {
	var calls []InvokedRPC
	offset := 0
	for offset < len(data) {
		index := int(data[offset])
		offset++
		fn, ok := c.Replicable.Class.FunctionByIndex(index)
		if !ok {
			return calls, errUnknownFunctionIndex(index)
		}
		fs, err := wire.New(fn.Params)
		if err != nil {
			return calls, err
		}
		decoded, n, err := fs.Unpack(data[offset:], nil)
		if err != nil {
			return calls, err
		}
		offset += n
		calls = append(calls, InvokedRPC{Function: fn, Args: decoded.Values})
	}
	return calls, nil
}

// InvokedRPC is one decoded inbound RPC invocation, ready for dispatch.
type InvokedRPC struct {
	Function *FunctionDef
	Args     map[string]any
}

// EnterShadow marks this channel as a shadow after its replicable is
// destroyed server-side and sets its grace expiry (spec §4.2 "Shadow
// channels"). Manager.Tick stops computing attribute updates for it;
// nothing is released, so the whole channel and its Replicable stay
// reachable until Manager.CullShadows removes the channel.
func (c *Channel) EnterShadow(now time.Time, grace time.Duration) {
	c.shadow = true
	c.shadowExpiry = now.Add(grace)
}

// Expired reports whether a shadow channel has outlived its grace window.
func (c *Channel) Expired(now time.Time) bool {
	return c.shadow && now.After(c.shadowExpiry)
}

// IsShadow reports whether this channel is in shadow (post-destroy) state.
func (c *Channel) IsShadow() bool { return c.shadow }
