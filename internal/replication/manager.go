package replication

import (
	"sort"
	"time"
)

// RelevanceRules is the subset of a World's Rules collaborator (spec
// §6) the manager consults before considering a channel for
// replication (spec §4.3's relevance filter).
type RelevanceRules interface {
	IsRelevant(owner *Replicable, r *Replicable) bool
}

// OutboundItem is one channel's attribute_update payload for this tick,
// ready to be wrapped in a transport.Packet by the caller.
type OutboundItem struct {
	SceneID      uint8
	ReplicableID uint8
	ClassName    string
	Initial      bool
	Payload      []byte
}

// RPCBatch is one channel's drained RPC runs for this tick, still tagged
// with the replicable they target so the caller can frame a
// rpc_invocation packet with the right id prefix (spec §4.2 "Outbound
// RPCs").
type RPCBatch struct {
	SceneID      uint8
	ReplicableID uint8
	Reliable     []byte
	Unreliable   []byte
}

// Manager is the per-connection replication manager: a scene_id ->
// replicable_id -> Channel map, plus the per-tick priority/budget
// scheduling of spec §4.3. Grounded on
// original_source/network/streams/replication/channels.py's
// SceneChannelBase (prioritised_alive_channels, cull_shadow_channels).
type Manager struct {
	Owner        *Replicable
	Rules        RelevanceRules
	BasePriority float64
	UpdatePeriod time.Duration
	ShadowGrace  time.Duration

	channels map[uint8]map[uint8]*Channel
}

// NewManager builds an empty manager for one connection.
func NewManager(owner *Replicable, rules RelevanceRules, updatePeriod, shadowGrace time.Duration) *Manager {
	return &Manager{
		Owner:        owner,
		Rules:        rules,
		BasePriority: 1.0,
		UpdatePeriod: updatePeriod,
		ShadowGrace:  shadowGrace,
		channels:     map[uint8]map[uint8]*Channel{},
	}
}

// Open creates (or returns the existing) channel for a replicable newly
// visible to this connection.
func (m *Manager) Open(sceneID uint8, r *Replicable) *Channel {
	scene, ok := m.channels[sceneID]
	if !ok {
		scene = map[uint8]*Channel{}
		m.channels[sceneID] = scene
	}
	if ch, exists := scene[r.ID]; exists {
		return ch
	}
	ch := NewChannel(r)
	scene[r.ID] = ch
	return ch
}

// Close replaces a destroyed replicable's channel with a shadow entry
// (spec §4.2 "Shadow channels").
func (m *Manager) Close(sceneID, replicableID uint8, now time.Time) {
	scene, ok := m.channels[sceneID]
	if !ok {
		return
	}
	ch, ok := scene[replicableID]
	if !ok {
		return
	}
	ch.EnterShadow(now, m.ShadowGrace)
}

// Channel resolves the open channel for (sceneID, replicableID), used by
// the server's inbound dispatch to find which Channel/Schema a decoded
// attribute_update or rpc_invocation payload belongs to.
func (m *Manager) Channel(sceneID, replicableID uint8) (*Channel, bool) {
	scene, ok := m.channels[sceneID]
	if !ok {
		return nil, false
	}
	ch, ok := scene[replicableID]
	return ch, ok
}

// CullShadows removes shadow channels whose grace window has expired.
func (m *Manager) CullShadows(now time.Time) {
	for _, scene := range m.channels {
		for id, ch := range scene {
			if ch.IsShadow() && ch.Expired(now) {
				delete(scene, id)
			}
		}
	}
}

type scoredItem struct {
	sceneID  uint8
	channel  *Channel
	priority float64
}

// Tick runs one full replication pass: priority-sort awaiting channels,
// accumulate payloads within byteBudget, and drain every channel's RPC
// queue unconditionally (spec §4.3 steps 1-4).
func (m *Manager) Tick(now time.Time, byteBudget int) (attributes []OutboundItem, rpcs []RPCBatch) {
	var scored []scoredItem
	for sceneID, scene := range m.channels {
		for _, ch := range scene {
			if ch.IsShadow() {
				continue
			}
			if ch.Replicable.Roles.Remote == RoleNone {
				continue
			}
			if m.Rules != nil && !ch.Replicable.AlwaysRelevant && !m.Rules.IsRelevant(m.Owner, ch.Replicable) {
				continue
			}
			elapsed := now.Sub(ch.lastReplication)
			var priority float64
			if m.UpdatePeriod > 0 {
				priority = m.BasePriority + (elapsed.Seconds()/m.UpdatePeriod.Seconds() - 1)
			} else {
				priority = m.BasePriority
			}
			scored = append(scored, scoredItem{sceneID: sceneID, channel: ch, priority: priority})
		}
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].priority > scored[j].priority })

	spent := 0
	isOwner := func(ch *Channel) bool { return ch.Replicable.OwnedBy(m.Owner) }
	for _, item := range scored {
		ch := item.channel
		savedInitial, savedLast := ch.initial, ch.lastReplication
		savedDescriptions := make(map[string]uint64, len(ch.lastDescriptions))
		for name, digest := range ch.lastDescriptions {
			savedDescriptions[name] = digest
		}
		update, ok := ch.ComputeUpdate(now, m.UpdatePeriod, isOwner(ch), false)
		if !ok {
			continue
		}
		if byteBudget > 0 && spent+len(update.Payload) > byteBudget {
			// Undo ComputeUpdate's bookkeeping so this channel's changes
			// are sent on a later tick rather than dropped.
			ch.initial, ch.lastReplication, ch.lastDescriptions = savedInitial, savedLast, savedDescriptions
			break
		}
		spent += len(update.Payload)
		attributes = append(attributes, OutboundItem{
			SceneID:      item.sceneID,
			ReplicableID: item.channel.Replicable.ID,
			ClassName:    item.channel.Replicable.Class.ClassName,
			Initial:      update.Initial,
			Payload:      update.Payload,
		})
	}

	for sceneID, scene := range m.channels {
		for _, ch := range scene {
			r, u := ch.FlushRPCs()
			if len(r) == 0 && len(u) == 0 {
				continue
			}
			rpcs = append(rpcs, RPCBatch{
				SceneID:      sceneID,
				ReplicableID: ch.Replicable.ID,
				Reliable:     r,
				Unreliable:   u,
			})
		}
	}

	return attributes, rpcs
}
