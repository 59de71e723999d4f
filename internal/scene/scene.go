// Package scene implements the unique-id pool and replicable registry
// of spec §3 Scene, including the id-contest reassignment described in
// spec §5 and grounded on
// original_source/network/replicable.py's request_registration.
package scene

import (
	"repcore/internal/events"
	"repcore/internal/neterr"
	"repcore/internal/replication"
)

// MaxReplicables is the size of a scene's id pool (spec §3: "255 ids").
const MaxReplicables = 255

// ReplicableEvent is published on the scene's event bus for
// replicable_added/replicable_removed (spec §3 Scene).
type ReplicableEvent struct {
	Replicable *replication.Replicable
}

// Scene owns a unique-id pool and an ordered map id->replicable. It
// emits replicable_added, replicable_removed and tick messages on its
// Bus (spec §3 Scene; SPEC_FULL.md [MESSAGE BUS]).
type Scene struct {
	Name string
	ID   uint8

	replicables map[uint8]*replication.Replicable
	order       []uint8
	// dynamic marks ids that were allocated without an explicit
	// request (i.e. eligible for id-contest reassignment).
	dynamic map[uint8]bool

	Bus *events.Bus[ReplicableEvent]
}

// New creates an empty scene.
func New(name string, id uint8) *Scene {
	return &Scene{
		Name:        name,
		ID:          id,
		replicables: map[uint8]*replication.Replicable{},
		dynamic:     map[uint8]bool{},
		Bus:         events.New[ReplicableEvent](),
	}
}

// AddReplicable creates a replicable of the given class. If explicitID
// is non-nil and collides with an existing dynamically-allocated
// replicable, the existing one is reassigned a fresh id (spec §3 "id
// contest") and neterr.IDContest is returned alongside the new
// replicable so the caller can log it; the contest is informational,
// never fatal.
func (s *Scene) AddReplicable(class *replication.Schema, explicitID *uint8) (*replication.Replicable, error) {
	var id uint8
	var contestErr error

	if explicitID != nil {
		id = *explicitID
		if existing, ok := s.replicables[id]; ok {
			if !s.dynamic[id] {
				return nil, errIDTaken(id)
			}
			newID, err := s.allocate()
			if err != nil {
				return nil, err
			}
			s.reassign(existing, newID)
			contestErr = &neterr.IDContest{RequestedID: id, ReassignedTo: newID}
		}
		s.dynamic[id] = false
	} else {
		allocated, err := s.allocate()
		if err != nil {
			return nil, err
		}
		id = allocated
		s.dynamic[id] = true
	}

	r := replication.New(class, id, s.ID)
	s.replicables[id] = r
	s.order = append(s.order, id)
	s.Bus.Publish("replicable_added", ReplicableEvent{Replicable: r})
	return r, contestErr
}

// RemoveReplicable destroys a replicable and frees its id.
func (s *Scene) RemoveReplicable(id uint8) {
	r, ok := s.replicables[id]
	if !ok {
		return
	}
	delete(s.replicables, id)
	delete(s.dynamic, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.Bus.Publish("replicable_removed", ReplicableEvent{Replicable: r})
}

// Get returns the replicable with the given id, if still present.
func (s *Scene) Get(id uint8) (*replication.Replicable, bool) {
	r, ok := s.replicables[id]
	return r, ok
}

// All returns every live replicable in creation order.
func (s *Scene) All() []*replication.Replicable {
	out := make([]*replication.Replicable, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.replicables[id])
	}
	return out
}

// Tick publishes the scene's tick message.
func (s *Scene) Tick() {
	s.Bus.Publish("tick", ReplicableEvent{})
}

func (s *Scene) allocate() (uint8, error) {
	for i := 0; i < MaxReplicables; i++ {
		id := uint8(i)
		if _, taken := s.replicables[id]; !taken {
			return id, nil
		}
	}
	return 0, errPoolExhausted()
}

func (s *Scene) reassign(r *replication.Replicable, newID uint8) {
	oldID := r.ID
	delete(s.replicables, oldID)
	for i, oid := range s.order {
		if oid == oldID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	r.ID = newID
	s.replicables[newID] = r
	s.order = append(s.order, newID)
	s.dynamic[newID] = true
}
