package scene

import (
	"math"

	"repcore/internal/replication"
	"repcore/internal/rpc"
	"repcore/internal/transport"
)

// World owns every scene in a process, the simulation clock and the
// Rules collaborator (spec §3 World, §6). Grounded on
// original_source/network/world_info.py's _WorldInfo: `tick_rate`,
// `elapsed`, `clock_correction` and `to_ticks` translate directly;
// the singleton-replicable presentation (_WorldInfo itself replicates
// as an always-relevant actor) is left to a game layer built on top of
// this module, since spec §1 scopes engine/gameplay integration out.
type World struct {
	Netmode transport.Netmode
	Rules   Rules

	TickRate        float64
	Elapsed         float64
	ClockCorrection float64

	scenes map[string]*Scene
	// classes is the process-wide type registry (spec §3 World):
	// class name -> schema, used to resolve a replicable_created
	// packet's class name into a concrete Schema.
	classes map[string]*replication.Schema
	// rpcTables is the process-wide inbound RPC handler registry
	// (spec §4.2 "Inbound"): class name -> Table, consulted by the
	// server to dispatch a decoded rpc_invocation against the right
	// handlers for the target replicable's class.
	rpcTables map[string]*rpc.Table
}

// Rules is the World's collaborator for handshake authorisation,
// connection lifecycle and replication relevance (spec §6), combining
// transport.Rules and replication.RelevanceRules into the single
// interface a concrete game mode implements.
type Rules interface {
	transport.Rules
	replication.RelevanceRules
}

// NewWorld builds a World with the given netmode and tick rate.
func NewWorld(netmode transport.Netmode, tickRate float64) *World {
	return &World{
		Netmode:  netmode,
		TickRate: tickRate,
		scenes:    map[string]*Scene{},
		classes:   map[string]*replication.Schema{},
		rpcTables: map[string]*rpc.Table{},
	}
}

// RegisterClass adds a Schema to the process-wide type registry.
func (w *World) RegisterClass(schema *replication.Schema) {
	w.classes[schema.ClassName] = schema
}

// ClassByName resolves a registered Schema by name.
func (w *World) ClassByName(name string) (*replication.Schema, bool) {
	s, ok := w.classes[name]
	return s, ok
}

// RegisterRPCTable binds a class's inbound RPC handler table, used to
// dispatch decoded rpc_invocation calls for replicables of that class.
func (w *World) RegisterRPCTable(className string, t *rpc.Table) {
	w.rpcTables[className] = t
}

// RPCTable resolves a registered handler table by class name.
func (w *World) RPCTable(className string) (*rpc.Table, bool) {
	t, ok := w.rpcTables[className]
	return t, ok
}

// AddScene creates and registers a new scene.
func (w *World) AddScene(name string, id uint8) *Scene {
	s := New(name, id)
	w.scenes[name] = s
	return s
}

// Scene looks up a registered scene by name.
func (w *World) Scene(name string) (*Scene, bool) {
	s, ok := w.scenes[name]
	return s, ok
}

// SceneByID looks up a registered scene by its numeric id, as carried on
// the wire by attribute_update and rpc_invocation packets.
func (w *World) SceneByID(id uint8) (*Scene, bool) {
	for _, s := range w.scenes {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Scenes returns every registered scene.
func (w *World) Scenes() []*Scene {
	out := make([]*Scene, 0, len(w.scenes))
	for _, s := range w.scenes {
		out = append(out, s)
	}
	return out
}

// ToTicks converts a duration in seconds into an approximate tick
// count at the World's current tick rate.
func (w *World) ToTicks(deltaSeconds float64) int64 {
	return int64(math.Round(deltaSeconds * w.TickRate))
}

// Tick returns the current simulation tick, including clock correction.
func (w *World) Tick() int64 {
	return w.ToTicks(w.Elapsed + w.ClockCorrection)
}

// Step advances the simulated clock by dt seconds and publishes each
// scene's tick message.
func (w *World) Step(dt float64) {
	w.Elapsed += dt
	for _, s := range w.scenes {
		s.Tick()
	}
}
