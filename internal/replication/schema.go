// Package replication implements the replicated-object model of spec §3
// (Attribute, ReplicatedFunction, Replicable, Roles) and the per-object
// channel/manager algorithms of spec §4.2-§4.3. Grounded throughout on
// original_source/network/replicable.py, descriptors.py and
// streams/replication/channels.py, translated from PyAuthServer's
// metaclass-driven class registration into explicit Go struct literals.
package replication

import (
	"sort"

	"repcore/internal/transport"
	"repcore/internal/wire"
)

// Role is one rank in the ordered Roles enum (spec §3): none is the
// weakest, authority the strongest. Comparisons use plain `<`/`>`.
type Role int

const (
	RoleNone Role = iota
	RoleDumbProxy
	RoleSimulatedProxy
	RoleAutonomousProxy
	RoleAuthority
)

// Roles pairs a replicable's local and remote role.
type Roles struct {
	Local  Role
	Remote Role
}

// AttributeDef declares one replicated attribute slot (spec §3 Attribute).
type AttributeDef struct {
	Name               string
	Flag               wire.TypeFlag
	Initial            any
	NotifyOnReplicated bool
	// Complain mirrors PyAuthServer's "complain" flag. Channel.ComputeUpdate
	// does not read it: every attribute, Complain or not, is described by
	// hashing its current value on each replication pass; no dirty bit is
	// set on assignment.
	Complain bool
}

// FunctionDef declares one replicated function (spec §3 ReplicatedFunction).
type FunctionDef struct {
	Name     string
	Params   []wire.Field
	Target   transport.Netmode
	Reliable bool

	// MinInvokerRole is the minimum local role the invoking peer's
	// connection must hold for this call to execute (spec §4.2
	// Inbound: "invoker has authority by role").
	MinInvokerRole Role
	// Broadcast allows dispatch to any watching peer, not only the
	// replicable's owner (spec §4.2 Inbound: "the function is
	// broadcastable, or the receiving peer is the owner").
	Broadcast bool

	// Index is assigned by NewSchema: position in sorted-by-name order
	// among this class's functions, replacing PyAuthServer's dynamic
	// decorator-based RPC registration with an explicit, stable table
	// (see spec §9 redesign note).
	Index int
}

// Schema is a replicable class's attribute and function table.
type Schema struct {
	ClassName  string
	Attributes []AttributeDef
	Functions  []FunctionDef

	serialiser *wire.FlagSerialiser
	funcByName map[string]*FunctionDef
}

// NewSchema builds a Schema, assigning stable function indices by
// sorted name and compiling the attribute FlagSerialiser.
func NewSchema(className string, attributes []AttributeDef, functions []FunctionDef) (*Schema, error) {
	sorted := make([]FunctionDef, len(functions))
	copy(sorted, functions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for i := range sorted {
		sorted[i].Index = i
	}

	fields := make([]wire.Field, len(attributes))
	for i, a := range attributes {
		fields[i] = wire.Field{Name: a.Name, Flag: a.Flag}
	}
	fs, err := wire.New(fields)
	if err != nil {
		return nil, err
	}

	s := &Schema{
		ClassName:  className,
		Attributes: attributes,
		Functions:  sorted,
		serialiser: fs,
		funcByName: map[string]*FunctionDef{},
	}
	for i := range s.Functions {
		s.funcByName[s.Functions[i].Name] = &s.Functions[i]
	}
	return s, nil
}

// FunctionByIndex finds a declared function by its stable index.
func (s *Schema) FunctionByIndex(index int) (*FunctionDef, bool) {
	for i := range s.Functions {
		if s.Functions[i].Index == index {
			return &s.Functions[i], true
		}
	}
	return nil, false
}

// FunctionByName finds a declared function by name.
func (s *Schema) FunctionByName(name string) (*FunctionDef, bool) {
	f, ok := s.funcByName[name]
	return f, ok
}

// initialValues returns a fresh copy of every attribute's initial value,
// keyed by name (spec §3 Attribute invariant: "every per-instance
// attribute slot is initialised to a deep copy of the declared initial
// value at construction").
func (s *Schema) initialValues() map[string]any {
	out := make(map[string]any, len(s.Attributes))
	for _, a := range s.Attributes {
		out[a.Name] = deepCopy(a.Initial)
	}
	return out
}

// deepCopy handles the value shapes attributes actually hold: scalars
// copy by value already; a *wire.BitField needs an explicit clone so
// instances don't alias the schema's declared initial value.
func deepCopy(v any) any {
	if bf, ok := v.(*wire.BitField); ok && bf != nil {
		clone := wire.NewBitField(bf.Len())
		for i, b := range bf.Slice() {
			clone.Set(i, b)
		}
		return clone
	}
	return v
}
