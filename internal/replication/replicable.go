package replication

// Replicable is one networked object instance (spec §3 Replicable).
// Grounded on original_source/network/replicable.py's Replicable base
// class, with metaclass-based registration (ReplicableRegister) dropped
// in favour of explicit construction via Scene.AddReplicable.
type Replicable struct {
	ID      uint8
	SceneID uint8
	Class   *Schema

	Values map[string]any

	Owner   *Replicable
	Roles   Roles
	TornOff bool

	// AlwaysRelevant replicables (world info, replication info) skip
	// Manager.Tick's Rules.IsRelevant call (spec §4.3's relevance
	// filter). RelevantToOwner is not read by this package; it is there
	// for a Rules implementation to consult.
	RelevantToOwner bool
	AlwaysRelevant  bool

	pendingRPCs []pendingRPC

	// Conditions narrows which attributes are even considered for
	// description-hashing this tick (spec §4.2 step 1); it defaults to
	// "consider everything", which is always correct but skips the
	// teacher's optimisation of excluding rarely-changing attributes
	// from routine hashing. Game-specific replicable types may set a
	// tighter function.
	Conditions func(isOwner, isComplaining, isInitial bool) []string
}

type pendingRPC struct {
	FunctionIndex int
	Reliable      bool
	Args          []byte
}

// New constructs a Replicable from its Schema, deep-copying every
// attribute's declared initial value (spec §3 Attribute invariant).
func New(class *Schema, id, sceneID uint8) *Replicable {
	return &Replicable{
		ID:              id,
		SceneID:         sceneID,
		Class:           class,
		Values:          class.initialValues(),
		RelevantToOwner: true,
		Conditions:      defaultConditions,
	}
}

func defaultConditions(isOwner, isComplaining, isInitial bool) []string {
	return nil // nil signals "caller should fall back to all attribute names"
}

// Uppermost walks the owner chain to the highest parent, used to
// determine a connection's root replicable for ownership checks (spec
// §4.2 Inbound: "ownership = chain to connection's root replicable via
// owner references").
func (r *Replicable) Uppermost() *Replicable {
	cur := r
	for cur.Owner != nil {
		cur = cur.Owner
	}
	return cur
}

// OwnedBy reports whether root is the uppermost replicable of r's owner
// chain (r itself when r has no owner).
func (r *Replicable) OwnedBy(root *Replicable) bool {
	return r.Uppermost() == root
}

// QueueRPC appends a pending outgoing invocation (spec §4.2 "Outbound
// RPCs"). args is already serialised by the caller via the function's
// declared parameter FlagSerialiser.
func (r *Replicable) QueueRPC(functionIndex int, reliable bool, args []byte) {
	r.pendingRPCs = append(r.pendingRPCs, pendingRPC{FunctionIndex: functionIndex, Reliable: reliable, Args: args})
}

// drainRPCs empties and returns the pending RPC queue.
func (r *Replicable) drainRPCs() []pendingRPC {
	out := r.pendingRPCs
	r.pendingRPCs = nil
	return out
}

// eligibleAttributes resolves which attribute names to consider this
// tick, falling back to every declared attribute when Conditions
// returns nil (spec §4.2 step 1).
func (r *Replicable) eligibleAttributes(isOwner, isComplaining, isInitial bool) []string {
	if names := r.Conditions(isOwner, isComplaining, isInitial); names != nil {
		return names
	}
	all := make([]string, len(r.Class.Attributes))
	for i, a := range r.Class.Attributes {
		all[i] = a.Name
	}
	return all
}
