package wire

import "hash/fnv"

// Describer lets a composite value supply its own cheap digest instead
// of being packed just to be hashed (e.g. a RigidBodyState might digest
// only position+velocity, skipping a seldom-changing animation map).
type Describer interface {
	Describe() uint64
}

// Describe returns a hash-like digest of v suitable for the channel's
// last-replicated-description comparison (spec §4.2 step 2). Equal
// digests are treated as "unchanged, skip this tick"; this is a
// generalisation of PyAuthServer's handler_interfaces.static_description,
// which hashed a value's __description__ or repr().
func Describe(s Serialiser, v any) uint64 {
	if d, ok := v.(Describer); ok {
		return d.Describe()
	}
	h := fnv.New64a()
	h.Write(s.Pack(v))
	return h.Sum64()
}
