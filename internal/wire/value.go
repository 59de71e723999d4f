package wire

// WireValue is implemented by composite attribute/argument types (e.g.
// RigidBodyState, Vector3, InputState) that need custom byte layout
// rather than one of the built-in TypeFlag kinds. This plays the role
// PyAuthServer's handler_interfaces registry (get_handler/MRO lookup)
// played dynamically; Go resolves it statically via the interface.
type WireValue interface {
	MarshalWire() []byte
	UnmarshalWire(data []byte) (n int, err error)
}

// MergeableWireValue additionally supports merge-decode: updating an
// existing instance in place rather than allocating a fresh one, so
// that notifier callbacks observe a stable object identity (spec §4.1).
type MergeableWireValue interface {
	WireValue
	UnmarshalMergeWire(data []byte) (n int, err error)
}

// structFactories maps a StructName to a constructor producing a fresh
// zero-value WireValue, used by the registry to unmarshal into a new
// instance when no previous value is available to merge into.
var structFactories = map[string]func() WireValue{}

// RegisterStruct associates a TypeFlag struct name with a constructor.
// Called from each composite type's package init, mirroring the
// teacher's pattern of package-level registration over reflection.
func RegisterStruct(name string, factory func() WireValue) {
	structFactories[name] = factory
}
