package wire

// Kind names a category of wire-serialisable value (spec §3 TypeFlag).
type Kind int

const (
	KindUint Kind = iota
	KindFloat
	KindBool
	KindString
	KindBytes
	KindBitField
	KindList
	KindReplicable
	KindStruct
)

// TypeFlag pairs a Kind with the constraint metadata the registry needs
// to pick a concrete serialiser, mirroring PyAuthServer's
// `StaticValue(type, **constraints)` but resolved statically in Go
// instead of by runtime introspection.
type TypeFlag struct {
	Kind Kind

	// integer: selects width; MaxBits wins when both are set.
	MaxValue uint64
	MaxBits  int

	// float: 32- vs 64-bit IEEE.
	MaxPrecision bool

	// string/bytes/list: length-prefix width.
	MaxLength uint32

	// bitfield: field count.
	Fields int

	// list: element type.
	Element *TypeFlag

	// replicable: global refs are 2 bytes (scene id + replicable id),
	// scene-local refs are 1 byte (replicable id only, scene implied
	// by the channel's owning connection).
	Global bool

	// struct: name registered via RegisterStruct, used to look up the
	// WireValue constructor for Unpack.
	StructName string
}

// Uint builds an unsigned integer TypeFlag bounded by maxValue.
func Uint(maxValue uint64) TypeFlag {
	return TypeFlag{Kind: KindUint, MaxValue: maxValue}
}

// UintBits builds an unsigned integer TypeFlag bounded by a bit count.
func UintBits(maxBits int) TypeFlag {
	return TypeFlag{Kind: KindUint, MaxBits: maxBits}
}

// Float builds a float TypeFlag; maxPrecision selects 64-bit over 32-bit.
func Float(maxPrecision bool) TypeFlag {
	return TypeFlag{Kind: KindFloat, MaxPrecision: maxPrecision}
}

// Bool builds a boolean TypeFlag (packed into the BOOL_PRESENT run by
// FlagSerialiser rather than given its own payload bytes).
func Bool() TypeFlag {
	return TypeFlag{Kind: KindBool}
}

// String builds a string TypeFlag with the given max length.
func String(maxLength uint32) TypeFlag {
	return TypeFlag{Kind: KindString, MaxLength: maxLength}
}

// Bytes builds a raw-bytes TypeFlag with the given max length.
func Bytes(maxLength uint32) TypeFlag {
	return TypeFlag{Kind: KindBytes, MaxLength: maxLength}
}

// Bits builds a bitfield TypeFlag holding the given number of fields.
func Bits(fields int) TypeFlag {
	return TypeFlag{Kind: KindBitField, Fields: fields}
}

// List builds a list TypeFlag over the given element flag.
func List(element TypeFlag, maxLength uint32) TypeFlag {
	return TypeFlag{Kind: KindList, Element: &element, MaxLength: maxLength}
}

// Replicable builds a replicable-reference TypeFlag.
func Replicable(global bool) TypeFlag {
	return TypeFlag{Kind: KindReplicable, Global: global}
}

// Struct builds a TypeFlag for a registered composite WireValue type.
func Struct(name string) TypeFlag {
	return TypeFlag{Kind: KindStruct, StructName: name}
}

// widthFor returns the smallest of 1/2/4/8 bytes that can hold maxValue.
func widthFor(maxValue uint64) int {
	switch {
	case maxValue <= 0xff:
		return 1
	case maxValue <= 0xffff:
		return 2
	case maxValue <= 0xffffffff:
		return 4
	default:
		return 8
	}
}

// widthForBits returns the smallest of 1/2/4/8 bytes that can hold maxBits.
func widthForBits(maxBits int) int {
	return widthFor((uint64(1) << uint(maxBits)) - 1)
}

// intWidth resolves a TypeFlag's declared width from whichever of
// MaxValue/MaxBits was set; MaxBits takes precedence when both are set,
// and when both are zero it falls back to 8 bytes (unconstrained).
func (f TypeFlag) intWidth() int {
	if f.MaxBits > 0 {
		return widthForBits(f.MaxBits)
	}
	if f.MaxValue > 0 {
		return widthFor(f.MaxValue)
	}
	return 8
}

// lengthPrefixWidth resolves the byte width of a length prefix bounded
// by MaxLength.
func (f TypeFlag) lengthPrefixWidth() int {
	if f.MaxLength == 0 {
		return 4
	}
	return widthFor(uint64(f.MaxLength))
}
