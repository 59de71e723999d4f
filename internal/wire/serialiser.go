package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Serialiser packs and unpacks a single value according to a TypeFlag.
// Unpack returns the decoded value and the number of bytes consumed.
type Serialiser interface {
	Pack(v any) []byte
	Unpack(data []byte) (any, int, error)
}

// MergeSerialiser is implemented by serialisers whose underlying value
// supports in-place merge decode (structs wrapping a MergeableWireValue,
// and BitField).
type MergeSerialiser interface {
	Serialiser
	UnpackMerge(prev any, data []byte) (int, error)
}

// Get resolves the concrete Serialiser for a TypeFlag. Mirrors
// PyAuthServer's `get_handler(StaticValue)` registry lookup, but
// dispatches on the Go-side Kind tag instead of a type's MRO.
func Get(flag TypeFlag) (Serialiser, error) {
	switch flag.Kind {
	case KindUint:
		return uintSerialiser{width: flag.intWidth()}, nil
	case KindFloat:
		return floatSerialiser{wide: flag.MaxPrecision}, nil
	case KindBool:
		return boolSerialiser{}, nil
	case KindString:
		return stringSerialiser{lenWidth: flag.lengthPrefixWidth()}, nil
	case KindBytes:
		return bytesSerialiser{lenWidth: flag.lengthPrefixWidth()}, nil
	case KindBitField:
		return bitFieldSerialiser{fields: flag.Fields}, nil
	case KindList:
		if flag.Element == nil {
			return nil, fmt.Errorf("wire: list TypeFlag missing element flag")
		}
		elem, err := Get(*flag.Element)
		if err != nil {
			return nil, err
		}
		return listSerialiser{elem: elem, lenWidth: flag.lengthPrefixWidth()}, nil
	case KindReplicable:
		return replicableSerialiser{global: flag.Global}, nil
	case KindStruct:
		return structSerialiser{name: flag.StructName}, nil
	default:
		return nil, fmt.Errorf("wire: unrecognised TypeFlag kind %d", flag.Kind)
	}
}

func putUint(buf []byte, width int, v uint64) {
	switch width {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(buf, v)
	}
}

func getUint(data []byte, width int) uint64 {
	switch width {
	case 1:
		return uint64(data[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(data))
	case 4:
		return uint64(binary.LittleEndian.Uint32(data))
	case 8:
		return binary.LittleEndian.Uint64(data)
	}
	return 0
}

// uintSerialiser packs an unsigned integer into the smallest width its
// TypeFlag constraints allow (spec §3).
type uintSerialiser struct{ width int }

func (s uintSerialiser) Pack(v any) []byte {
	out := make([]byte, s.width)
	putUint(out, s.width, toUint64(v))
	return out
}

func (s uintSerialiser) Unpack(data []byte) (any, int, error) {
	if len(data) < s.width {
		return nil, 0, fmt.Errorf("wire: short uint read, need %d have %d", s.width, len(data))
	}
	return getUint(data[:s.width], s.width), s.width, nil
}

func toUint64(v any) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case uint32:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint8:
		return uint64(n)
	case int:
		return uint64(n)
	case int64:
		return uint64(n)
	default:
		return 0
	}
}

// floatSerialiser packs an IEEE float as 32 or 64 bits.
type floatSerialiser struct{ wide bool }

func (s floatSerialiser) Pack(v any) []byte {
	f := toFloat64(v)
	if s.wide {
		out := make([]byte, 8)
		binary.LittleEndian.PutUint64(out, math.Float64bits(f))
		return out
	}
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, math.Float32bits(float32(f)))
	return out
}

func (s floatSerialiser) Unpack(data []byte) (any, int, error) {
	if s.wide {
		if len(data) < 8 {
			return nil, 0, fmt.Errorf("wire: short float64 read")
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), 8, nil
	}
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("wire: short float32 read")
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), 4, nil
}

func toFloat64(v any) float64 {
	switch f := v.(type) {
	case float64:
		return f
	case float32:
		return float64(f)
	default:
		return 0
	}
}

// boolSerialiser exists so bool can appear inside a list element or a
// struct field; at the FlagSerialiser top level booleans are instead
// packed into the BOOL_PRESENT run and never reach this serialiser.
type boolSerialiser struct{}

func (boolSerialiser) Pack(v any) []byte {
	if b, _ := v.(bool); b {
		return []byte{1}
	}
	return []byte{0}
}

func (boolSerialiser) Unpack(data []byte) (any, int, error) {
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("wire: short bool read")
	}
	return data[0] != 0, 1, nil
}

// stringSerialiser packs a length-prefixed UTF-8 string.
type stringSerialiser struct{ lenWidth int }

func (s stringSerialiser) Pack(v any) []byte {
	str, _ := v.(string)
	body := []byte(str)
	out := make([]byte, s.lenWidth+len(body))
	putUint(out[:s.lenWidth], s.lenWidth, uint64(len(body)))
	copy(out[s.lenWidth:], body)
	return out
}

func (s stringSerialiser) Unpack(data []byte) (any, int, error) {
	if len(data) < s.lenWidth {
		return nil, 0, fmt.Errorf("wire: short string length prefix")
	}
	n := int(getUint(data[:s.lenWidth], s.lenWidth))
	total := s.lenWidth + n
	if len(data) < total {
		return nil, 0, fmt.Errorf("wire: short string body, need %d have %d", n, len(data)-s.lenWidth)
	}
	return string(data[s.lenWidth:total]), total, nil
}

// bytesSerialiser packs a length-prefixed byte slice.
type bytesSerialiser struct{ lenWidth int }

func (s bytesSerialiser) Pack(v any) []byte {
	body, _ := v.([]byte)
	out := make([]byte, s.lenWidth+len(body))
	putUint(out[:s.lenWidth], s.lenWidth, uint64(len(body)))
	copy(out[s.lenWidth:], body)
	return out
}

func (s bytesSerialiser) Unpack(data []byte) (any, int, error) {
	if len(data) < s.lenWidth {
		return nil, 0, fmt.Errorf("wire: short bytes length prefix")
	}
	n := int(getUint(data[:s.lenWidth], s.lenWidth))
	total := s.lenWidth + n
	if len(data) < total {
		return nil, 0, fmt.Errorf("wire: short bytes body")
	}
	out := make([]byte, n)
	copy(out, data[s.lenWidth:total])
	return out, total, nil
}

// bitFieldSerialiser packs a *BitField over ceil(fields/8) bytes, and
// supports merge decode so callers holding a reference keep it valid.
type bitFieldSerialiser struct{ fields int }

func (s bitFieldSerialiser) Pack(v any) []byte {
	bf, ok := v.(*BitField)
	if !ok {
		bf = NewBitField(s.fields)
	}
	return bf.Pack()
}

func (s bitFieldSerialiser) Unpack(data []byte) (any, int, error) {
	bf := NewBitField(s.fields)
	n := bf.UnpackFrom(data)
	if n < bf.ByteSize() {
		return nil, 0, fmt.Errorf("wire: short bitfield read")
	}
	return bf, n, nil
}

func (s bitFieldSerialiser) UnpackMerge(prev any, data []byte) (int, error) {
	bf, ok := prev.(*BitField)
	if !ok || bf == nil {
		bf = NewBitField(s.fields)
	}
	n := bf.UnpackFrom(data)
	if n < bf.ByteSize() {
		return 0, fmt.Errorf("wire: short bitfield merge read")
	}
	return n, nil
}

// listSerialiser packs a length-prefixed homogeneous list.
type listSerialiser struct {
	elem     Serialiser
	lenWidth int
}

func (s listSerialiser) Pack(v any) []byte {
	items, _ := v.([]any)
	out := make([]byte, s.lenWidth)
	putUint(out, s.lenWidth, uint64(len(items)))
	for _, item := range items {
		out = append(out, s.elem.Pack(item)...)
	}
	return out
}

func (s listSerialiser) Unpack(data []byte) (any, int, error) {
	if len(data) < s.lenWidth {
		return nil, 0, fmt.Errorf("wire: short list length prefix")
	}
	n := int(getUint(data[:s.lenWidth], s.lenWidth))
	offset := s.lenWidth
	items := make([]any, 0, n)
	for i := 0; i < n; i++ {
		v, consumed, err := s.elem.Unpack(data[offset:])
		if err != nil {
			return nil, 0, fmt.Errorf("wire: list element %d: %w", i, err)
		}
		items = append(items, v)
		offset += consumed
	}
	return items, offset, nil
}

// replicableSerialiser packs a reference to another replicable as a
// 1-byte (scene-local) or 2-byte (scene id + replicable id, global) id.
type replicableSerialiser struct{ global bool }

// RepRef identifies a replicable by scene-scoped id, optionally qualified
// by scene id for cross-scene references.
type RepRef struct {
	SceneID uint8
	ID      uint8
}

func (s replicableSerialiser) Pack(v any) []byte {
	ref, _ := v.(RepRef)
	if s.global {
		return []byte{ref.SceneID, ref.ID}
	}
	return []byte{ref.ID}
}

func (s replicableSerialiser) Unpack(data []byte) (any, int, error) {
	if s.global {
		if len(data) < 2 {
			return nil, 0, fmt.Errorf("wire: short global replicable ref")
		}
		return RepRef{SceneID: data[0], ID: data[1]}, 2, nil
	}
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("wire: short replicable ref")
	}
	return RepRef{ID: data[0]}, 1, nil
}

// structSerialiser delegates to a WireValue registered under name.
type structSerialiser struct{ name string }

func (s structSerialiser) Pack(v any) []byte {
	wv, ok := v.(WireValue)
	if !ok {
		return nil
	}
	return wv.MarshalWire()
}

func (s structSerialiser) Unpack(data []byte) (any, int, error) {
	factory, ok := structFactories[s.name]
	if !ok {
		return nil, 0, fmt.Errorf("wire: no struct registered for %q", s.name)
	}
	wv := factory()
	n, err := wv.UnmarshalWire(data)
	if err != nil {
		return nil, 0, fmt.Errorf("wire: unmarshal %q: %w", s.name, err)
	}
	return wv, n, nil
}

// UnpackMerge only succeeds when prev is itself mergeable; callers
// (FlagSerialiser) must fall back to Unpack otherwise, since merge
// decode mutates prev in place and returns no replacement value.
func (s structSerialiser) UnpackMerge(prev any, data []byte) (int, error) {
	mv, ok := prev.(MergeableWireValue)
	if !ok || mv == nil {
		return 0, fmt.Errorf("wire: %q does not support merge decode", s.name)
	}
	return mv.UnmarshalMergeWire(data)
}
