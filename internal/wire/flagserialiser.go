package wire

import "fmt"

// Field declares one named, typed slot in a FlagSerialiser's field list.
type Field struct {
	Name string
	Flag TypeFlag
}

// FlagSerialiser packs an ordered set of named fields into the
// bit-packed layout of spec §4.1: a presence mask, an optional None
// mask, non-boolean payload bytes in declaration order, then a packed
// run of present booleans. Grounded on
// original_source/network/flag_serialiser.py's FlagSerialiser.
type FlagSerialiser struct {
	fields      []Field
	serialisers []Serialiser
	boolIndices []int // indices into fields that are KindBool
	n           int
}

// New builds a FlagSerialiser over the given ordered fields.
func New(fields []Field) (*FlagSerialiser, error) {
	fs := &FlagSerialiser{fields: fields, n: len(fields)}
	fs.serialisers = make([]Serialiser, len(fields))
	for i, f := range fields {
		s, err := Get(f.Flag)
		if err != nil {
			return nil, fmt.Errorf("wire: field %q: %w", f.Name, err)
		}
		fs.serialisers[i] = s
		if f.Flag.Kind == KindBool {
			fs.boolIndices = append(fs.boolIndices, i)
		}
	}
	return fs, nil
}

// contentsMaskBits is N+2: N field-present bits plus NONE_PRESENT and
// BOOL_PRESENT sentinels.
func (fs *FlagSerialiser) contentsMaskBits() int { return fs.n + 2 }

// noneBit and boolBit return this serialiser's two sentinel bit indices
// within a contents mask of length N+2: field presence occupies indices
// 0..N-1, NONE_PRESENT is index N, BOOL_PRESENT is index N+1.
func (fs *FlagSerialiser) noneBit() int { return fs.n }
func (fs *FlagSerialiser) boolBit() int { return fs.n + 1 }

// Pack encodes values, a map from field name to value (missing keys are
// simply not present; a present key holding an untyped nil means present
// but None, while a typed nil such as a nil *BitField is packed as a value).
func (fs *FlagSerialiser) Pack(values map[string]any) []byte {
	contents := NewBitField(fs.contentsMaskBits())
	noneMask := NewBitField(fs.n)
	boolMask := NewBitField(len(fs.boolIndices))

	anyNone := false
	anyBool := false
	var payload []byte

	boolSlot := 0
	for i, f := range fs.fields {
		v, present := values[f.Name]
		if !present {
			if f.Flag.Kind == KindBool {
				boolSlot++
			}
			continue
		}
		contents.Set(i, true)
		if v == nil {
			noneMask.Set(i, true)
			anyNone = true
			if f.Flag.Kind == KindBool {
				boolSlot++
			}
			continue
		}
		if f.Flag.Kind == KindBool {
			b, _ := v.(bool)
			boolMask.Set(boolSlot, b)
			boolSlot++
			anyBool = true
			continue
		}
		payload = append(payload, fs.serialisers[i].Pack(v)...)
	}

	contents.Set(fs.noneBit(), anyNone)
	contents.Set(fs.boolBit(), anyBool)

	out := contents.Pack()
	if anyNone {
		out = append(out, noneMask.Pack()...)
	}
	out = append(out, payload...)
	if anyBool {
		out = append(out, boolMask.Pack()...)
	}
	return out
}

// Unpacked is the result of decoding a FlagSerialiser payload: the
// merged/replaced values keyed by field name, and the subset of names
// that were actually present in this payload (declaration order),
// which the channel uses to decide which notify_on_replicated
// attributes to report.
type Unpacked struct {
	Values  map[string]any
	Present []string
}

// Unpack decodes data, merging into previous where the field's
// serialiser supports it and a previous value is supplied.
func (fs *FlagSerialiser) Unpack(data []byte, previous map[string]any) (*Unpacked, int, error) {
	contentsSize := NewBitField(fs.contentsMaskBits()).ByteSize()
	if len(data) < contentsSize {
		return nil, 0, fmt.Errorf("wire: short contents mask")
	}
	contents := NewBitField(fs.contentsMaskBits())
	contents.UnpackFrom(data)
	offset := contentsSize

	anyNone := contents.Get(fs.noneBit())
	anyBool := contents.Get(fs.boolBit())

	var noneMask *BitField
	if anyNone {
		noneMask = NewBitField(fs.n)
		size := noneMask.ByteSize()
		if len(data) < offset+size {
			return nil, 0, fmt.Errorf("wire: short none mask")
		}
		noneMask.UnpackFrom(data[offset:])
		offset += size
	}

	out := &Unpacked{Values: map[string]any{}}
	if previous != nil {
		for k, v := range previous {
			out.Values[k] = v
		}
	}

	for i, f := range fs.fields {
		if !contents.Get(i) {
			continue
		}
		out.Present = append(out.Present, f.Name)
		if noneMask != nil && noneMask.Get(i) {
			out.Values[f.Name] = nil
			continue
		}
		if f.Flag.Kind == KindBool {
			continue // resolved below once the bool run is known
		}
		prev, hadPrev := out.Values[f.Name]
		if merger, ok := fs.serialisers[i].(MergeSerialiser); ok && hadPrev && prev != nil {
			n, err := merger.UnpackMerge(prev, data[offset:])
			if err == nil {
				offset += n
				continue
			}
		}
		v, n, err := fs.serialisers[i].Unpack(data[offset:])
		if err != nil {
			return nil, 0, fmt.Errorf("wire: field %q: %w", f.Name, err)
		}
		out.Values[f.Name] = v
		offset += n
	}

	if anyBool {
		boolMask := NewBitField(len(fs.boolIndices))
		size := boolMask.ByteSize()
		if len(data) < offset+size {
			return nil, 0, fmt.Errorf("wire: short bool run")
		}
		boolMask.UnpackFrom(data[offset:])
		offset += size
		for slot, fieldIdx := range fs.boolIndices {
			if contents.Get(fieldIdx) && !(noneMask != nil && noneMask.Get(fieldIdx)) {
				out.Values[fs.fields[fieldIdx].Name] = boolMask.Get(slot)
			}
		}
	}

	return out, offset, nil
}
