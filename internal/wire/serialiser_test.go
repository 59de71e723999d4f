package wire

import "testing"

func TestUintSerialiserWidthSelection(t *testing.T) {
	cases := []struct {
		flag TypeFlag
		want int
	}{
		{Uint(200), 1},
		{Uint(1000), 2},
		{Uint(1 << 20), 4},
		{Uint(1 << 40), 8},
		{UintBits(8), 1},
		{UintBits(9), 2},
	}
	for _, c := range cases {
		s, err := Get(c.flag)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		us, ok := s.(uintSerialiser)
		if !ok {
			t.Fatalf("expected uintSerialiser")
		}
		if us.width != c.want {
			t.Errorf("width = %d, want %d", us.width, c.want)
		}
	}
}

func TestUintRoundTrip(t *testing.T) {
	s, _ := Get(Uint(1 << 20))
	packed := s.Pack(uint64(123456))
	v, n, err := s.Unpack(packed)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(packed) {
		t.Errorf("consumed %d, want %d", n, len(packed))
	}
	if v.(uint64) != 123456 {
		t.Errorf("got %v, want 123456", v)
	}
}

func TestFloatRoundTrip(t *testing.T) {
	for _, wide := range []bool{false, true} {
		s, _ := Get(Float(wide))
		packed := s.Pack(float64(3.5))
		v, n, err := s.Unpack(packed)
		if err != nil {
			t.Fatal(err)
		}
		if n != len(packed) {
			t.Errorf("consumed %d, want %d", n, len(packed))
		}
		if v.(float64) != 3.5 {
			t.Errorf("got %v, want 3.5", v)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	s, _ := Get(String(32))
	packed := s.Pack("hello world")
	v, n, err := s.Unpack(packed)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(packed) {
		t.Errorf("consumed %d, want %d", n, len(packed))
	}
	if v.(string) != "hello world" {
		t.Errorf("got %q", v)
	}
}

func TestListRoundTrip(t *testing.T) {
	s, _ := Get(List(Uint(255), 8))
	items := []any{uint64(1), uint64(2), uint64(3)}
	packed := s.Pack(items)
	v, n, err := s.Unpack(packed)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(packed) {
		t.Errorf("consumed %d, want %d", n, len(packed))
	}
	got := v.([]any)
	if len(got) != 3 || got[0].(uint64) != 1 || got[2].(uint64) != 3 {
		t.Errorf("got %v", got)
	}
}

func TestReplicableRefWidths(t *testing.T) {
	local, _ := Get(Replicable(false))
	packed := local.Pack(RepRef{ID: 7})
	if len(packed) != 1 {
		t.Fatalf("expected 1 byte for scene-local ref, got %d", len(packed))
	}
	v, n, err := local.Unpack(packed)
	if err != nil || n != 1 || v.(RepRef).ID != 7 {
		t.Errorf("round trip failed: %v %v %v", v, n, err)
	}

	global, _ := Get(Replicable(true))
	packed = global.Pack(RepRef{SceneID: 2, ID: 9})
	if len(packed) != 2 {
		t.Fatalf("expected 2 bytes for global ref, got %d", len(packed))
	}
}
