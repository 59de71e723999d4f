package prediction

import "testing"

func TestRewindBufferRetainsRecentHistory(t *testing.T) {
	buf := NewRewindBuffer(4)
	for i := int64(0); i < 4; i++ {
		buf.Record(RewindState{Tick: i, Position: [3]float64{float64(i), 0, 0}})
	}

	s, ok := buf.At(1)
	if !ok || s.Position[0] != 1 {
		t.Fatalf("expected tick 1 retained, got %+v ok=%v", s, ok)
	}
}

func TestRewindBufferEvictsBeyondDepth(t *testing.T) {
	buf := NewRewindBuffer(3)
	for i := int64(0); i < 5; i++ {
		buf.Record(RewindState{Tick: i})
	}

	if _, ok := buf.At(0); ok {
		t.Fatalf("expected tick 0 to have been evicted")
	}
	if _, ok := buf.At(4); !ok {
		t.Fatalf("expected most recent tick 4 to be retained")
	}
}

func TestRollbackTick(t *testing.T) {
	if got := RollbackTick(100, 3); got != 96 {
		t.Errorf("RollbackTick(100, 3) = %d, want 96", got)
	}
}

func TestRewindInvokesApplyThenCallbackThenRestore(t *testing.T) {
	buf := NewRewindBuffer(4)
	buf.Record(RewindState{Tick: 5, Position: [3]float64{9, 9, 9}})

	var order []string
	Rewind(
		map[string]*RewindBuffer{"pawn1": buf},
		5,
		func(pawn string, s RewindState) { order = append(order, "apply:"+pawn) },
		func() { order = append(order, "callback") },
		func() { order = append(order, "restore") },
	)

	want := []string{"apply:pawn1", "callback", "restore"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}
