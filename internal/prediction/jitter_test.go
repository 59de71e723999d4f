package prediction

import "testing"

func TestJitterBufferOrdersOutOfOrderMoves(t *testing.T) {
	jb := NewJitterBuffer(10)
	for _, id := range []int{5, 4, 6, 7, 3} {
		jb.Append(InputState{MoveID: id})
	}

	var got []int
	for {
		s, ok := jb.Pop()
		if !ok {
			break
		}
		got = append(got, s.MoveID)
	}

	want := []int{3, 4, 5, 6, 7}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestJitterBufferSkipsTickOnGap(t *testing.T) {
	jb := NewJitterBuffer(10)
	jb.Append(InputState{MoveID: 0})
	jb.Append(InputState{MoveID: 2})

	first, ok := jb.Pop()
	if !ok || first.MoveID != 0 {
		t.Fatalf("expected move 0, got %+v ok=%v", first, ok)
	}

	if _, ok := jb.Pop(); ok {
		t.Fatalf("expected no move ready while move 1 is missing")
	}

	jb.Append(InputState{MoveID: 1})
	second, ok := jb.Pop()
	if !ok || second.MoveID != 1 {
		t.Fatalf("expected move 1, got %+v ok=%v", second, ok)
	}
	third, ok := jb.Pop()
	if !ok || third.MoveID != 2 {
		t.Fatalf("expected move 2, got %+v ok=%v", third, ok)
	}
}

func TestJitterBufferEvictsOldestAtCapacity(t *testing.T) {
	jb := NewJitterBuffer(2)
	jb.Append(InputState{MoveID: 10})
	jb.Append(InputState{MoveID: 11})
	jb.Append(InputState{MoveID: 12})

	if jb.Len() != 2 {
		t.Fatalf("expected buffer capped at 2, got %d", jb.Len())
	}

	first, ok := jb.Pop()
	if !ok || first.MoveID != 11 {
		t.Fatalf("expected move 10 evicted, got %+v ok=%v", first, ok)
	}
}
