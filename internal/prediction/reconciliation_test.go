package prediction

import "testing"

func TestValidateWithinThresholdProducesNoCorrection(t *testing.T) {
	move := InputState{MoveID: 4, Position: [3]float64{0, 0, 0}, Yaw: 0}
	_, corrected := Validate(move, [3]float64{0.1, 0, 0}, [3]float64{}, 0.01, 0)
	if corrected {
		t.Fatalf("expected no correction for a small divergence")
	}
}

func TestValidateBeyondThresholdProducesCorrection(t *testing.T) {
	move := InputState{MoveID: 4, Position: [3]float64{0, 0, 0}, Yaw: 0}
	c, corrected := Validate(move, [3]float64{5, 0, 0}, [3]float64{1, 0, 0}, 0, 0)
	if !corrected {
		t.Fatalf("expected a correction for a large position divergence")
	}
	if c.MoveID != 4 {
		t.Errorf("correction.MoveID = %d, want 4", c.MoveID)
	}
}

func TestReconcileDiscardsAcknowledgedAndReplaysRest(t *testing.T) {
	pending := NewPendingMoves()
	for id := 0; id < 5; id++ {
		pending.Store(InputState{MoveID: id})
	}

	var replayed []int
	Reconcile(pending, Correction{MoveID: 3}, func(s InputState) {
		replayed = append(replayed, s.MoveID)
	})

	want := []int{3, 4}
	if len(replayed) != len(want) {
		t.Fatalf("replayed %v, want %v", replayed, want)
	}
	for i := range want {
		if replayed[i] != want[i] {
			t.Errorf("replayed[%d] = %d, want %d", i, replayed[i], want[i])
		}
	}

	if pending.Len() != 2 {
		t.Errorf("pending.Len() = %d, want 2 (moves 3 and 4 retained)", pending.Len())
	}
}
