package events

import "testing"

func TestBusDeliversToSubscribers(t *testing.T) {
	b := New[int]()
	var got []int
	b.Subscribe("tick", func(v int) { got = append(got, v) })
	b.Subscribe("tick", func(v int) { got = append(got, v*10) })

	b.Publish("tick", 1)
	b.Publish("other", 99)

	want := []int{1, 10}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestBusIgnoresUnknownMessage(t *testing.T) {
	b := New[string]()
	b.Publish("nobody-listens", "x") // must not panic
}
