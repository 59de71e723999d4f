package replication

import (
	"testing"
	"time"
)

func TestChannelSkipsUnchangedAttribute(t *testing.T) {
	schema := testSchema(t)
	r := New(schema, 1, 0)
	ch := NewChannel(r)

	now := time.Unix(1000, 0)
	update, ok := ch.ComputeUpdate(now, time.Second, true, false)
	if !ok {
		t.Fatal("expected the initial update to produce a payload")
	}
	if !update.Initial {
		t.Error("expected the first update to be flagged Initial")
	}

	later := now.Add(2 * time.Second)
	_, ok = ch.ComputeUpdate(later, time.Second, true, false)
	if ok {
		t.Error("expected no update when nothing changed")
	}

	r.Values["health"] = uint64(50)
	third := later.Add(2 * time.Second)
	update, ok = ch.ComputeUpdate(third, time.Second, true, false)
	if !ok {
		t.Fatal("expected an update after health changed")
	}
	if update.Initial {
		t.Error("expected later updates to not be flagged Initial")
	}
}

func TestChannelRespectsUpdatePeriod(t *testing.T) {
	schema := testSchema(t)
	r := New(schema, 1, 0)
	ch := NewChannel(r)
	now := time.Unix(1000, 0)
	ch.ComputeUpdate(now, time.Second, true, false)

	r.Values["health"] = uint64(1)
	soon := now.Add(100 * time.Millisecond)
	_, ok := ch.ComputeUpdate(soon, time.Second, true, false)
	if ok {
		t.Error("expected no update before the period elapses, even with a dirty attribute")
	}
}

func TestChannelApplyUpdateNotifiesOnlyFlaggedAttributes(t *testing.T) {
	senderSchema := testSchema(t)
	sender := New(senderSchema, 1, 0)
	sender.Values["health"] = uint64(77)
	sender.Values["name"] = "Ripley"
	senderChannel := NewChannel(sender)

	now := time.Unix(1000, 0)
	update, ok := senderChannel.ComputeUpdate(now, time.Second, true, false)
	if !ok {
		t.Fatal("expected a payload")
	}

	receiverSchema := testSchema(t)
	receiver := New(receiverSchema, 1, 0)
	receiverChannel := NewChannel(receiver)

	notify, err := receiverChannel.ApplyUpdate(update.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(notify) != 1 || notify[0] != "name" {
		t.Errorf("expected only 'name' to notify (NotifyOnReplicated), got %v", notify)
	}
	if receiver.Values["health"].(uint64) != 77 {
		t.Errorf("health = %v, want 77", receiver.Values["health"])
	}
	if receiver.Values["name"].(string) != "Ripley" {
		t.Errorf("name = %v, want Ripley", receiver.Values["name"])
	}
}

func TestFlushRPCsFramesByReliability(t *testing.T) {
	schema := testSchema(t)
	r := New(schema, 1, 0)
	ch := NewChannel(r)

	fire, _ := schema.FunctionByName("fire")   // reliable
	crouch, _ := schema.FunctionByName("crouch") // unreliable
	r.QueueRPC(fire.Index, true, []byte{0xAA})
	r.QueueRPC(crouch.Index, false, []byte{0xBB, 0xCC})

	reliable, unreliable := ch.FlushRPCs()
	wantReliable := []byte{byte(fire.Index), 0xAA}
	wantUnreliable := []byte{byte(crouch.Index), 0xBB, 0xCC}
	if string(reliable) != string(wantReliable) {
		t.Errorf("reliable run = %v, want %v", reliable, wantReliable)
	}
	if string(unreliable) != string(wantUnreliable) {
		t.Errorf("unreliable run = %v, want %v", unreliable, wantUnreliable)
	}

	// The queue drains on flush.
	reliable, unreliable = ch.FlushRPCs()
	if len(reliable) != 0 || len(unreliable) != 0 {
		t.Error("expected the pending RPC queue to be empty after a flush")
	}
}
