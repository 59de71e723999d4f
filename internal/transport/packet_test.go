package transport

import "testing"

func TestPacketCollectionRoundTrip(t *testing.T) {
	packets := []*Packet{
		{Protocol: ProtocolHeartbeat, Payload: nil, Reliable: false},
		{Protocol: ProtocolAttributeUpdate, Payload: []byte{1, 2, 3, 4}, Reliable: true},
		{Protocol: ProtocolRPCInvocation, Payload: []byte("hello"), Reliable: false},
	}

	encoded := EncodeCollection(packets)
	decoded, err := DecodeCollection(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != len(packets) {
		t.Fatalf("got %d packets, want %d", len(decoded), len(packets))
	}
	for i, p := range packets {
		if decoded[i].Protocol != p.Protocol {
			t.Errorf("packet %d: protocol = %v, want %v", i, decoded[i].Protocol, p.Protocol)
		}
		if decoded[i].Reliable != p.Reliable {
			t.Errorf("packet %d: reliable = %v, want %v", i, decoded[i].Reliable, p.Reliable)
		}
		if string(decoded[i].Payload) != string(p.Payload) {
			t.Errorf("packet %d: payload = %v, want %v", i, decoded[i].Payload, p.Payload)
		}
	}
}

func TestDecodeCollectionRejectsTruncatedBody(t *testing.T) {
	full := EncodeCollection([]*Packet{{Protocol: ProtocolHeartbeat, Payload: []byte{1, 2, 3}}})
	_, err := DecodeCollection(full[:len(full)-1])
	if err == nil {
		t.Fatal("expected an error decoding a truncated packet body")
	}
}

func TestToReliable(t *testing.T) {
	reliable := &Packet{Reliable: true}
	unreliable := &Packet{Reliable: false}
	if reliable.ToReliable() != reliable {
		t.Error("expected ToReliable to return itself when reliable")
	}
	if unreliable.ToReliable() != nil {
		t.Error("expected ToReliable to return nil when unreliable")
	}
}
