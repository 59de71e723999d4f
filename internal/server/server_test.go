package server

import (
	"net"
	"testing"

	"repcore/internal/replication"
	"repcore/internal/rpc"
	"repcore/internal/scene"
	"repcore/internal/transport"
	"repcore/internal/wire"
)

type fakeRules struct{}

func (fakeRules) PreInitialise(addr string, netmode transport.Netmode) error { return nil }
func (fakeRules) PostInitialise(conn *transport.Connection) (uint8, error)   { return 0, nil }
func (fakeRules) PostDisconnect(conn *transport.Connection, rootReplicableID uint8) {}
func (fakeRules) IsRelevant(owner, r *replication.Replicable) bool           { return true }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	world := scene.NewWorld(transport.NetmodeServer, 30)
	return NewServer("127.0.0.1", 0, 2, 30, world, fakeRules{})
}

func TestPeerForRejectsBeyondMaxPlayers(t *testing.T) {
	s := newTestServer(t)

	a1, _ := net.ResolveUDPAddr("udp", "1.1.1.1:1")
	a2, _ := net.ResolveUDPAddr("udp", "2.2.2.2:2")
	a3, _ := net.ResolveUDPAddr("udp", "3.3.3.3:3")

	if p := s.peerFor(a1); p == nil {
		t.Fatalf("expected first peer to be accepted")
	}
	if p := s.peerFor(a2); p == nil {
		t.Fatalf("expected second peer to be accepted")
	}
	if p := s.peerFor(a3); p != nil {
		t.Fatalf("expected third peer to be rejected (MaxPlayers=2)")
	}
}

func TestPeerForIsIdempotentPerAddress(t *testing.T) {
	s := newTestServer(t)
	addr, _ := net.ResolveUDPAddr("udp", "1.1.1.1:1")

	p1 := s.peerFor(addr)
	p2 := s.peerFor(addr)
	if p1 != p2 {
		t.Fatalf("expected the same Peer for repeated lookups of one address")
	}
}

func TestStatusReflectsPlayerCount(t *testing.T) {
	s := newTestServer(t)
	addr, _ := net.ResolveUDPAddr("udp", "1.1.1.1:1")
	s.peerFor(addr)

	status := s.Status()
	if status == "" {
		t.Fatalf("expected a non-empty status string")
	}
	if s.PlayerCount() != 1 {
		t.Errorf("PlayerCount() = %d, want 1", s.PlayerCount())
	}
}

func TestPlayersListsConnectedAddresses(t *testing.T) {
	s := newTestServer(t)
	addr, _ := net.ResolveUDPAddr("udp", "9.9.9.9:9")
	s.peerFor(addr)

	players := s.Players()
	if len(players) != 1 || players[0] != addr.String() {
		t.Errorf("Players() = %v, want [%s]", players, addr.String())
	}
}

func TestKickRemovesPeer(t *testing.T) {
	s := newTestServer(t)
	addr, _ := net.ResolveUDPAddr("udp", "9.9.9.9:9")
	s.peerFor(addr)

	if err := s.Kick(addr.String()); err != nil {
		t.Fatalf("Kick: %v", err)
	}
	if s.PlayerCount() != 0 {
		t.Errorf("PlayerCount() = %d after kick, want 0", s.PlayerCount())
	}
}

func TestKickUnknownAddrErrors(t *testing.T) {
	s := newTestServer(t)
	if err := s.Kick("nobody:0"); err == nil {
		t.Fatalf("expected an error kicking an unknown address")
	}
}

// TestDispatchConnectedAppliesAttributeUpdate drives a real encoded
// attribute_update datagram through handleDatagram and checks that the
// value lands on the target replicable, exercising the full
// receive -> dispatch -> channelFor -> Channel.ApplyUpdate path.
func TestDispatchConnectedAppliesAttributeUpdate(t *testing.T) {
	schema, err := replication.NewSchema("Pawn",
		[]replication.AttributeDef{{Name: "health", Flag: wire.Uint(100), Initial: uint64(100)}},
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}

	world := scene.NewWorld(transport.NetmodeServer, 30)
	world.RegisterClass(schema)
	scn := world.AddScene("default", 0)
	r, err := scn.AddReplicable(schema, nil)
	if err != nil {
		t.Fatal(err)
	}

	s := NewServer("127.0.0.1", 0, 4, 30, world, fakeRules{})
	addr, _ := net.ResolveUDPAddr("udp", "5.5.5.5:5")
	peer := s.peerFor(addr)
	s.onConnected(peer)

	fs, err := wire.New([]wire.Field{{Name: "health", Flag: wire.Uint(100)}})
	if err != nil {
		t.Fatal(err)
	}
	body := fs.Pack(map[string]any{"health": uint64(7)})
	payload := encodeReplicatedHeader(scn.ID, r.ID, body)

	client := transport.NewConnection("client:1")
	client.QueuePacket(&transport.Packet{Protocol: transport.ProtocolAttributeUpdate, Payload: payload})
	datagrams := client.RequestMessages(false)
	if len(datagrams) != 1 {
		t.Fatalf("expected 1 datagram, got %d", len(datagrams))
	}

	s.handleDatagram(addr, datagrams[0])

	ch, ok := peer.Manager.Channel(scn.ID, r.ID)
	if !ok {
		t.Fatal("expected dispatchConnected to have opened a channel for the replicable")
	}
	if ch.Replicable.Values["health"] != uint64(7) {
		t.Errorf("health = %v, want 7", ch.Replicable.Values["health"])
	}
}

// TestDispatchConnectedDispatchesRPCInvocation drives a real encoded
// rpc_invocation datagram through handleDatagram and checks that the
// registered handler ran, exercising channelFor -> Channel.DecodeRPCRun
// -> rpc.Table.Dispatch.
func TestDispatchConnectedDispatchesRPCInvocation(t *testing.T) {
	schema, err := replication.NewSchema("Pawn", nil,
		[]replication.FunctionDef{{Name: "jump", Target: transport.NetmodeServer, Reliable: true, Broadcast: true}},
	)
	if err != nil {
		t.Fatal(err)
	}

	table := rpc.NewTable(schema)
	called := false
	table.Register("jump", func(target *replication.Replicable, args map[string]any) error {
		called = true
		return nil
	})

	world := scene.NewWorld(transport.NetmodeServer, 30)
	world.RegisterClass(schema)
	world.RegisterRPCTable(schema.ClassName, table)
	scn := world.AddScene("default", 0)
	r, err := scn.AddReplicable(schema, nil)
	if err != nil {
		t.Fatal(err)
	}

	s := NewServer("127.0.0.1", 0, 4, 30, world, fakeRules{})
	addr, _ := net.ResolveUDPAddr("udp", "6.6.6.6:6")
	peer := s.peerFor(addr)
	s.onConnected(peer)

	fn, ok := schema.FunctionByName("jump")
	if !ok {
		t.Fatal("schema declares no jump function")
	}
	body := []byte{byte(fn.Index)}
	payload := encodeReplicatedHeader(scn.ID, r.ID, body)

	client := transport.NewConnection("client:1")
	client.QueuePacket(&transport.Packet{Protocol: transport.ProtocolRPCInvocation, Payload: payload})
	datagrams := client.RequestMessages(false)
	if len(datagrams) != 1 {
		t.Fatalf("expected 1 datagram, got %d", len(datagrams))
	}

	s.handleDatagram(addr, datagrams[0])

	if !called {
		t.Error("expected the registered jump handler to run")
	}
}
