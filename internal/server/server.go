// Package server wires transport, replication and the simulation
// clock into a running UDP process (spec §5 "Scheduling model", §6
// "Outer loop"). Grounded on source/server/server.go's Server: a
// mutex-guarded peer map, a net.UDPConn read loop that handles each
// datagram in turn, and a ticker-driven update loop — adapted
// from SA-MP session/player bookkeeping to the spec's handshake state
// machine and per-connection replication Manager.
package server

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"repcore/internal/metrics"
	"repcore/internal/replication"
	"repcore/internal/rpc"
	"repcore/internal/scene"
	"repcore/internal/transport"
	"repcore/pkg/logging"
)

const maxDatagramSize = 2048

// StepUpperBound caps a single accumulator step (spec §6: "upper bound
// on delta of 0.25 s").
const StepUpperBound = 250 * time.Millisecond

// Peer is one connected or connecting remote address.
type Peer struct {
	Addr      string
	Conn      *transport.Connection
	Handshake *transport.Handshake
	Manager   *replication.Manager

	udpAddr *net.UDPAddr
}

// Server owns the UDP socket, the peer table and the fixed-timestep
// tick loop.
type Server struct {
	Host       string
	Port       int
	MaxPlayers int
	TickRate   float64

	World   *scene.World
	Rules   scene.Rules
	Metrics *metrics.Collector

	socket  *net.UDPConn
	peers   map[string]*Peer
	mu      sync.RWMutex
	running bool
	log     *logrus.Entry
}

// NewServer builds a Server bound to world/rules, not yet listening.
func NewServer(host string, port, maxPlayers int, tickRate float64, world *scene.World, rules scene.Rules) *Server {
	return &Server{
		Host:       host,
		Port:       port,
		MaxPlayers: maxPlayers,
		TickRate:   tickRate,
		World:      world,
		Rules:      rules,
		peers:      map[string]*Peer{},
		log:        logging.For("server"),
	}
}

// Start binds the UDP socket and launches the receive and tick loops.
func (s *Server) Start() error {
	addr := &net.UDPAddr{IP: net.ParseIP(s.Host), Port: s.Port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("server: bind udp socket: %w", err)
	}

	s.socket = conn
	s.running = true
	s.tuneSocketBuffers()
	s.wireSceneDestruction()

	s.log.WithField("addr", addr.String()).Info("listening")

	go s.receiveLoop()
	go s.tickLoop()
	return nil
}

// Stop closes the socket and ends both loops.
func (s *Server) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if s.socket != nil {
		s.socket.Close()
	}
}

func (s *Server) isRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Server) receiveLoop() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := s.socket.ReadFromUDP(buf)
		if err != nil {
			if !s.isRunning() {
				return
			}
			s.log.WithField("error", err).Warn("udp read failed")
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		s.handleDatagram(addr, data)
	}
}

func (s *Server) peerFor(addr *net.UDPAddr) *Peer {
	key := addr.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.peers[key]; ok {
		return p
	}
	if len(s.peers) >= s.MaxPlayers {
		return nil
	}

	conn := transport.NewConnection(key)
	conn.Bus.Subscribe("timeout", func(transport.ConnectionEvent) {
		s.log.WithField("addr", key).Info("peer connection timed out")
	})
	conn.Bus.Subscribe("not_acked", func(transport.ConnectionEvent) {
		s.log.WithField("addr", key).Debug("reliable packet dropped")
	})
	peer := &Peer{
		Addr:      key,
		Conn:      conn,
		Handshake: transport.NewServerHandshake(conn),
		udpAddr:   addr,
	}
	s.peers[key] = peer
	return peer
}

func (s *Server) handleDatagram(addr *net.UDPAddr, data []byte) {
	peer := s.peerFor(addr)
	if peer == nil {
		s.log.WithField("addr", addr.String()).Warn("server full, dropping connection attempt")
		return
	}

	packets, err := peer.Conn.ReceiveMessage(data)
	if err != nil {
		s.log.WithField("error", err).Debug("malformed datagram")
		return
	}

	for _, p := range packets {
		s.dispatch(peer, p)
	}
}

func (s *Server) dispatch(peer *Peer, p *transport.Packet) {
	switch peer.Handshake.State {
	case transport.HandshakeInit, transport.HandshakeAwaiting:
		reply, err := peer.Handshake.HandleServer(p, s.Rules)
		if err != nil {
			s.log.WithField("error", err).Warn("handshake rejected")
			return
		}
		if reply != nil {
			peer.Conn.QueuePacket(reply)
		}
		if peer.Handshake.State == transport.HandshakeConnected {
			s.onConnected(peer)
		}
	default:
		s.dispatchConnected(peer, p)
	}
}

func (s *Server) onConnected(peer *Peer) {
	peer.Manager = replication.NewManager(nil, s.Rules, time.Duration(float64(time.Second)/s.TickRate), 3*time.Second)
	s.log.WithField("addr", peer.Addr).Info("peer connected")
}

func (s *Server) dispatchConnected(peer *Peer, p *transport.Packet) {
	switch p.Protocol {
	case transport.ProtocolDisconnectRequest:
		s.removePeer(peer)
	case transport.ProtocolAttributeUpdate:
		s.applyAttributeUpdate(peer, p)
	case transport.ProtocolRPCInvocation:
		s.applyRPCInvocation(peer, p)
	default:
		s.log.WithField("protocol", p.Protocol.String()).Debug("unhandled packet")
	}
}

// channelFor resolves the replication channel a decoded attribute_update
// or rpc_invocation payload targets. The connection's Manager map is
// populated lazily (spec §4.3): if this is the first inbound packet for
// a replicable the Manager hasn't opened yet, it is resolved from the
// World's live scene state and opened on demand.
func (s *Server) channelFor(peer *Peer, sceneID, replicableID uint8) (*replication.Channel, bool) {
	if peer.Manager == nil {
		return nil, false
	}
	if ch, ok := peer.Manager.Channel(sceneID, replicableID); ok {
		return ch, true
	}

	scn, ok := s.World.SceneByID(sceneID)
	if !ok {
		s.log.WithField("scene", sceneID).Debug("packet for unknown scene")
		return nil, false
	}
	r, ok := scn.Get(replicableID)
	if !ok {
		s.log.WithField("replicable", replicableID).Debug("packet for unknown replicable")
		return nil, false
	}
	if _, ok := s.World.ClassByName(r.Class.ClassName); !ok {
		s.log.WithField("class", r.Class.ClassName).Warn("replicable class not registered with world")
		return nil, false
	}
	return peer.Manager.Open(sceneID, r), true
}

func (s *Server) applyAttributeUpdate(peer *Peer, p *transport.Packet) {
	sceneID, replicableID, body, err := decodeReplicatedHeader(p.Payload)
	if err != nil {
		s.log.WithField("error", err).Debug("malformed attribute_update")
		return
	}
	ch, ok := s.channelFor(peer, sceneID, replicableID)
	if !ok {
		return
	}
	if _, err := ch.ApplyUpdate(body); err != nil {
		s.log.WithField("error", err).Warn("failed to apply attribute_update")
	}
}

func (s *Server) applyRPCInvocation(peer *Peer, p *transport.Packet) {
	sceneID, replicableID, body, err := decodeReplicatedHeader(p.Payload)
	if err != nil {
		s.log.WithField("error", err).Debug("malformed rpc_invocation")
		return
	}
	ch, ok := s.channelFor(peer, sceneID, replicableID)
	if !ok {
		return
	}
	calls, err := ch.DecodeRPCRun(body)
	if err != nil {
		s.log.WithField("error", err).Warn("failed to decode rpc_invocation")
		return
	}
	table, ok := s.World.RPCTable(ch.Replicable.Class.ClassName)
	if !ok {
		return
	}
	// Root stays nil: no game layer yet binds a handshake's root
	// replicable id to a concrete Replicable (spec §1 scopes controller
	// assignment out), so OwnedBy(nil) denies every non-broadcast call.
	invoker := rpc.Invoker{Root: nil, Role: ch.Replicable.Roles.Remote}
	for _, call := range calls {
		if err := table.Dispatch(ch.Replicable, call, invoker); err != nil {
			s.log.WithField("error", err).Debug("rpc dispatch failed")
		}
	}
}

func (s *Server) removePeer(peer *Peer) {
	s.mu.Lock()
	delete(s.peers, peer.Addr)
	s.mu.Unlock()

	if s.Metrics != nil {
		s.Metrics.Remove(peer.Addr)
	}
}

func (s *Server) tickLoop() {
	stepTime := time.Duration(float64(time.Second) / s.TickRate)
	ticker := time.NewTicker(stepTime)
	defer ticker.Stop()

	last := time.Now()
	var accumulator time.Duration

	for s.isRunning() {
		<-ticker.C
		now := time.Now()
		delta := now.Sub(last)
		last = now
		if delta > StepUpperBound {
			delta = StepUpperBound
		}
		accumulator += delta

		for accumulator >= stepTime {
			s.step(stepTime)
			accumulator -= stepTime
		}
	}
}

// step runs one fixed-timestep tick: advance the world clock, flush
// every connection's replication manager, and send outbound datagrams
// (spec §6 "every step invokes receive -> world.tick() -> send").
func (s *Server) step(dt time.Duration) {
	s.World.Step(dt.Seconds())

	s.mu.RLock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.RUnlock()

	now := time.Now()
	for _, peer := range peers {
		if peer.Conn.TimedOut(now) {
			s.removePeer(peer)
			continue
		}

		if peer.Manager != nil {
			attrs, rpcs := peer.Manager.Tick(now, int(peer.Conn.Bandwidth/s.TickRate))
			for _, item := range attrs {
				if item.Initial {
					peer.Conn.QueuePacket(&transport.Packet{
						Protocol: transport.ProtocolReplicableCreated,
						Payload:  encodeReplicableCreated(item.SceneID, item.ReplicableID, item.ClassName),
						Reliable: true,
					})
				}
				peer.Conn.QueuePacket(&transport.Packet{
					Protocol: transport.ProtocolAttributeUpdate,
					Payload:  encodeReplicatedHeader(item.SceneID, item.ReplicableID, item.Payload),
					Reliable: false,
				})
				if s.Metrics != nil {
					s.Metrics.IncChannelUpdates(1)
				}
			}
			for _, batch := range rpcs {
				if len(batch.Reliable) > 0 {
					peer.Conn.QueuePacket(&transport.Packet{
						Protocol: transport.ProtocolRPCInvocation,
						Payload:  encodeReplicatedHeader(batch.SceneID, batch.ReplicableID, batch.Reliable),
						Reliable: true,
					})
				}
				if len(batch.Unreliable) > 0 {
					peer.Conn.QueuePacket(&transport.Packet{
						Protocol: transport.ProtocolRPCInvocation,
						Payload:  encodeReplicatedHeader(batch.SceneID, batch.ReplicableID, batch.Unreliable),
						Reliable: false,
					})
				}
			}
			peer.Manager.CullShadows(now)
		}

		for _, datagram := range peer.Conn.RequestMessages(true) {
			s.socket.WriteToUDP(datagram, peer.udpAddr)
		}

		if s.Metrics != nil {
			s.Metrics.Observe(metrics.ConnectionSample{
				Addr:        peer.Addr,
				Bandwidth:   peer.Conn.Bandwidth,
				RTTSeconds:  peer.Conn.Latency.RTT().Seconds(),
				PacketsLost: peer.Conn.PacketsLost,
			})
		}
	}
}

// wireSceneDestruction subscribes every registered scene's
// replicable_removed message so a destroyed replicable's demise reaches
// every connected peer as a reliable replicable_destroyed packet, and
// shadows that peer's channel for it (spec §4.2 "Shadow channels").
func (s *Server) wireSceneDestruction() {
	for _, scn := range s.World.Scenes() {
		sceneID := scn.ID
		scn.Bus.Subscribe("replicable_removed", func(ev scene.ReplicableEvent) {
			s.broadcastReplicableDestroyed(sceneID, ev.Replicable.ID)
		})
	}
}

func (s *Server) broadcastReplicableDestroyed(sceneID, replicableID uint8) {
	s.mu.RLock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.RUnlock()

	now := time.Now()
	for _, peer := range peers {
		if peer.Manager != nil {
			peer.Manager.Close(sceneID, replicableID, now)
		}
		peer.Conn.QueuePacket(&transport.Packet{
			Protocol: transport.ProtocolReplicableDestroyed,
			Payload:  encodeReplicatedHeader(sceneID, replicableID, nil),
			Reliable: true,
		})
	}
}

// encodeReplicatedHeader prefixes an attribute_update or rpc_invocation
// payload with the scene and replicable id it targets (spec §4.2:
// "attach the replicable's packed id prefix").
func encodeReplicatedHeader(sceneID, replicableID uint8, body []byte) []byte {
	out := make([]byte, 2+len(body))
	out[0] = sceneID
	out[1] = replicableID
	copy(out[2:], body)
	return out
}

func decodeReplicatedHeader(data []byte) (sceneID, replicableID uint8, body []byte, err error) {
	if len(data) < 2 {
		return 0, 0, nil, fmt.Errorf("server: replicated header too short")
	}
	return data[0], data[1], data[2:], nil
}

// encodeReplicableCreated frames a replicable_created packet: scene id,
// replicable id, then the length-prefixed class name, so the receiver
// can resolve a Schema before any attribute_update for the instance
// arrives (spec §4.2's mandatory ordering).
func encodeReplicableCreated(sceneID, replicableID uint8, className string) []byte {
	name := []byte(className)
	out := make([]byte, 4+len(name))
	out[0] = sceneID
	out[1] = replicableID
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(name)))
	copy(out[4:], name)
	return out
}

// PlayerCount reports the current peer count.
func (s *Server) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}
