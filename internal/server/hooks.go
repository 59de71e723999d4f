package server

import (
	"fmt"

	"repcore/internal/transport"
)

// Status, Players, Kick and Broadcast implement internal/console.Hooks
// over this Server's own exported state, without the console package
// importing anything about Server directly.

func (s *Server) Status() string {
	return fmt.Sprintf("%s:%d - %d/%d players", s.Host, s.Port, s.PlayerCount(), s.MaxPlayers)
}

func (s *Server) Players() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.peers))
	for addr := range s.peers {
		out = append(out, addr)
	}
	return out
}

func (s *Server) Kick(addr string) error {
	s.mu.Lock()
	peer, ok := s.peers[addr]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("server: no such peer %q", addr)
	}

	peer.Conn.QueuePacket(&transport.Packet{Protocol: transport.ProtocolDisconnectRequest, Reliable: true})
	if s.socket != nil {
		for _, datagram := range peer.Conn.RequestMessages(false) {
			s.socket.WriteToUDP(datagram, peer.udpAddr)
		}
	}
	s.removePeer(peer)
	return nil
}

func (s *Server) Broadcast(message string) {
	s.mu.RLock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.RUnlock()

	payload := []byte(message)
	for _, peer := range peers {
		peer.Conn.QueuePacket(&transport.Packet{Protocol: transport.ProtocolRPCInvocation, Payload: payload, Reliable: true})
	}
}
