// Package transport implements the reliable-ish UDP layer of spec §4.4:
// datagram framing, sequence/ack bookkeeping, bandwidth throttling and
// the handshake state machine. It replaces the teacher's RakNet-specific
// BitStream/EncapsulatedPacket framing in source/protocol/raknet.go with
// a simpler bespoke protocol, keeping the same low-level byte-cursor
// reader/writer style.
package transport

import (
	"encoding/binary"
	"fmt"
)

// Protocol identifies the kind of packet carried inside a collection
// (spec §3 Packet).
type Protocol uint8

const (
	ProtocolHandshakeRequest Protocol = iota
	ProtocolHandshakeSuccess
	ProtocolHandshakeFailed
	ProtocolInvokeHandshake
	ProtocolDisconnectRequest
	ProtocolHeartbeat
	ProtocolSceneCreated
	ProtocolSceneDestroyed
	ProtocolReplicableCreated
	ProtocolReplicableDestroyed
	ProtocolAttributeUpdate
	ProtocolRPCInvocation
)

func (p Protocol) String() string {
	names := [...]string{
		"handshake_request", "handshake_success", "handshake_failed",
		"invoke_handshake", "disconnect_request", "heartbeat",
		"scene_created", "scene_destroyed", "replicable_created",
		"replicable_destroyed", "attribute_update", "rpc_invocation",
	}
	if int(p) < len(names) {
		return names[p]
	}
	return fmt.Sprintf("protocol(%d)", p)
}

// Packet is one logical message: a protocol id, payload bytes, a
// reliability flag, and optional ack callbacks (spec §3 Packet).
type Packet struct {
	Protocol  Protocol
	Payload   []byte
	Reliable  bool
	OnSuccess func()
	OnFailure func()
}

// ToReliable returns p if it is reliable, nil otherwise — used when a
// dropped outstanding-ack entry is being considered for requeue (spec
// §4.4: "if that entry contained reliable packets, requeue those").
func (p *Packet) ToReliable() *Packet {
	if p == nil || !p.Reliable {
		return nil
	}
	return p
}

func (p *Packet) ack() {
	if p != nil && p.OnSuccess != nil {
		p.OnSuccess()
	}
}

func (p *Packet) notAck() {
	if p != nil && p.OnFailure != nil {
		p.OnFailure()
	}
}

// encode frames one packet as [protocol_id(1)][reliable_flag(1)][len(2, LE)][body].
func (p *Packet) encode() []byte {
	out := make([]byte, 4+len(p.Payload))
	out[0] = byte(p.Protocol)
	if p.Reliable {
		out[1] = 1
	}
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(p.Payload)))
	copy(out[4:], p.Payload)
	return out
}

// EncodeCollection concatenates the framed encoding of each packet into
// one packet collection payload (spec §4.4).
func EncodeCollection(packets []*Packet) []byte {
	var out []byte
	for _, p := range packets {
		out = append(out, p.encode()...)
	}
	return out
}

// DecodeCollection parses one or more framed packets out of data.
func DecodeCollection(data []byte) ([]*Packet, error) {
	var packets []*Packet
	offset := 0
	for offset < len(data) {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("transport: truncated packet header at offset %d", offset)
		}
		protocol := Protocol(data[offset])
		reliable := data[offset+1] != 0
		length := int(binary.LittleEndian.Uint16(data[offset+2 : offset+4]))
		offset += 4
		if offset+length > len(data) {
			return nil, fmt.Errorf("transport: truncated packet body, need %d have %d", length, len(data)-offset)
		}
		payload := make([]byte, length)
		copy(payload, data[offset:offset+length])
		offset += length
		packets = append(packets, &Packet{Protocol: protocol, Payload: payload, Reliable: reliable})
	}
	return packets, nil
}
