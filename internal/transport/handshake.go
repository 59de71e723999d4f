package transport

import (
	"encoding/binary"
	"fmt"

	"repcore/internal/neterr"
)

// HandshakeState names one state of the handshake machine (spec §4.5).
type HandshakeState int

const (
	HandshakeInit HandshakeState = iota
	HandshakeAwaiting
	HandshakeReceived
	HandshakeConnected
	HandshakeFailed
	HandshakeDisconnected
	HandshakeTimedOut
)

// Netmode distinguishes a connection's declared role.
type Netmode uint8

const (
	NetmodeServer Netmode = iota
	NetmodeClient
)

// Rules is the subset of the World's collaborator (spec §6) the
// handshake state machine needs: authorisation and connection
// lifecycle hooks.
type Rules interface {
	PreInitialise(addr string, netmode Netmode) error
	PostInitialise(conn *Connection) (rootReplicableID uint8, err error)
	PostDisconnect(conn *Connection, rootReplicableID uint8)
}

// Handshake drives one Connection through spec §4.5's state machine.
type Handshake struct {
	Conn    *Connection
	Netmode Netmode
	State   HandshakeState

	rootReplicableID uint8
}

// NewClientHandshake builds the client side, immediately ready to emit
// its reliable request_handshake packet via FirstPacket.
func NewClientHandshake(conn *Connection, netmode Netmode) *Handshake {
	return &Handshake{Conn: conn, Netmode: netmode, State: HandshakeInit}
}

// NewServerHandshake builds the server side, awaiting a request_handshake.
func NewServerHandshake(conn *Connection) *Handshake {
	return &Handshake{Conn: conn, State: HandshakeInit}
}

// FirstPacket returns the client's initial reliable handshake request.
func (h *Handshake) FirstPacket() *Packet {
	h.State = HandshakeAwaiting
	return &Packet{
		Protocol: ProtocolHandshakeRequest,
		Payload:  []byte{byte(h.Netmode)},
		Reliable: true,
	}
}

// HandleServer processes one handshake-phase packet on the server side,
// returning the reply packet to enqueue, if any.
func (h *Handshake) HandleServer(p *Packet, rules Rules) (*Packet, error) {
	switch p.Protocol {
	case ProtocolHandshakeRequest:
		if len(p.Payload) < 1 {
			return nil, fmt.Errorf("%w: empty handshake request", neterr.ErrMalformedDatagram)
		}
		netmode := Netmode(p.Payload[0])
		h.Netmode = netmode

		if err := rules.PreInitialise(h.Conn.Addr, netmode); err != nil {
			kind, message := classifyAuthError(err)
			payload := encodeHandshakeFailure(kind, message)
			h.State = HandshakeFailed
			return &Packet{
				Protocol: ProtocolHandshakeFailed,
				Payload:  payload,
				Reliable: true,
				OnSuccess: func() {
					h.State = HandshakeDisconnected
				},
			}, nil
		}

		rootID, err := rules.PostInitialise(h.Conn)
		if err != nil {
			return nil, fmt.Errorf("transport: post_initialise: %w", err)
		}
		h.rootReplicableID = rootID
		h.State = HandshakeConnected
		return &Packet{
			Protocol: ProtocolHandshakeSuccess,
			Payload:  []byte{byte(NetmodeServer)},
			Reliable: true,
		}, nil

	case ProtocolDisconnectRequest:
		h.State = HandshakeDisconnected
		rules.PostDisconnect(h.Conn, h.rootReplicableID)
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unexpected handshake packet %s", neterr.ErrUnknownProtocol, p.Protocol)
}

// HandleClient processes one handshake-phase packet on the client side.
func (h *Handshake) HandleClient(p *Packet) error {
	switch p.Protocol {
	case ProtocolHandshakeSuccess:
		h.State = HandshakeConnected
		return nil
	case ProtocolHandshakeFailed:
		h.State = HandshakeFailed
		kind, message := decodeHandshakeFailure(p.Payload)
		return &neterr.AuthError{Kind: kind, Message: message}
	case ProtocolInvokeHandshake:
		h.State = HandshakeInit
		return nil
	}
	return fmt.Errorf("%w: unexpected handshake packet %s", neterr.ErrUnknownProtocol, p.Protocol)
}

func classifyAuthError(err error) (neterr.AuthKind, string) {
	var authErr *neterr.AuthError
	if ae, ok := err.(*neterr.AuthError); ok {
		authErr = ae
	}
	if authErr != nil {
		return authErr.Kind, authErr.Message
	}
	return neterr.AuthenticationFailed, err.Error()
}

// encodeHandshakeFailure writes two length-prefixed strings (kind then
// message), matching connection_interfaces.py's err_name + err_body
// layout, generalised from a type-name string to an AuthKind.
func encodeHandshakeFailure(kind neterr.AuthKind, message string) []byte {
	return append(lengthPrefixedString(string(kind)), lengthPrefixedString(message)...)
}

func decodeHandshakeFailure(data []byte) (neterr.AuthKind, string) {
	kind, n := readLengthPrefixedString(data)
	message, _ := readLengthPrefixedString(data[n:])
	return neterr.AuthKind(kind), message
}

func lengthPrefixedString(s string) []byte {
	out := make([]byte, 2+len(s))
	binary.LittleEndian.PutUint16(out[:2], uint16(len(s)))
	copy(out[2:], s)
	return out
}

func readLengthPrefixedString(data []byte) (string, int) {
	if len(data) < 2 {
		return "", len(data)
	}
	n := int(binary.LittleEndian.Uint16(data[:2]))
	end := 2 + n
	if end > len(data) {
		end = len(data)
	}
	return string(data[2:end]), end
}
