package transport_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"repcore/internal/transport"
)

type acceptingRules struct{}

func (acceptingRules) PreInitialise(addr string, netmode transport.Netmode) error { return nil }
func (acceptingRules) PostInitialise(conn *transport.Connection) (uint8, error)   { return 7, nil }
func (acceptingRules) PostDisconnect(conn *transport.Connection, rootID uint8)    {}

// TestHandshakeOverEncodedDatagrams drives a full client/server handshake
// through actual QueuePacket/RequestMessages/ReceiveMessage framing rather
// than calling HandleServer/HandleClient directly on in-memory packets,
// the way handshake_test.go exercises the state machine alone.
func TestHandshakeOverEncodedDatagrams(t *testing.T) {
	serverConn := transport.NewConnection("client:1")
	clientConn := transport.NewConnection("server:1")

	server := transport.NewServerHandshake(serverConn)
	client := transport.NewClientHandshake(clientConn, transport.NetmodeClient)

	clientConn.QueuePacket(client.FirstPacket())
	datagrams := clientConn.RequestMessages(false)
	require.Len(t, datagrams, 1)

	received, err := serverConn.ReceiveMessage(datagrams[0])
	require.NoError(t, err)
	require.Len(t, received, 1)

	reply, err := server.HandleServer(received[0], acceptingRules{})
	require.NoError(t, err)
	require.Equal(t, transport.HandshakeConnected, server.State)

	serverConn.QueuePacket(reply)
	replyDatagrams := serverConn.RequestMessages(false)
	require.Len(t, replyDatagrams, 1)

	receivedReply, err := clientConn.ReceiveMessage(replyDatagrams[0])
	require.NoError(t, err)
	require.Len(t, receivedReply, 1)

	require.NoError(t, client.HandleClient(receivedReply[0]))
	require.Equal(t, transport.HandshakeConnected, client.State)
}
