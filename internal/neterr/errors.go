// Package neterr defines the error kinds raised across the replication
// and transport layers, and the policy each kind carries (spec §7).
// No error defined here may propagate across a tick boundary: callers
// at the dispatch/tick loop must log and continue.
package neterr

import "errors"

var (
	// ErrMalformedDatagram: transport decode failure. Policy: drop the
	// datagram, log, leave connection state untouched.
	ErrMalformedDatagram = errors.New("neterr: malformed datagram")

	// ErrUnknownProtocol: dispatch found no handler for a protocol id.
	// Policy: drop the packet, log.
	ErrUnknownProtocol = errors.New("neterr: unknown protocol")

	// ErrUnknownReplicableID: channel lookup missed. Policy: drop the
	// update; log only once the miss count passes a threshold.
	ErrUnknownReplicableID = errors.New("neterr: unknown replicable id")

	// ErrUnknownFunctionIndex: RPC decode found no such function.
	// Policy: abort decoding the remainder of this packet.
	ErrUnknownFunctionIndex = errors.New("neterr: unknown function index")

	// ErrPermissionDenied: RPC role check failed. Policy: skip
	// execution silently; the decode must still consume its bytes.
	ErrPermissionDenied = errors.New("neterr: permission denied")

	// ErrAuth: Rules.PreInitialise rejected a handshake. Policy: send
	// handshake_failed, tear down on ack.
	ErrAuth = errors.New("neterr: authentication failed")

	// ErrTimeout: no datagram received within timeout_duration. Policy:
	// transition to timed_out, invoke PostDisconnect, tear down.
	ErrTimeout = errors.New("neterr: connection timed out")

	// ErrSerialisationFailure: outbound pack failed. Policy: log with
	// replicable id and attribute/function name, drop that item only.
	ErrSerialisationFailure = errors.New("neterr: serialisation failure")
)

// AuthKind names one of the handshake rejection reasons from spec §6.
type AuthKind string

const (
	AuthenticationFailed AuthKind = "AuthenticationFailed"
	PlayerLimitReached   AuthKind = "PlayerLimitReached"
	Blacklisted          AuthKind = "Blacklisted"
	PeerIsServer         AuthKind = "PeerIsServer"
)

// AuthError wraps ErrAuth with a specific kind and human message, as sent
// over the wire in a handshake_failed packet (two length-prefixed strings).
type AuthError struct {
	Kind    AuthKind
	Message string
}

func (e *AuthError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *AuthError) Unwrap() error { return ErrAuth }

// IDContest is not an error in the fatal sense — it is informational,
// raised by Scene.AddReplicable when an explicit id collides with an
// existing dynamic replicable, which is then reassigned. Never fatal.
type IDContest struct {
	RequestedID uint8
	ReassignedTo uint8
}

func (e *IDContest) Error() string {
	return "neterr: id contest, existing replicable reassigned"
}
