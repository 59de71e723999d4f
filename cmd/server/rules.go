package main

import (
	"repcore/internal/neterr"
	"repcore/internal/replication"
	"repcore/internal/transport"
)

// defaultRules is the minimal World.Rules collaborator (spec §6):
// reject a peer identifying itself as a server, accept everything
// else, and treat every replicable as relevant to every connection.
// A concrete game mode narrows IsRelevant (distance/scene culling) and
// returns a real controller id from PostInitialise once it has a
// Schema registered with the World; those are gameplay concerns spec
// §1 scopes out of this module.
type defaultRules struct {
	maxPlayers int
}

func newDefaultRules(maxPlayers int) *defaultRules {
	return &defaultRules{maxPlayers: maxPlayers}
}

func (r *defaultRules) PreInitialise(addr string, netmode transport.Netmode) error {
	if netmode == transport.NetmodeServer {
		return &neterr.AuthError{Kind: neterr.PeerIsServer, Message: "server-to-server connections are not accepted"}
	}
	return nil
}

func (r *defaultRules) PostInitialise(conn *transport.Connection) (uint8, error) {
	return 0, nil
}

func (r *defaultRules) PostDisconnect(conn *transport.Connection, rootReplicableID uint8) {}

func (r *defaultRules) IsRelevant(owner, replicable *replication.Replicable) bool {
	return true
}
