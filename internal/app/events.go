package app

import (
	"github.com/dep2p/rendezvous-server/internal/core/behaviour"
	"github.com/dep2p/rendezvous-server/internal/core/swarm"
	"github.com/dep2p/rendezvous-server/internal/discovery/rendezvous"
	"github.com/dep2p/rendezvous-server/pkg/lib/multiaddr"
)

// handleEvent 记录一个 Swarm 事件，其余事件忽略
func handleEvent(ev swarm.Event) {
	switch e := ev.(type) {
	case swarm.NewListenAddr:
		log.Info("New listening address reported", "address", e.Address.String())
	case swarm.BehaviourEvent:
		if be, ok := e.Event.(behaviour.Event); ok && be.Rendezvous != nil {
			handleRendezvous(be.Rendezvous)
		}
	}
}

func handleRendezvous(ev rendezvous.Event) {
	switch e := ev.(type) {
	case rendezvous.PeerRegistered:
		log.Info("Peer registered",
			"peer", e.Peer.String(),
			"namespace", e.Namespace,
			"addresses", addrStrings(e.Addresses),
			"ttl", e.TTL)
	case rendezvous.PeerNotRegistered:
		log.Info("Peer failed to register",
			"peer", e.Peer.String(),
			"namespace", e.Namespace,
			"error", e.Error.String())
	case rendezvous.RegistrationExpired:
		log.Info("Registration expired",
			"peer", e.Peer.String(),
			"namespace", e.Namespace,
			"addresses", multiaddr.JoinStrings(e.Addresses),
			"ttl", e.TTL)
	case rendezvous.PeerUnregistered:
		log.Info("Peer unregistered",
			"peer", e.Peer.String(),
			"namespace", e.Namespace)
	case rendezvous.DiscoverServed:
		log.Info("Discovery served", "peer", e.Enquirer.String())
	}
}

func addrStrings(addrs []multiaddr.Multiaddr) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}
