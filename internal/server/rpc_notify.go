package server

import (
	"context"
	"log"

	"github.com/creachadair/jrpc2"

	"github.com/vigild/vigild/common"
	"github.com/vigild/vigild/pkg/vigilib"
)

// RPCNotifier maintains the set of connected websocket jrpc2 servers and
// broadcasts switch events to all of them. It is the engine's notification
// sink: the transport layer is the only consumer of sweep plans.
type RPCNotifier struct {
	servers *vigilib.VMap[*jrpc2.Server, struct{}]
	log     *log.Logger
}

// NewRPCNotifier creates a new notifier.
func NewRPCNotifier(l *log.Logger) *RPCNotifier {
	return &RPCNotifier{
		servers: vigilib.NewVMap[*jrpc2.Server, struct{}](),
		log:     l,
	}
}

// Register adds a connection's server to the broadcast set.
func (n *RPCNotifier) Register(srv *jrpc2.Server) {
	n.servers.Set(srv, struct{}{})
}

// Unregister removes a server from the broadcast set.
func (n *RPCNotifier) Unregister(srv *jrpc2.Server) {
	n.servers.Delete(srv)
}

// Emit implements engine.Notifier by pushing the event to every connected
// client. Servers that fail to receive (e.g. disconnected) are dropped.
func (n *RPCNotifier) Emit(userAddress string, event common.EventType, payload any) {
	method := methodForEvent(event)
	if method == "" {
		if n.log != nil {
			n.log.Printf("notifier: unknown event type %q for %s", event, userAddress)
		}
		return
	}

	var targets []*jrpc2.Server
	n.servers.Range(func(srv *jrpc2.Server, _ struct{}) bool {
		targets = append(targets, srv)
		return true
	})

	for _, srv := range targets {
		if err := srv.Notify(context.Background(), method, payload); err != nil {
			if n.log != nil {
				n.log.Printf("notifier: push failed: %v", err)
			}
			n.servers.Delete(srv)
		}
	}
}

// Count returns the number of registered servers (for testing).
func (n *RPCNotifier) Count() int {
	return n.servers.Len()
}

func methodForEvent(event common.EventType) string {
	switch event {
	case common.EventCheckStarted:
		return common.NotifyCheckStarted
	case common.EventTimerReset:
		return common.NotifyTimerReset
	case common.EventSwitchTriggered:
		return common.NotifySwitchTriggered
	default:
		return ""
	}
}
