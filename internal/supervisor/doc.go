// Package supervisor keeps a node attached to its network link and, on top
// of that link, to its MQTT broker.
//
// The supervisor is a small state machine over two coupled flags:
//
//	(link=down, broker=down)  initial
//	(link=up,   broker=down)  after the link comes up, or the broker drops
//	(link=up,   broker=up)    after the broker accepts the session
//
// Losing the link collapses the broker flag to down. The broker can never be
// up while the link is down; a broker "connected" report that arrives while
// the link is believed down is logged and refused.
//
// # Reconnection
//
// Recovery is driven by two one-shot timers, one per layer:
//
//   - Link lost: disarm the broker timer, arm the link timer. When it fires
//     the link connect operation is invoked again.
//   - Link up: a broker connect is issued immediately, with no timer.
//   - Broker lost while the link is up: arm the broker timer. When it fires
//     the broker connect operation is invoked again.
//   - Broker lost while the link is down: nothing. The next link-up issues
//     the broker connect.
//
// Arming a timer that is already pending replaces it, so two disconnect
// events in quick succession produce one reconnect attempt.
//
// Connect attempts are fire-and-forget. A failed attempt is only observed
// when the collaborator reports a disconnect; there is no connect timeout.
//
// # Thread Safety
//
// All entry points serialize on one mutex. Collaborator calls and the
// change observer run after the mutex is released, so adapters may deliver
// events from any goroutine, including synchronously from Connect.
//
// # Usage
//
//	sup, err := supervisor.New(supervisor.Options{
//	    Link:   link,
//	    Broker: broker,
//	    LinkIdentity: cfg.Network.Identity,
//	    LinkSecret:   cfg.Network.Secret,
//	    BrokerUser:   cfg.MQTT.Auth.Username,
//	    BrokerSecret: cfg.MQTT.Auth.Password,
//	})
//	link.SetOnConnect(func() { sup.OnLinkEvent(supervisor.LinkConnected) })
//	link.SetOnDisconnect(func(error) { sup.OnLinkEvent(supervisor.LinkDisconnected) })
//	sup.Start()
package supervisor
