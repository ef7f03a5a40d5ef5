// Package api serves the read-only status API and the event WebSocket.
//
// A node exposes its connectivity state and last link probe; a collector
// exposes per-board result summaries and node announcements. Either can
// leave a provider nil, in which case the matching route answers 404.
//
// Every connectivity transition handed to Hub.Broadcast reaches all
// connected WebSocket clients as:
//
//	{"type":"event","event_type":"connectivity","timestamp":"...","payload":{...}}
//
// The server follows the same lifecycle as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
