// Package mqtt5 is the MQTT 5 broker client for supervised nodes.
//
// It offers the same contract as the 3.1.1 client in package mqtt:
// SetCredentials and SetServer take effect on the next Connect, Connect
// returns immediately and reports its outcome through the OnConnect or
// OnDisconnect callback, and the library never reconnects on its own.
//
// Each Connect dials a fresh TCP (or TLS) connection and hands it to a new
// paho.golang client. Session present comes from the CONNACK. A DISCONNECT
// from the server and any client-side error are reported once through
// OnDisconnect.
package mqtt5
