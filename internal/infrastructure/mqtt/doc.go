// Package mqtt provides MQTT 3.1.1 connectivity for iotdemo nodes and the
// results collector.
//
// This package manages:
//   - Supervised connections for nodes: one attempt per Connect call, no
//     library retries, outcome reported through callbacks
//   - Auto-reconnecting connections for the collector
//   - Message publishing with QoS guarantees and packet identifiers
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// Each board publishes its inference results to iotdemo/<board>. The
// collector subscribes to iotdemo/+ and stores what it receives.
//
//	node (supervisor + mqtt.Client) → broker → collector (mqtt.Client)
//
// # Security Considerations
//
//   - Set cfg.Broker.TLS for anything beyond a lab network
//   - Credentials come from IOTDEMO_MQTT_USERNAME / IOTDEMO_MQTT_PASSWORD
//   - Payloads are not encrypted beyond TLS transport
//
// # Usage
//
// Supervised node client:
//
//	client := mqtt.New(cfg.MQTT, cfg.Node.Board)
//	client.SetOnConnect(func(sessionPresent bool) { ... })
//	client.SetOnDisconnect(func(err error) { ... })
//	client.SetCredentials(user, password)
//	client.Connect() // returns immediately
//
// Auto-reconnecting collector client:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllResults(), 1, handler)
package mqtt
