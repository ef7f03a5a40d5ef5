// Package config loads the YAML configuration shared by the node and
// collector commands.
//
// Values are layered: Default(), then the file, then IOTDEMO_* environment
// variables. Validate runs last and reports every problem at once.
//
// Durations (supervisor delays, inference interval, probe timing) use Go
// duration strings such as "2s" or "100ms". API and WebSocket timings are
// plain seconds, as are the collector's MQTT reconnect bounds.
//
// Secrets (network secret, broker password, InfluxDB token) should be set
// through the environment and the file kept at 0600.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Node.Board)
package config
