// Package logging provides the structured logger shared by nodes and
// collectors.
//
// Every entry carries service=iotdemo and the build version. Components
// add their own tag:
//
//	log := logging.New(cfg.Logging, version)
//	supLog := log.Component("supervisor")
//	supLog.Info("link connected")
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// String attributes whose key contains "secret", "password" or "token" are
// replaced with [REDACTED] before they are written.
package logging
