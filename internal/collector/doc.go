// Package collector receives the results published by every node and
// keeps them.
//
// Each result arriving on iotdemo/<board> is stored in SQLite, written to
// InfluxDB when enabled, and buffered per board. When a result's iteration
// is a multiple of the export period the board's buffer is written to
// <export_dir>/<board>_<model>.csv, replacing any earlier file, and the
// buffer starts over.
//
// Node online/offline announcements on iotdemo/status/<client id> are
// recorded alongside.
package collector
