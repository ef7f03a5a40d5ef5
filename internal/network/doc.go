// Package network provides the host-side network link for a node.
//
// A Link stands in for a board's WiFi station: Connect asks the host whether
// the named interface is up with a usable address and, optionally, whether a
// probe target accepts TCP connections. The outcome is reported through the
// OnConnect/OnDisconnect callbacks, never returned. While connected, the link
// re-probes at a fixed interval and reports Disconnected on the first
// failure, after which it stays down until the next Connect.
package network
