package network

import "errors"

var (
	// ErrInterfaceDown is reported when the interface is missing, down or
	// has no usable address.
	ErrInterfaceDown = errors.New("network: interface not ready")

	// ErrProbeFailed is reported when the probe target cannot be reached.
	ErrProbeFailed = errors.New("network: probe target unreachable")

	// ErrDisconnected is reported when Disconnect tears down a live link.
	ErrDisconnected = errors.New("network: disconnected by request")
)
