package network

import (
	"errors"
	"fmt"
	"net"
)

var errNoUsableInterface = errors.New("no interface is up with a routable address")

// hostInterface succeeds when the named interface (or, for an empty name,
// any interface) is up and holds a non-loopback, non-link-local address.
func hostInterface(name string) error {
	if name != "" {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return fmt.Errorf("interface %q: %w", name, err)
		}
		return usable(*iface)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("listing interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if usable(iface) == nil {
			return nil
		}
	}
	return errNoUsableInterface
}

func usable(iface net.Interface) error {
	if iface.Flags&net.FlagUp == 0 {
		return fmt.Errorf("interface %q is down", iface.Name)
	}
	if iface.Flags&net.FlagLoopback != 0 {
		return fmt.Errorf("interface %q is loopback", iface.Name)
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return fmt.Errorf("interface %q addresses: %w", iface.Name, err)
	}
	for _, addr := range addrs {
		if routable(addr) {
			return nil
		}
	}
	return fmt.Errorf("interface %q has no routable address", iface.Name)
}

func routable(addr net.Addr) bool {
	var ip net.IP
	switch a := addr.(type) {
	case *net.IPNet:
		ip = a.IP
	case *net.IPAddr:
		ip = a.IP
	default:
		return false
	}
	return !ip.IsLoopback() && !ip.IsLinkLocalUnicast() && !ip.IsUnspecified()
}
