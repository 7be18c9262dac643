package wall

import (
	"fmt"
	"net"
)

// interfaceAddrs is swapped out in tests
var interfaceAddrs = net.InterfaceAddrs

// LocalIP returns the first non-loopback IPv4 address, or "localhost"
func LocalIP() string {
	addrs, err := interfaceAddrs()
	if err != nil {
		return "localhost"
	}
	return firstIPv4(addrs)
}

func firstIPv4(addrs []net.Addr) string {
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil || ip.IsLoopback() {
			continue
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "localhost"
}

// LocalURL is the address other devices on the network can open
func LocalURL(port int) string {
	return fmt.Sprintf("http://%s:%d", LocalIP(), port)
}
