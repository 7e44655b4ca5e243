package util

import (
	"fmt"
	"net"
	"strings"
)

// ParseIPWithMask parses an IP address with CIDR notation.
// Returns the IP, mask length, and any error.
func ParseIPWithMask(cidr string) (net.IP, int, error) {
	ip, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid CIDR notation: %s", cidr)
	}
	ones, _ := ipNet.Mask.Size()
	return ip, ones, nil
}

// Addr strips any prefix length from an interface address.
// "10.0.0.1/8" -> "10.0.0.1"; a bare address passes through unchanged.
func Addr(cidr string) string {
	if i := strings.IndexByte(cidr, '/'); i >= 0 {
		return cidr[:i]
	}
	return cidr
}

// IsIPv6 reports whether the (possibly prefixed) address is IPv6.
func IsIPv6(cidr string) bool {
	ip := net.ParseIP(Addr(cidr))
	return ip != nil && ip.To4() == nil
}

// HostPrefix returns the address at host prefix length:
// /32 for IPv4, /128 for IPv6.
func HostPrefix(cidr string) string {
	addr := Addr(cidr)
	if IsIPv6(cidr) {
		return addr + "/128"
	}
	return addr + "/32"
}

// EthType returns the ONOS EtherType selector value for the address family
// of the given address: "0x800" for IPv4, "0x86dd" for IPv6.
func EthType(cidr string) string {
	if IsIPv6(cidr) {
		return "0x86dd"
	}
	return "0x800"
}
