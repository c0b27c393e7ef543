package echo

import (
	"net"

	"github.com/go-faster/errors"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// joinGroup subscribes conn to a multicast group. Binding to the
// unspecified address alone does not deliver group traffic on every OS.
func joinGroup(conn *net.UDPConn, group, iface string) error {
	ip := net.ParseIP(group)
	if ip == nil || !ip.IsMulticast() {
		return errors.Errorf("invalid multicast group %q", group)
	}

	var ifi *net.Interface
	if iface != "" {
		var err error
		ifi, err = net.InterfaceByName(iface)
		if err != nil {
			return errors.Wrapf(err, "lookup interface %s", iface)
		}
	}

	gaddr := &net.UDPAddr{IP: ip}
	if ip.To4() != nil {
		if err := ipv4.NewPacketConn(conn).JoinGroup(ifi, gaddr); err != nil {
			return errors.Wrapf(err, "join group %s", group)
		}
		return nil
	}
	if err := ipv6.NewPacketConn(conn).JoinGroup(ifi, gaddr); err != nil {
		return errors.Wrapf(err, "join group %s", group)
	}
	return nil
}
