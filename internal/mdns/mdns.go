// Package mdns announces the service on the local network so the lamp
// and companion tools can find it without configuration.
package mdns

import (
	"fmt"
	"net"

	"github.com/grandcat/zeroconf"
)

const (
	instance = "SleepLamp Model"
	service  = "_http._tcp"
	domain   = "local."
	hostname = "sleepmodel"
)

// Announcer owns the zeroconf registration lifecycle.
type Announcer struct {
	server *zeroconf.Server
}

// Announce registers the HTTP service under sleepmodel.local. The
// advertised address is the interface that routes to the LAN.
func Announce(port int) (*Announcer, error) {
	ip, err := outboundIP()
	if err != nil {
		return nil, fmt.Errorf("determine outbound ip: %w", err)
	}

	txt := []string{"path=/", "service=SleepLampPresetModel"}
	srv, err := zeroconf.RegisterProxy(instance, service, domain, port, hostname, []string{ip.String()}, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("register mdns: %w", err)
	}
	return &Announcer{server: srv}, nil
}

// Shutdown withdraws the announcement.
func (a *Announcer) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

// outboundIP finds the local address used for LAN traffic. The dial
// never sends a packet; it only resolves the route.
func outboundIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP, nil
}
