package bridge

import (
	"net"
	"strings"
)

// PublicURL returns the address a phone should open to reach a bridge
// listening on addr. A non-empty override wins. Wildcard or missing hosts
// become localhost.
func PublicURL(addr, override string) string {
	if override = strings.TrimSpace(override); override != "" {
		return strings.TrimRight(override, "/")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + strings.TrimRight(addr, "/")
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
