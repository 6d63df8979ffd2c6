package lan

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Scheme prefixes share links, e.g. doodleboard://192.168.1.20:5000.
const Scheme = "doodleboard://"

// ErrBadLink is returned for links that do not name a host and port.
var ErrBadLink = errors.New("invalid share link")

// ShareLink formats the link a host hands to peers.
func ShareLink(ip string, port int) string {
	return Scheme + net.JoinHostPort(ip, strconv.Itoa(port))
}

// RelayURL turns a share link, a host:port or a ws/http URL into the hub's websocket URL.
func RelayURL(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", ErrBadLink
	}

	if strings.HasPrefix(link, Scheme) {
		hostport := strings.TrimSuffix(strings.TrimPrefix(link, Scheme), "/")
		if _, _, err := net.SplitHostPort(hostport); err != nil {
			return "", fmt.Errorf("%w: %q", ErrBadLink, link)
		}
		return WebSocketURL(hostport), nil
	}

	if !strings.Contains(link, "://") {
		if _, _, err := net.SplitHostPort(link); err != nil {
			return "", fmt.Errorf("%w: %q", ErrBadLink, link)
		}
		return WebSocketURL(link), nil
	}

	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrBadLink, link)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: scheme %q", ErrBadLink, u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// WebSocketURL is the hub endpoint at hostport.
func WebSocketURL(hostport string) string {
	return "ws://" + hostport + "/ws"
}
