// Package lan finds and announces relay hubs on the local network.
package lan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
)

const ServiceType = "_doodleboard._tcp"

// ErrNoHub is returned when discovery finds nothing before its deadline.
var ErrNoHub = errors.New("no relay hub found")

// Advertise announces a hub listening on port. Shut the returned server down to stop.
func Advertise(port int, log zerolog.Logger) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, []string{"DoodleBoard"})
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}

	log.Info().Str("component", "lan").Str("service", ServiceType).Int("port", port).Msg("advertising relay hub")
	return server, nil
}

// Browse queries the network for hubs for up to timeout, calling found with each hub's
// websocket URL.
func Browse(timeout time.Duration, found func(url string)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if u, ok := entryURL(e); ok {
				found(u)
			}
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return fmt.Errorf("mDNS query: %w", err)
	}
	return nil
}

// Discover returns the first hub found, or ErrNoHub once timeout passes.
func Discover(ctx context.Context, timeout time.Duration) (string, error) {
	urls := make(chan string, 1)
	errc := make(chan error, 1)
	go func() {
		errc <- Browse(timeout, func(u string) {
			select {
			case urls <- u:
			default:
			}
		})
	}()

	select {
	case u := <-urls:
		return u, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errc:
		select {
		case u := <-urls:
			return u, nil
		default:
		}
		if err != nil {
			return "", err
		}
		return "", ErrNoHub
	}
}

func entryURL(e *mdns.ServiceEntry) (string, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return "", false
	}
	return WebSocketURL(net.JoinHostPort(e.AddrV4.String(), strconv.Itoa(e.Port))), true
}
