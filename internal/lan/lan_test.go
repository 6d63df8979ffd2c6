package lan

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareLink(t *testing.T) {
	assert.Equal(t, "doodleboard://192.168.1.20:5000", ShareLink("192.168.1.20", 5000))
}

func TestRelayURL(t *testing.T) {
	cases := map[string]string{
		"doodleboard://192.168.1.20:5000":  "ws://192.168.1.20:5000/ws",
		"doodleboard://192.168.1.20:5000/": "ws://192.168.1.20:5000/ws",
		"10.0.0.2:7000":                    "ws://10.0.0.2:7000/ws",
		"http://localhost:5000":            "ws://localhost:5000/ws",
		"https://board.example:443/":       "wss://board.example:443/ws",
		"ws://localhost:5000/ws":           "ws://localhost:5000/ws",
		"ws://localhost:5000/custom":       "ws://localhost:5000/custom",
	}
	for in, want := range cases {
		got, err := RelayURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "doodleboard://nohost", "ftp://x:1", "justahost"} {
		_, err := RelayURL(bad)
		assert.ErrorIs(t, err, ErrBadLink, bad)
	}
}

func TestRelayURL_RoundTripsShareLink(t *testing.T) {
	u, err := RelayURL(ShareLink("10.1.2.3", 5000))
	require.NoError(t, err)
	assert.Equal(t, "ws://10.1.2.3:5000/ws", u)
}

func TestEntryURL(t *testing.T) {
	u, ok := entryURL(&mdns.ServiceEntry{AddrV4: net.IPv4(192, 168, 0, 7), Port: 5000})
	require.True(t, ok)
	assert.Equal(t, "ws://192.168.0.7:5000/ws", u)

	_, ok = entryURL(&mdns.ServiceEntry{Port: 5000})
	assert.False(t, ok)
	_, ok = entryURL(&mdns.ServiceEntry{AddrV4: net.IPv4(1, 2, 3, 4)})
	assert.False(t, ok)
	_, ok = entryURL(nil)
	assert.False(t, ok)
}

func TestOutgoingIP(t *testing.T) {
	ip, _ := OutgoingIP()
	assert.NotNil(t, net.ParseIP(ip))
}
