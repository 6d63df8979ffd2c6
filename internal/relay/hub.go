package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"DoodleBoard/internal/state"
)

// peer is one websocket connection held by the hub.
type peer struct {
	id   string
	conn *ws.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (p *peer) stop() {
	p.once.Do(func() { close(p.done) })
}

// Hub relays every valid segment it receives to all other connected peers. There are no
// rooms and nothing is replayed to peers that join later.
type Hub struct {
	log        zerolog.Logger
	upgrader   ws.Upgrader
	sendBuffer int

	mu    sync.RWMutex
	peers map[*peer]struct{}

	server   *http.Server
	listener net.Listener

	relayed   metric.Int64Counter
	dropped   metric.Int64Counter
	peerGauge metric.Int64ObservableGauge
	peerReg   metric.Registration
}

// NewHub creates a hub with a per-peer queue of sendBuffer frames.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewHub(sendBuffer int, log zerolog.Logger) (*Hub, error) {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	h := &Hub{
		log:        log.With().Str("component", "hub").Logger(),
		upgrader:   ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		sendBuffer: sendBuffer,
		peers:      make(map[*peer]struct{}),
	}

	m := meter()
	var err error
	h.relayed, err = m.Int64Counter(
		"relay.segments.relayed",
		metric.WithDescription("Segments delivered to peer queues"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating relayed counter: %w", err)
	}
	h.dropped, err = m.Int64Counter(
		"relay.segments.dropped",
		metric.WithDescription("Segments dropped as malformed or for a full peer queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	h.peerGauge, err = m.Int64ObservableGauge(
		"relay.peers",
		metric.WithDescription("Connected peers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating peers gauge: %w", err)
	}
	h.peerReg, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(h.peerGauge, int64(h.Peers()))
		return nil
	}, h.peerGauge)
	if err != nil {
		return nil, fmt.Errorf("registering peers callback: %w", err)
	}
	return h, nil
}

// Handler serves /ws and /health.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	mux.HandleFunc("/health", h.handleHealth)
	return mux
}

// Start listens on addr and serves in the background.
func (h *Hub) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("relay listen %s: %w", addr, err)
	}
	h.listener = ln
	h.server = &http.Server{Handler: h.Handler(), ReadHeaderTimeout: 10 * time.Second}
	h.log.Info().Str("addr", ln.Addr().String()).Msg("relay hub listening")

	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.Error().Err(err).Msg("relay hub stopped")
		}
	}()
	return nil
}

// Addr returns the listening address once started.
func (h *Hub) Addr() net.Addr {
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

// Stop closes the listener and every peer connection and stops reporting the peer gauge.
func (h *Hub) Stop(ctx context.Context) error {
	var err error
	if h.server != nil {
		err = h.server.Shutdown(ctx)
	}
	if h.peerReg != nil {
		if uerr := h.peerReg.Unregister(); uerr != nil && err == nil {
			err = fmt.Errorf("unregistering peers callback: %w", uerr)
		}
		h.peerReg = nil
	}
	h.mu.Lock()
	for p := range h.peers {
		p.stop()
		_ = p.conn.Close()
	}
	h.peers = make(map[*peer]struct{})
	h.mu.Unlock()
	return err
}

// Peers returns the number of connected peers.
func (h *Hub) Peers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

func (h *Hub) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "healthy",
		"peers":  h.Peers(),
	})
}

// ServeWS upgrades the request and relays the peer's segments until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	p := &peer{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}
	h.add(p, r.RemoteAddr)
	defer h.remove(p)

	go h.writeLoop(p)
	h.readLoop(r.Context(), p)
}

func (h *Hub) add(p *peer, remote string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p] = struct{}{}
	h.log.Info().Str("peer", p.id).Str("remote", remote).Int("peers", len(h.peers)).Msg("peer connected")
}

func (h *Hub) remove(p *peer) {
	h.mu.Lock()
	delete(h.peers, p)
	n := len(h.peers)
	h.mu.Unlock()

	p.stop()
	_ = p.conn.Close()
	h.log.Info().Str("peer", p.id).Int("peers", n).Msg("peer disconnected")
}

func (h *Hub) readLoop(ctx context.Context, p *peer) {
	for {
		_, msg, err := p.conn.ReadMessage()
		if err != nil {
			if !ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				h.log.Debug().Err(err).Str("peer", p.id).Msg("read failed")
			}
			return
		}

		var seg state.StrokeSegment
		if err := json.Unmarshal(msg, &seg); err != nil {
			h.dropped.Add(ctx, 1)
			h.log.Debug().Err(err).Str("peer", p.id).Msg("malformed frame dropped")
			continue
		}
		if err := seg.Validate(); err != nil {
			h.dropped.Add(ctx, 1)
			h.log.Debug().Err(err).Str("peer", p.id).Msg("invalid segment dropped")
			continue
		}
		h.Broadcast(ctx, msg, p)
	}
}

// Broadcast queues data for every peer except exclude. Peers with a full queue miss it.
func (h *Hub) Broadcast(ctx context.Context, data []byte, exclude *peer) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for p := range h.peers {
		if p == exclude {
			continue
		}
		select {
		case p.send <- data:
			h.relayed.Add(ctx, 1)
		default:
			h.dropped.Add(ctx, 1)
			h.log.Warn().Str("peer", p.id).Msg("peer queue full, dropping segment")
		}
	}
}

func (h *Hub) writeLoop(p *peer) {
	for {
		select {
		case <-p.done:
			return
		case data := <-p.send:
			if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				_ = p.conn.Close()
				return
			}
			if err := p.conn.WriteMessage(ws.TextMessage, data); err != nil {
				h.log.Debug().Err(err).Str("peer", p.id).Msg("write failed")
				_ = p.conn.Close()
				return
			}
		}
	}
}
