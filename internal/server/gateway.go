package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/improbable-eng/grpc-web/go/grpcweb"
	"github.com/tidwall/gjson"
	"golang.org/x/net/netutil"

	"github.com/harbor-io/harbor/internal/bridge"
)

// Frame types on the gateway socket.
const (
	FrameEmit   = "emit"
	FrameListen = "listen"
	FrameClose  = "close"
	FrameEvent  = "event"
	FrameError  = "error"
)

const (
	maxSurfaceConns = 32

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Frame is one JSON message on the gateway socket.
type Frame struct {
	Type    string          `json:"type"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	ID      string          `json:"id,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Surfaces is the part of the shell the gateway drives.
type Surfaces interface {
	AttachSurface(label string) error
	RequestClose(label string) error
}

// Gateway lets an external front-end act as a surface: it receives the
// events emitted to its window and emits events of its own.
type Gateway struct {
	bridge     *bridge.Bridge
	surfaces   Surfaces
	listener   net.Listener
	httpServer *http.Server
	upgrader   websocket.Upgrader
	grpcWeb    *grpcweb.WrappedGrpcServer

	mu    sync.Mutex
	conns map[uuid.UUID]*surfaceConn
}

// NewGateway creates a gateway listening on addr.
func NewGateway(addr string, b *bridge.Bridge, s Surfaces) (*Gateway, error) {
	listener, err := (&net.ListenConfig{}).Listen(context.TODO(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	listener = netutil.LimitListener(listener, maxSurfaceConns)

	g := &Gateway{
		bridge:   b,
		surfaces: s,
		listener: listener,
		conns:    make(map[uuid.UUID]*surfaceConn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || isLoopbackOrigin(origin)
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /surfaces/{label}", g.handleSurface)
	g.httpServer = &http.Server{
		Handler:           g.route(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return g, nil
}

// Addr returns the address the gateway is listening on.
func (g *Gateway) Addr() string {
	return g.listener.Addr().String()
}

// Serve starts serving requests. This blocks until Stop is called.
func (g *Gateway) Serve() error {
	err := g.httpServer.Serve(g.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop closes every connection and stops the server.
func (g *Gateway) Stop(ctx context.Context) error {
	err := g.httpServer.Shutdown(ctx)

	g.mu.Lock()
	conns := make([]*surfaceConn, 0, len(g.conns))
	for _, c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
	return err
}

// Connections returns the number of attached front-ends.
func (g *Gateway) Connections() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

func (g *Gateway) handleSurface(w http.ResponseWriter, r *http.Request) {
	label := r.PathValue("label")

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] Upgrade failed for %q: %v", label, err)
		return
	}

	c := &surfaceConn{
		id:      uuid.New(),
		label:   label,
		ws:      ws,
		gateway: g,
		send:    make(chan []byte, 64),
		done:    make(chan struct{}),
		subs:    make(map[string]*bridge.Subscription),
	}

	g.mu.Lock()
	g.conns[c.id] = c
	g.mu.Unlock()
	log.Printf("[gateway] Surface %q connected (%s)", label, c.id)

	if err := g.surfaces.AttachSurface(label); err != nil {
		log.Printf("[gateway] Failed to attach %q: %v", label, err)
	}

	go c.writeLoop()
	c.readLoop()
	c.close()

	g.mu.Lock()
	delete(g.conns, c.id)
	g.mu.Unlock()
	log.Printf("[gateway] Surface %q disconnected (%s)", label, c.id)
}

func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// surfaceConn is one front-end attached as a window.
type surfaceConn struct {
	id      uuid.UUID
	label   string
	ws      *websocket.Conn
	gateway *Gateway
	send    chan []byte
	done    chan struct{}

	mu     sync.Mutex
	subs   map[string]*bridge.Subscription
	closed bool
}

func (c *surfaceConn) readLoop() {
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[gateway] Read error on %q: %v", c.label, err)
			}
			return
		}
		if err := c.handleFrame(msg); err != nil {
			c.sendFrame(Frame{Type: FrameError, Message: err.Error()})
		}
	}
}

func (c *surfaceConn) handleFrame(msg []byte) error {
	if !gjson.ValidBytes(msg) {
		return errors.New("invalid JSON frame")
	}
	frame := gjson.ParseBytes(msg)
	event := frame.Get("event").String()

	switch t := frame.Get("type").String(); t {
	case FrameListen:
		if event == "" {
			return errors.New("listen frame without event")
		}
		c.listen(event)
		return nil

	case FrameEmit:
		if event == "" {
			return errors.New("emit frame without event")
		}
		var payload any
		if p := frame.Get("payload"); p.Exists() {
			payload = json.RawMessage(p.Raw)
		}
		return c.gateway.bridge.Emit(c.label, event, payload)

	case FrameClose:
		return c.gateway.surfaces.RequestClose(c.label)

	default:
		return fmt.Errorf("unknown frame type %q", t)
	}
}

func (c *surfaceConn) listen(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if _, ok := c.subs[event]; ok {
		return
	}
	c.subs[event] = c.gateway.bridge.On(c.label, event, func(ev bridge.Event) {
		c.sendFrame(Frame{
			Type:    FrameEvent,
			Event:   ev.Name,
			Payload: ev.Payload,
			ID:      ev.ID.String(),
		})
	})
}

// sendFrame queues a frame, waiting while the socket is busy so events keep
// their order.
func (c *surfaceConn) sendFrame(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		log.Printf("[gateway] Failed to encode frame: %v", err)
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}

func (c *surfaceConn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("[gateway] Write error on %q: %v", c.label, err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *surfaceConn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	close(c.done)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	_ = c.ws.Close()
}
