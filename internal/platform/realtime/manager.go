package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Options tunes per-connection transport behaviour.
type Options struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
}

// DefaultOptions returns the transport settings used when none are given.
func DefaultOptions() Options {
	return Options{
		SendBuffer:     256,
		WriteTimeout:   10 * time.Second,
		PongWait:       60 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = d.MaxMessageSize
	}
	return o
}

// ClientMessage is an inbound action from a client.
type ClientMessage struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Manager owns connection lifecycles: it registers new clients, applies
// their join/leave requests to the Registry, relays client-originated events
// and tears membership down when the transport closes.
type Manager struct {
	registry    *Registry
	broadcaster *Broadcaster
	publisher   Publisher
	logger      zerolog.Logger
	opts        Options
	upgrader    gorillawebsocket.Upgrader
}

// NewManager creates a Manager. Client-originated relays are published
// through the broadcaster until SetPublisher installs something else.
func NewManager(b *Broadcaster, logger zerolog.Logger, opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		registry:    b.Registry(),
		broadcaster: b,
		publisher:   b,
		logger:      logger.With().Str("component", "realtime").Logger(),
		opts:        opts,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // dashboards are served from other origins
			},
		},
	}
}

// SetPublisher replaces the publisher used for client-originated relays,
// e.g. with a RedisRelay so they reach other instances.
func (m *Manager) SetPublisher(p Publisher) {
	m.publisher = p
}

// RegisterRoutes mounts the WebSocket endpoint.
func (m *Manager) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", m.HandleConnect)
}

// HandleConnect upgrades the request and starts the client's pumps.
func (m *Manager) HandleConnect(c echo.Context) error {
	ws, err := m.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	client := m.Connect(ws)
	go m.writePump(client)
	go m.readPump(client)
	return nil
}

// Connect completes the handshake for conn: the client gets a fresh id, is
// attached for delivery and starts with no scope membership.
func (m *Manager) Connect(conn Conn) *Client {
	client := newClient(uuid.NewString(), conn, m.opts.SendBuffer)
	m.broadcaster.Attach(client.ID, client)
	client.markConnected()
	m.logger.Info().Str("conn_id", client.ID).Msg("socket connected")
	return client
}

// Disconnect is the mandatory cleanup on transport close. It is safe to
// call more than once; only the first call has an effect.
func (m *Manager) Disconnect(client *Client) {
	if !client.markDisconnected() {
		return
	}
	left := m.registry.LeaveAll(client.ID)
	m.broadcaster.Detach(client.ID)
	_ = client.conn.Close()
	m.logger.Info().
		Str("conn_id", client.ID).
		Strs("scopes", left).
		Dur("session", time.Since(client.CreatedAt)).
		Msg("socket disconnected")
}

// Join subscribes client to scope. Requests from disconnected clients are
// ignored so a late frame cannot resurrect membership.
func (m *Manager) Join(client *Client, scope string) {
	if client.State() != StateConnected {
		return
	}
	m.registry.Join(client.ID, scope)
	// Disconnect may have run between the state check and Join.
	if client.State() == StateDisconnected {
		m.registry.LeaveAll(client.ID)
		return
	}
	m.logger.Debug().Str("conn_id", client.ID).Str("scope", scope).Msg("joined room")
}

// Leave unsubscribes client from scope.
func (m *Manager) Leave(client *Client, scope string) {
	m.registry.Leave(client.ID, scope)
	m.logger.Debug().Str("conn_id", client.ID).Str("scope", scope).Msg("left room")
}

// Dispatch applies one inbound message. Unknown actions are ignored.
func (m *Manager) Dispatch(client *Client, msg ClientMessage) {
	handle, ok := actions[msg.Action]
	if !ok {
		m.logger.Debug().Str("conn_id", client.ID).Str("action", msg.Action).Msg("unknown action")
		return
	}
	if err := handle(m, client, msg.Payload); err != nil {
		m.logger.Debug().Err(err).Str("conn_id", client.ID).Str("action", msg.Action).Msg("action rejected")
	}
}

// RunCompaction periodically drops empty scopes until ctx is done.
func (m *Manager) RunCompaction(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.registry.Compact(); n > 0 {
				m.logger.Debug().Int("removed", n).Msg("compacted empty rooms")
			}
		}
	}
}

func (m *Manager) readPump(client *Client) {
	defer m.Disconnect(client)

	conn := client.conn
	conn.SetReadLimit(m.opts.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(m.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(m.opts.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if gorillawebsocket.IsUnexpectedCloseError(err, gorillawebsocket.CloseGoingAway, gorillawebsocket.CloseNormalClosure) {
				m.logger.Debug().Err(err).Str("conn_id", client.ID).Msg("read error")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(m.opts.PongWait))

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			m.logger.Debug().Err(err).Str("conn_id", client.ID).Msg("malformed frame")
			continue
		}
		m.Dispatch(client, msg)
	}
}

func (m *Manager) writePump(client *Client) {
	pingPeriod := m.opts.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		m.Disconnect(client)
	}()

	conn := client.conn
	for {
		select {
		case <-client.done:
			return
		case frame := <-client.queue:
			_ = conn.SetWriteDeadline(time.Now().Add(m.opts.WriteTimeout))
			if err := conn.WriteMessage(gorillawebsocket.TextMessage, frame); err != nil {
				m.logger.Debug().Err(err).Str("conn_id", client.ID).Msg("write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(m.opts.WriteTimeout))
			if err := conn.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
