package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/auth"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
)

// TokenVerifier resolves a bearer token into an identity.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// LocationReporter accepts position reports sent over an authenticated courier connection.
type LocationReporter interface {
	ReportLocationForUser(ctx context.Context, userID string, lat, lng float64) (domain.LocationReport, error)
}

// Config tunes connection handling.
type Config struct {
	AuthTimeout time.Duration
	SendBuffer  int
}

// Handler upgrades requests and runs the auth handshake.
type Handler struct {
	registry *Registry
	verifier TokenVerifier
	reporter LocationReporter
	logger   logx.Logger
	cfg      Config
	upgrader websocket.Upgrader
}

// NewHandler builds the /ws endpoint. reporter may be nil, location messages are then rejected.
func NewHandler(registry *Registry, verifier TokenVerifier, reporter LocationReporter, logger logx.Logger, cfg Config) *Handler {
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = 10 * time.Second
	}
	return &Handler{
		registry: registry,
		verifier: verifier,
		reporter: reporter,
		logger:   logger,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// native apps send no Origin header
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

type inbound struct {
	Type      string   `json:"type"`
	Token     string   `json:"token,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type authSuccess struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type locationAck struct {
	Type       string  `json:"type"`
	OrderID    string  `json:"orderId"`
	ETA        int     `json:"eta"`
	DistanceKm float64 `json:"distanceKm"`
}

type pong struct {
	Type string `json:"type"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("ws upgrade failed", logx.Err(err))
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := newClient(conn, h.cfg.SendBuffer)
	go c.writePump()
	defer c.Close()

	id, ok := h.authenticate(c)
	if !ok {
		return
	}

	h.registry.Register(id.UserID, c)
	defer h.registry.Unregister(c)

	log := h.logger.With(logx.String("user_id", id.UserID), logx.String("role", string(id.Role)))
	log.Info("ws connected", logx.Event("ws_connected"))
	defer log.Info("ws disconnected", logx.Event("ws_disconnected"))

	h.emit(c, authSuccess{Type: "auth_success", UserID: id.UserID})
	h.serveAuthenticated(r.Context(), c, id, log)
}

// authenticate waits for {type:"auth"} until AuthTimeout. Other messages are dropped.
func (h *Handler) authenticate(c *Client) (auth.Identity, bool) {
	_ = c.conn.SetReadDeadline(time.Now().Add(h.cfg.AuthTimeout))
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return auth.Identity{}, false
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "auth" {
			continue
		}
		id, err := h.verifier.Verify(msg.Token)
		if err != nil {
			h.emit(c, errorMessage{Type: "auth_error", Message: apperr.Message(err)})
			return auth.Identity{}, false
		}
		return id, true
	}
}

func (h *Handler) serveAuthenticated(ctx context.Context, c *Client, id auth.Identity, log logx.Logger) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("ws read failed", logx.Err(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.emit(c, errorMessage{Type: "error", Message: "malformed message", Code: apperr.Code(apperr.ErrBadRequest)})
			continue
		}
		switch msg.Type {
		case "ping":
			h.emit(c, pong{Type: "pong"})
		case "location":
			h.handleLocation(ctx, c, id, msg)
		default:
			log.Debug("ws message ignored", logx.String("type", msg.Type))
		}
	}
}

func (h *Handler) handleLocation(ctx context.Context, c *Client, id auth.Identity, msg inbound) {
	if id.Role != auth.RoleCourier || h.reporter == nil {
		h.emit(c, errorMessage{Type: "error", Message: "location reports are accepted from couriers only", Code: apperr.Code(apperr.ErrForbidden)})
		return
	}
	if msg.Latitude == nil || msg.Longitude == nil {
		h.emit(c, errorMessage{Type: "error", Message: "latitude and longitude are required", Code: apperr.Code(apperr.ErrInvalidCoordinate)})
		return
	}
	rep, err := h.reporter.ReportLocationForUser(ctx, id.UserID, *msg.Latitude, *msg.Longitude)
	if err != nil {
		h.emit(c, errorMessage{Type: "error", Message: apperr.Message(err), Code: apperr.Code(err)})
		return
	}
	h.emit(c, locationAck{Type: "location_ack", OrderID: rep.OrderID, ETA: rep.ETAMinutes, DistanceKm: rep.DistanceKm})
}

func (h *Handler) emit(c *Client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("ws marshal failed", logx.Err(err))
		return
	}
	_ = c.Send(data)
}
