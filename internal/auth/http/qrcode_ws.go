package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/internal/auth/notify"
	"github.com/aussiebroadwan/patchnotes/internal/auth/service"
	"github.com/aussiebroadwan/patchnotes/pkg/authsdk"
	"github.com/aussiebroadwan/patchnotes/pkg/idx"
	"github.com/aussiebroadwan/patchnotes/pkg/slogx"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait        = 10 * time.Second
	wsPongWait         = 60 * time.Second
	wsPingPeriod       = (wsPongWait * 9) / 10
	wsMaxMessageSize   = 4096
	wsMaxSubscriptions = 16
	wsSendBuffer       = 16
)

type wsInbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type wsOutbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// QRCodeGateway pushes QR status changes over a websocket. Clients send
// {"event":"subscribeToQrCode","data":"<code>"} and receive the current
// status immediately, then every change.
type QRCodeGateway struct {
	QR *service.QRService

	origins  []string
	upgrader websocket.Upgrader
}

// NewQRCodeGateway accepts upgrades from the listed origins, from requests
// without an Origin header, and from the service's own host.
func NewQRCodeGateway(qr *service.QRService, origins []string) *QRCodeGateway {
	g := &QRCodeGateway{QR: qr, origins: origins}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

func (g *QRCodeGateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(g.origins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// ServeHTTP godoc
//
//	@Summary		QR status websocket
//	@Description	Upgrade to a websocket. Send subscribeToQrCode / unsubscribeFromQrCode events with a code as data; receive qrCodeStatus events.
//	@Tags			QR login
//	@Success		101
//	@Router			/v1/auth/qr-code/ws [get].
func (g *QRCodeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		log.Debug("websocket upgrade failed", "err", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	ctx = slogx.With(ctx, "conn_id", idx.New().String())

	c := &wsConn{
		conn:       conn,
		qr:         g.QR,
		send:       make(chan wsOutbound, wsSendBuffer),
		subs:       make(map[string]func()),
		terminal:   make(map[string]bool),
		writerDone: make(chan struct{}),
	}

	slogx.FromContext(ctx).Debug("websocket connected")
	go c.writeLoop(ctx)
	c.readLoop(ctx)

	cancel()
	c.unsubscribeAll()
	<-c.writerDone
	_ = conn.Close()
	slogx.FromContext(ctx).Debug("websocket disconnected")
}

type wsConn struct {
	conn *websocket.Conn
	qr   *service.QRService
	send chan wsOutbound

	// subs is only touched by the read loop and, after it returns, by
	// unsubscribeAll.
	subs map[string]func()

	// mu orders status frames per code: once a terminal status has been
	// queued, an older non-terminal snapshot is dropped.
	mu       sync.Mutex
	terminal map[string]bool

	writerDone chan struct{}
}

func (c *wsConn) readLoop(ctx context.Context) {
	log := slogx.FromContext(ctx)

	c.conn.SetReadLimit(wsMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket read failed", "err", err)
			}
			return
		}

		var msg wsInbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.emitError(ctx, "malformed message")
			continue
		}

		var code string
		if err := json.Unmarshal(msg.Data, &code); err != nil || code == "" {
			c.emitError(ctx, "data must be a code string")
			continue
		}

		switch msg.Event {
		case authsdk.EventSubscribeQRCode:
			c.subscribe(ctx, code)
		case authsdk.EventUnsubscribeQRCode:
			if cancel, ok := c.subs[code]; ok {
				cancel()
				delete(c.subs, code)
				c.mu.Lock()
				delete(c.terminal, code)
				c.mu.Unlock()
			}
		default:
			c.emitError(ctx, "unknown event "+msg.Event)
		}
	}
}

func (c *wsConn) subscribe(ctx context.Context, code string) {
	log := slogx.FromContext(ctx)

	if _, ok := c.subs[code]; !ok {
		if len(c.subs) >= wsMaxSubscriptions {
			c.emitError(ctx, "too many subscriptions")
			return
		}

		// Subscribe before reading the status so no transition is missed.
		events, cancel, err := c.qr.Subscribe(ctx, code)
		if err != nil {
			log.Warn("qr subscription failed", "code", code, "err", err)
			c.emitError(ctx, "subscriptions are unavailable")
			return
		}
		c.subs[code] = cancel
		go c.forward(ctx, events)
	}

	status, err := c.qr.CheckStatus(ctx, code)
	if err != nil {
		log.Warn("qr status check failed", "code", code, "err", err)
		c.emitError(ctx, "internal server error")
		return
	}
	c.emitStatus(ctx, code, status)
}

func (c *wsConn) forward(ctx context.Context, events <-chan notify.Event) {
	for e := range events {
		c.emitStatus(ctx, e.Code, e.Status)
	}
}

func (c *wsConn) unsubscribeAll() {
	for code, cancel := range c.subs {
		cancel()
		delete(c.subs, code)
	}
}

func (c *wsConn) emitStatus(ctx context.Context, code string, status domain.QRStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminal[code] && !status.Terminal() {
		return
	}
	if status.Terminal() {
		c.terminal[code] = true
	}

	c.emit(ctx, wsOutbound{
		Event: authsdk.EventQRCodeStatus,
		Data:  authsdk.QRCodeStatusEvent{QRCode: code, Status: string(status)},
	})
}

func (c *wsConn) emitError(ctx context.Context, message string) {
	c.emit(ctx, wsOutbound{Event: authsdk.EventError, Data: message})
}

func (c *wsConn) emit(ctx context.Context, m wsOutbound) {
	select {
	case c.send <- m:
	case <-c.writerDone:
	case <-ctx.Done():
	}
}

// writeLoop owns all writes to the connection.
func (c *wsConn) writeLoop(ctx context.Context) {
	defer close(c.writerDone)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case m := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteJSON(m); err != nil {
				// Unblocks the read loop.
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		}
	}
}
