package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/vango-dev/backoffice/pkg/boundary"
	"github.com/vango-dev/backoffice/pkg/middleware"
	"github.com/vango-dev/backoffice/pkg/nav"
	"github.com/vango-dev/backoffice/pkg/progress"
	"github.com/vango-dev/backoffice/pkg/router"
)

// Session is one live WebSocket connection and the navigation region it
// owns. It is the region's History, Publisher and notice Confirmer.
type Session struct {
	// ID uniquely identifies the session.
	ID string

	// IP is the client address.
	IP string

	// CreatedAt is when the socket was accepted.
	CreatedAt time.Time

	lang    string
	conn    *websocket.Conn
	config  *SessionConfig
	pages   Pages
	metrics *middleware.Metrics
	logger  *slog.Logger

	ctl         *nav.Controller
	bar         *progress.Bar
	unsubscribe func()
	limiter     *rate.Limiter

	// ctx carries the principal into navigations and ends with the session.
	ctx    context.Context
	cancel context.CancelFunc

	send chan []byte
	done chan struct{}

	mu       sync.Mutex
	confirms map[string]chan struct{}

	closeOnce sync.Once
	onClose   func(*Session)
}

// newSession wires a region to conn. ctx must not be canceled when the
// upgrade handler returns.
func (s *Server) newSession(ctx context.Context, conn *websocket.Conn, lang, ip string) *Session {
	cfg := s.config.SessionConfig
	sess := &Session{
		ID:        uuid.NewString(),
		IP:        ip,
		CreatedAt: time.Now(),
		lang:      lang,
		conn:      conn,
		config:    cfg,
		pages:     s.pages,
		metrics:   s.metrics,
		bar:       progress.New(),
		limiter:   rate.NewLimiter(cfg.NavigateRate, cfg.NavigateBurst),
		send:      make(chan []byte, cfg.SendQueueSize),
		done:      make(chan struct{}),
		confirms:  make(map[string]chan struct{}),
	}
	sess.logger = s.logger.With("session_id", sess.ID)
	sess.ctx, sess.cancel = context.WithCancel(ctx)

	recoverer := boundary.New(sess,
		boundary.WithHomePath(s.config.HomePath),
		boundary.WithLocalizer(s.pages.Bundle().Localizer(lang)),
		boundary.WithLogger(sess.logger),
	)
	sess.ctl = nav.New(s.pages.Table(lang), nil, nav.Deps{
		Progress:  sess.bar,
		History:   sess,
		Publisher: sess,
		Recoverer: recoverer,
	},
		nav.WithHomePath(s.config.HomePath),
		nav.WithMinDelay(s.config.MinDelay),
		nav.WithLogger(sess.logger),
		nav.WithMiddleware(s.navMiddleware...),
	)
	sess.unsubscribe = sess.bar.Subscribe(func(snap progress.Snapshot) {
		sess.enqueue(progressFrame{Type: frameProgress, Active: snap.Active})
	})
	return sess
}

// Controller returns the session's navigation controller.
func (s *Session) Controller() *nav.Controller {
	return s.ctl
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// =============================================================================
// Region collaborators
// =============================================================================

// Navigate implements nav.History. The client updates its URL and comes
// back with a navigate frame.
func (s *Session) Navigate(path string, opts nav.NavigateOptions) {
	s.enqueue(redirectFrame{Type: frameRedirect, Path: path, Replace: opts.Replace})
}

// Reload implements nav.History.
func (s *Session) Reload() {
	s.enqueue(reloadFrame{Type: frameReload})
}

// Publish implements nav.Publisher.
func (s *Session) Publish(v nav.View) {
	html, err := s.pages.Content(s.lang, v)
	if err != nil {
		s.logger.Error("render failed", "route", v.RouteID, "error", err)
		s.enqueue(errorFrame{Type: frameError, Message: "render failed"})
		return
	}
	s.enqueue(viewFrame{Type: frameView, View: v, HTML: html})
}

// Confirm implements boundary.Confirmer. It shows n on the client and
// blocks until the client acknowledges it.
func (s *Session) Confirm(ctx context.Context, n boundary.Notice) error {
	ch := make(chan struct{})
	s.mu.Lock()
	s.confirms[n.ID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.confirms, n.ID)
		s.mu.Unlock()
	}()

	s.enqueue(confirmFrame{Type: frameConfirm, Notice: n})

	var timeout <-chan time.Time
	if s.config.ConfirmTimeout > 0 {
		t := time.NewTimer(s.config.ConfirmTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	case <-timeout:
		return ErrConfirmTimeout
	}
}

func (s *Session) ack(id string) {
	s.mu.Lock()
	ch, ok := s.confirms[id]
	if ok {
		delete(s.confirms, id)
	}
	s.mu.Unlock()
	if ok {
		close(ch)
	}
}

// =============================================================================
// Connection loops
// =============================================================================

// enqueue marshals frame and queues it for the write loop. It never blocks:
// it may run with the controller lock held. A full queue ends the session.
func (s *Session) enqueue(frame any) {
	data, err := json.Marshal(frame)
	if err != nil {
		s.logger.Error("frame encode failed", "error", err)
		return
	}

	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.send <- data:
	default:
		s.logger.Warn("closing slow session", "error", ErrSendQueueFull)
		s.metrics.RecordWebSocketError("overflow")
		go s.Close()
	}
}

// ReadLoop reads client frames until the connection fails or the session
// closes. It closes the session on return.
func (s *Session) ReadLoop() {
	defer s.Close()

	s.conn.SetReadLimit(s.config.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				s.logger.Warn("read error", "error", err)
				s.metrics.RecordWebSocketError("read")
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		var f clientFrame
		if err := json.Unmarshal(msg, &f); err != nil {
			s.metrics.RecordWebSocketError("decode")
			s.enqueue(errorFrame{Type: frameError, Message: "invalid frame"})
			continue
		}
		s.handleFrame(f)
	}
}

func (s *Session) handleFrame(f clientFrame) {
	switch f.Type {
	case frameNavigate:
		location, err := router.CanonicalLocation(f.Path)
		if err != nil {
			s.enqueue(errorFrame{Type: frameError, Message: "invalid path"})
			return
		}
		if !s.limiter.Allow() {
			s.metrics.RecordWebSocketError("rate_limited")
			s.enqueue(errorFrame{Type: frameError, Message: "too many navigations"})
			return
		}
		s.ctl.Navigate(s.ctx, location)

	case frameAck:
		s.ack(f.ID)

	default:
		s.logger.Warn("unknown frame type", "type", f.Type)
	}
}

// WriteLoop writes queued frames and pings until the session closes.
func (s *Session) WriteLoop() {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()
	defer s.Close()

	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Debug("write error", "error", err)
				s.metrics.RecordWebSocketError("write")
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.metrics.RecordWebSocketError("ping")
				return
			}

		case <-s.done:
			deadline := time.Now().Add(s.config.WriteTimeout)
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		}
	}
}

// Close ends the session: pending notices are released, the region is
// closed (clearing its cache) and the connection is dropped.
// Close is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
		s.unsubscribe()
		s.ctl.Close()
		s.conn.Close()
		s.logger.Debug("session closed", "duration", time.Since(s.CreatedAt))
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}
