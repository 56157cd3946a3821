package server

import (
	"log/slog"
	"sync"

	"go.uber.org/atomic"

	"github.com/vango-dev/backoffice/pkg/middleware"
)

// SessionManager tracks live sessions and enforces the session limits.
type SessionManager struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	sessionsByIP map[string]int

	maxSessions int
	maxPerIP    int

	totalCreated *atomic.Uint64
	totalClosed  *atomic.Uint64

	metrics *middleware.Metrics
	logger  *slog.Logger
}

// NewSessionManager creates a manager. Zero limits mean unlimited.
func NewSessionManager(maxSessions, maxPerIP int, metrics *middleware.Metrics, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		sessions:     make(map[string]*Session),
		sessionsByIP: make(map[string]int),
		maxSessions:  maxSessions,
		maxPerIP:     maxPerIP,
		totalCreated: atomic.NewUint64(0),
		totalClosed:  atomic.NewUint64(0),
		metrics:      metrics,
		logger:       logger.With("component", "session_manager"),
	}
}

// Admit reports whether a new session from ip would be accepted.
func (m *SessionManager) Admit(ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.admitLocked(ip)
}

func (m *SessionManager) admitLocked(ip string) error {
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return ErrMaxSessionsReached
	}
	if m.maxPerIP > 0 && ip != "" && m.sessionsByIP[ip] >= m.maxPerIP {
		return ErrTooManySessionsFromIP
	}
	return nil
}

// Add registers s. The session removes itself when it closes.
func (m *SessionManager) Add(s *Session) error {
	m.mu.Lock()
	if err := m.admitLocked(s.IP); err != nil {
		m.mu.Unlock()
		return err
	}
	m.sessions[s.ID] = s
	if s.IP != "" {
		m.sessionsByIP[s.IP]++
	}
	count := len(m.sessions)
	m.mu.Unlock()

	s.onClose = m.remove
	m.totalCreated.Inc()
	m.metrics.RecordRegionOpen()
	m.logger.Debug("session added", "session_id", s.ID, "ip", s.IP, "sessions", count)
	return nil
}

func (m *SessionManager) remove(s *Session) {
	m.mu.Lock()
	if _, ok := m.sessions[s.ID]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, s.ID)
	if s.IP != "" {
		if m.sessionsByIP[s.IP] <= 1 {
			delete(m.sessionsByIP, s.IP)
		} else {
			m.sessionsByIP[s.IP]--
		}
	}
	m.mu.Unlock()

	m.totalClosed.Inc()
	m.metrics.RecordRegionClose()
}

// Get returns the session with id, or nil.
func (m *SessionManager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stats returns the lifetime counters.
func (m *SessionManager) Stats() (created, closed uint64) {
	return m.totalCreated.Load(), m.totalClosed.Load()
}

// CloseAll closes every live session.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
