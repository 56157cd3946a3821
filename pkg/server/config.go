package server

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ServerConfig holds server-wide configuration.
type ServerConfig struct {
	// Address is the listen address (e.g. ":8080").
	Address string

	// HomePath is where unmatched paths and recovered errors lead.
	// Default: "/".
	HomePath string

	// MinDelay keeps the progress indicator up for at least this long
	// on live navigations. Default: 0.
	MinDelay time.Duration

	// ReadBufferSize and WriteBufferSize size the WebSocket buffers.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates the Origin header of WebSocket upgrades.
	// Default: same host only.
	CheckOrigin func(r *http.Request) bool

	// HTTP timeouts.
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// MaxSessions caps concurrent live sessions. 0 means unlimited.
	MaxSessions int

	// MaxSessionsPerIP caps live sessions per client address. 0 means unlimited.
	MaxSessionsPerIP int

	// TrustedProxies lists addresses or CIDRs whose forwarding headers
	// are believed when determining the client address.
	TrustedProxies []string

	// SessionConfig configures live sessions.
	SessionConfig *SessionConfig
}

// SessionConfig configures one live session.
type SessionConfig struct {
	// ReadTimeout closes the session when nothing (not even a pong)
	// arrives for this long.
	ReadTimeout time.Duration

	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration

	// PingInterval is how often the server pings. Must be below ReadTimeout.
	PingInterval time.Duration

	// MaxMessageSize is the largest accepted client frame in bytes.
	MaxMessageSize int64

	// SendQueueSize is the number of outbound frames buffered per session.
	// A client that falls further behind is disconnected.
	SendQueueSize int

	// NavigateRate and NavigateBurst limit navigate frames per session.
	NavigateRate  rate.Limit
	NavigateBurst int

	// ConfirmTimeout bounds how long a notice waits for acknowledgement.
	// 0 waits until the session closes.
	ConfirmTimeout time.Duration
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:           ":8080",
		HomePath:          "/",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		CheckOrigin:       sameOrigin,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		SessionConfig:     DefaultSessionConfig(),
	}
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		PingInterval:   25 * time.Second,
		MaxMessageSize: 16 * 1024,
		SendQueueSize:  64,
		NavigateRate:   rate.Limit(10),
		NavigateBurst:  20,
	}
}

// withDefaults fills unset fields from the defaults.
func (c *ServerConfig) withDefaults() *ServerConfig {
	d := DefaultServerConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.HomePath == "" {
		out.HomePath = d.HomePath
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = d.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = d.WriteBufferSize
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = d.CheckOrigin
	}
	if out.ReadHeaderTimeout == 0 {
		out.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if out.ReadTimeout == 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.IdleTimeout == 0 {
		out.IdleTimeout = d.IdleTimeout
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}

	sc := *d.SessionConfig
	if c.SessionConfig != nil {
		sc = *c.SessionConfig
		ds := d.SessionConfig
		if sc.ReadTimeout == 0 {
			sc.ReadTimeout = ds.ReadTimeout
		}
		if sc.WriteTimeout == 0 {
			sc.WriteTimeout = ds.WriteTimeout
		}
		if sc.PingInterval == 0 {
			sc.PingInterval = ds.PingInterval
		}
		if sc.PingInterval >= sc.ReadTimeout {
			sc.PingInterval = sc.ReadTimeout * 9 / 10
		}
		if sc.MaxMessageSize == 0 {
			sc.MaxMessageSize = ds.MaxMessageSize
		}
		if sc.SendQueueSize == 0 {
			sc.SendQueueSize = ds.SendQueueSize
		}
		if sc.NavigateRate == 0 {
			sc.NavigateRate = ds.NavigateRate
		}
		if sc.NavigateBurst == 0 {
			sc.NavigateBurst = ds.NavigateBurst
		}
	}
	out.SessionConfig = &sc
	return &out
}

// sameOrigin accepts upgrades without an Origin header or whose Origin
// host matches the request host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := parseOrigin(origin)
	if err != nil {
		return false
	}
	return u == r.Host
}
