package server

import (
	"html/template"

	"github.com/vango-dev/backoffice/pkg/boundary"
	"github.com/vango-dev/backoffice/pkg/nav"
)

// Frame types.
const (
	// Client to server.
	frameNavigate = "navigate"
	frameAck      = "ack"

	// Server to client.
	frameProgress = "progress"
	frameView     = "view"
	frameRedirect = "redirect"
	frameConfirm  = "confirm"
	frameReload   = "reload"
	frameError    = "error"
)

// clientFrame is any frame sent by the client.
type clientFrame struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"` // navigate
	ID   string `json:"id,omitempty"`   // ack
}

type progressFrame struct {
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

type viewFrame struct {
	Type string        `json:"type"`
	View nav.View      `json:"view"`
	HTML template.HTML `json:"html"`
}

type redirectFrame struct {
	Type    string `json:"type"`
	Path    string `json:"path"`
	Replace bool   `json:"replace"`
}

type confirmFrame struct {
	Type   string          `json:"type"`
	Notice boundary.Notice `json:"notice"`
}

type reloadFrame struct {
	Type string `json:"type"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
