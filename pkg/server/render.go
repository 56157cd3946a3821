package server

import (
	"bytes"
	"context"
	"net/http"

	"github.com/vango-dev/backoffice/pkg/apperr"
	"github.com/vango-dev/backoffice/pkg/boundary"
	"github.com/vango-dev/backoffice/pkg/nav"
	"github.com/vango-dev/backoffice/pkg/router"
)

// pageHistory records what a server-side render asked the history to do.
type pageHistory struct {
	target string
	reload bool
}

func (h *pageHistory) Navigate(path string, _ nav.NavigateOptions) {
	h.target = path
}

func (h *pageHistory) Reload() {
	h.reload = true
}

// handleRender renders the requested location through a short-lived
// region. The acknowledgement of a notice is the rendered page itself, so
// the boundary does not wait for one.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	path := r.URL.EscapedPath()
	clean, err := router.CleanPath(path)
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if clean != path {
		if r.URL.RawQuery != "" {
			clean += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, clean, http.StatusPermanentRedirect)
		return
	}

	lang := s.language(r)
	history := &pageHistory{}
	recoverer := boundary.New(nil,
		boundary.WithHomePath(s.config.HomePath),
		boundary.WithLocalizer(s.pages.Bundle().Localizer(lang)),
		boundary.WithLogger(s.logger),
	)
	ctl := nav.New(s.pages.Table(lang), nil, nav.Deps{
		History:   history,
		Recoverer: recoverer,
	},
		nav.WithHomePath(s.config.HomePath),
		nav.WithLogger(s.logger),
		nav.WithMiddleware(s.navMiddleware...),
	)
	defer ctl.Close()

	n := ctl.Run(r.Context(), r.URL.RequestURI())

	switch n.Outcome {
	case nav.OutcomeRendered:
		s.writePage(w, r, http.StatusOK, func(ctx context.Context, buf *bytes.Buffer) error {
			return s.pages.Page(ctx, buf, lang, *n.View)
		})

	case nav.OutcomeRedirected:
		http.Redirect(w, r, history.target, http.StatusSeeOther)

	case nav.OutcomeRecovered:
		d := n.Decision
		notice := recoverer.Notice(d.Kind)
		if d.Notice != nil {
			notice = *d.Notice
		}
		s.writePage(w, r, apperr.StatusCode(d.Kind), func(ctx context.Context, buf *bytes.Buffer) error {
			return s.pages.Notice(ctx, buf, lang, notice, d.Path)
		})

	case nav.OutcomeCanceled, nav.OutcomeClosed:
		// The client went away.

	default:
		// Reloaded, failed or stale: nothing usable was produced.
		s.writePage(w, r, http.StatusInternalServerError, func(ctx context.Context, buf *bytes.Buffer) error {
			return s.pages.Error(ctx, buf, lang, r.URL.Path)
		})
	}
}

// writePage renders into a buffer first so a template failure can still
// become a plain 500.
func (s *Server) writePage(w http.ResponseWriter, r *http.Request, status int, render func(context.Context, *bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(r.Context(), &buf); err != nil {
		s.logger.Error("page render failed", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// language picks the catalog language from the "lang" cookie or the
// Accept-Language header.
func (s *Server) language(r *http.Request) string {
	bundle := s.pages.Bundle()
	if c, err := r.Cookie("lang"); err == nil && c.Value != "" {
		return bundle.Match(c.Value)
	}
	return bundle.Match(r.Header.Get("Accept-Language"))
}
