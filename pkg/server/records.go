package server

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/backoffice/pkg/apperr"
	"github.com/vango-dev/backoffice/pkg/boundary"
)

// maxFormSize bounds record form bodies.
const maxFormSize = 1 << 20

// handleSave accepts a record form and redirects to the saved record.
// Failures render the notice of their kind, leading back to the form.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	var id int64
	if raw := chi.URLParam(r, "id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			http.NotFound(w, r)
			return
		}
		id = v
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	location, err := s.pages.Submit(r.Context(), kind, id, r.PostForm)
	if err == nil {
		http.Redirect(w, r, location, http.StatusSeeOther)
		return
	}

	lang := s.language(r)
	k := apperr.KindOf(err)
	if !k.Recoverable() {
		s.logger.Error("record save failed", "kind", kind, "id", id, "error", err)
		s.writePage(w, r, http.StatusInternalServerError, func(ctx context.Context, buf *bytes.Buffer) error {
			return s.pages.Error(ctx, buf, lang, r.URL.Path)
		})
		return
	}

	back := "/" + kind + "/new"
	if id != 0 {
		back = "/" + kind + "/" + strconv.FormatInt(id, 10) + "/edit"
	}
	if k == apperr.KindNotFound || k == apperr.KindAuthorization {
		back = s.config.HomePath
	}

	notice := boundary.New(nil, boundary.WithLocalizer(s.pages.Bundle().Localizer(lang))).Notice(k)
	s.logger.Info("record save rejected", "kind", kind, "id", id, "error_kind", k.String(), "error", err)
	s.writePage(w, r, apperr.StatusCode(k), func(ctx context.Context, buf *bytes.Buffer) error {
		return s.pages.Notice(ctx, buf, lang, notice, back)
	})
}
