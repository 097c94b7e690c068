package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/tqp/internal/schema"
	"github.com/JonMunkholm/tqp/internal/store"
	"github.com/JonMunkholm/tqp/internal/web/templates"
)

// handleOverview renders the landing page. ?q= filters the test case table.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query().Get("q")

	all, err := s.svc.ListTestCases(ctx)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	matched, err := s.svc.SearchTestCases(ctx, q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	conns, err := s.svc.ListConnections(ctx)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := templates.Overview(templates.OverviewData{
		Query:       q,
		TestCases:   matched,
		Connections: conns,
		Total:       len(all),
	})
	if err := page.Render(ctx, w); err != nil {
		s.respondError(w, r, err)
	}
}

// handleHealth reports whether the backend answers. The collection cache is
// bypassed so a lost backend is noticed.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.svc.Store()
	if _, err := st.Backend().Get(r.Context(), st.Key(schema.TagConnections)); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.respondErrorStatus(w, r, err, http.StatusServiceUnavailable)
		return
	}
	counts, err := s.svc.Count(r.Context())
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "counts": counts})
}
