package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/tqp/internal/schema"
)

// handleListTestCases returns every test case, or those matching ?q=.
func (s *Server) handleListTestCases(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.SearchTestCases(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (s *Server) handleGetTestCase(w http.ResponseWriter, r *http.Request) {
	tc, err := s.svc.GetTestCase(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, tc)
}

// handleSaveTestCase creates (POST) or replaces (PUT /{id}) a test case.
// The URL id wins over any _id in the body.
func (s *Server) handleSaveTestCase(w http.ResponseWriter, r *http.Request) {
	var tc schema.TestCase
	if !decodeJSON(w, r, &tc) {
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		tc.ID = id
	}

	saved, err := s.svc.SaveTestCase(r.Context(), tc)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSONStatus(w, status, saved)
}

func (s *Server) handleDeleteTestCase(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTestCase(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListConnections(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.GetConnection(r.Context(), chi.URLParam(r, "project"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, c)
}

// handleSaveConnection upserts a connection by Project. On PUT the body may
// omit Project; when present it must match the URL.
func (s *Server) handleSaveConnection(w http.ResponseWriter, r *http.Request) {
	var c schema.Connection
	if !decodeJSON(w, r, &c) {
		return
	}
	if project := chi.URLParam(r, "project"); project != "" {
		if c.Project != "" && c.Project != project {
			writeError(w, r, http.StatusBadRequest, "Project in body does not match URL", codeBadRequest)
			return
		}
		c.Project = project
	}

	saved, err := s.svc.SaveConnection(r.Context(), c)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, saved)
}

func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteConnection(r.Context(), chi.URLParam(r, "project")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleConnectionChoices lists the values offered for SRC_Connection and
// TGT_Connection: the built-in Excel and CSV, then stored projects.
func (s *Server) handleConnectionChoices(w http.ResponseWriter, r *http.Request) {
	choices, err := s.svc.ConnectionChoices(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, choices)
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.svc.Count(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, counts)
}
