package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/tqp/internal/interchange"
	"github.com/JonMunkholm/tqp/internal/logging"
	"github.com/JonMunkholm/tqp/internal/schema"
)

// handleImport applies an uploaded .csv, .xlsx or .json file. CSV and XLSX
// files are classified by their header; JSON files need the kind field or a
// file name such as connections.json.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !s.acquireImport(w, r) {
		return
	}
	defer s.imports.release()

	name, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	kind, ok := formKind(w, r)
	if !ok {
		return
	}

	res, err := s.svc.Import(r.Context(), name, data, kind)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("file imported",
		"file", name, "kind", res.Kind, "imported", res.Imported, "added", res.Added, "updated", res.Updated)
	writeJSON(w, res)
}

// previewFailure carries the dry-run analysis alongside the error, so a
// client can show which columns each kind lacks.
type previewFailure struct {
	ErrorResponse
	Preview *interchange.Preview `json:"preview"`
}

// handlePreview reports what importing the uploaded file would do without
// writing anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !s.acquireImport(w, r) {
		return
	}
	defer s.imports.release()

	name, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	p, err := s.svc.Preview(r.Context(), name, data)
	if err != nil {
		if p != nil && errors.Is(err, interchange.ErrUnknownSchema) {
			msg := interchange.MapError(err)
			logging.FromContext(r.Context()).Warn("preview rejected", "file", name, "code", msg.Code)
			writeJSONStatus(w, http.StatusUnprocessableEntity, previewFailure{
				ErrorResponse: newErrorResponse(r, msg),
				Preview:       p,
			})
			return
		}
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (s *Server) acquireImport(w http.ResponseWriter, r *http.Request) bool {
	if err := s.imports.acquire(r.Context()); err != nil {
		if errors.Is(err, errBusy) {
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(s.cfg.Import.QueueWait.Seconds()))))
		}
		s.respondError(w, r, err)
		return false
	}
	return true
}

// handleExport downloads a collection as ?format=csv (default), json or xlsx.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	format, err := interchange.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	exp, err := s.svc.Export(r.Context(), kind, format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	attachment(w, exp.ContentType, exp.FileName)
	w.Header().Set("X-Record-Count", strconv.Itoa(exp.Rows))
	w.Write(exp.Data)
}

// handleTemplate downloads a header-only CSV for a record kind.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	tmpl, err := interchange.Template(kind)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	def, _ := schema.Lookup(kind)

	attachment(w, interchange.FormatCSV.ContentType(), def.FileName+"_template.csv")
	w.Write([]byte(tmpl))
}
