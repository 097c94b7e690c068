package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/tqp/internal/csvcodec"
	"github.com/JonMunkholm/tqp/internal/schema"
)

const (
	// maxJSONBody bounds a single-record request body.
	maxJSONBody = 1 << 20

	// multipartOverhead is allowed on top of the file size limit for the
	// form boundaries and the kind field.
	multipartOverhead = 64 << 10

	// multipartMemory is kept in memory before form parts spill to disk.
	multipartMemory = 8 << 20
)

// decodeJSON reads one JSON object from the body into v. On failure it writes
// a 400 response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+jsonProblem(err), codeBadRequest)
		return false
	}
	return true
}

// jsonProblem describes a decode error without echoing request content.
func jsonProblem(err error) string {
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return "empty body"
	case errors.As(err, &syn):
		return fmt.Sprintf("syntax error at offset %d", syn.Offset)
	case errors.As(err, &typ):
		return fmt.Sprintf("field %s must be a %s", typ.Field, typ.Type)
	}
	return "malformed"
}

// kindParam resolves the {kind} URL parameter. On failure it writes a 404
// response and returns false.
func kindParam(w http.ResponseWriter, r *http.Request) (schema.Tag, bool) {
	tag, err := schema.ParseTag(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error(), codeBadRequest)
		return schema.TagUnknown, false
	}
	return tag, true
}

// readUpload reads the "file" part of a multipart form, bounded by the
// service's file size limit. On failure it writes the response and returns
// ok=false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (name string, data []byte, ok bool) {
	limit := s.svc.MaxFileSize()
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.respondError(w, r, err)
			return "", nil, false
		}
		writeError(w, r, http.StatusBadRequest, "invalid multipart form", codeBadRequest)
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "no file provided", codeBadRequest)
		return "", nil, false
	}
	defer file.Close()

	data, err = csvcodec.ReadLimited(file, limit)
	if err != nil {
		if errors.Is(err, csvcodec.ErrTooLarge) {
			s.respondError(w, r, fmt.Errorf("%s: %w", header.Filename, err))
		} else {
			s.respondErrorStatus(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		}
		return "", nil, false
	}
	return header.Filename, data, true
}

// formKind parses the optional "kind" form field. An empty value yields
// TagUnknown, which lets the file header or name decide.
func formKind(w http.ResponseWriter, r *http.Request) (schema.Tag, bool) {
	v := strings.TrimSpace(r.FormValue("kind"))
	if v == "" {
		return schema.TagUnknown, true
	}
	tag, err := schema.ParseTag(v)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), codeBadRequest)
		return schema.TagUnknown, false
	}
	return tag, true
}

// attachment sets download headers for name.
func attachment(w http.ResponseWriter, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, name))
}

// clientIP returns the address part of r.RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
