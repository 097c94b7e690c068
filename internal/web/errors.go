package web

// errors.go turns service errors into HTTP responses.
//
// The technical error is logged with the request ID; the client only sees the
// mapped UserMessage. API routes always answer in JSON, the overview page in
// plain text.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/tqp/internal/csvcodec"
	"github.com/JonMunkholm/tqp/internal/interchange"
	"github.com/JonMunkholm/tqp/internal/logging"
	"github.com/JonMunkholm/tqp/internal/schema"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error     string                   `json:"error"`
	Message   string                   `json:"message"`
	Action    string                   `json:"action,omitempty"`
	Code      string                   `json:"code"`
	RequestID string                   `json:"request_id,omitempty"`
	Details   []schema.ValidationError `json:"details,omitempty"`
}

// Codes the web layer adds to the interchange catalogue.
const (
	codeBadRequest  = "REQ001"
	codeBusy        = "REQ003"
	codeRateLimited = "RATE001"
)

var busyMessage = interchange.UserMessage{
	Message: "The server is busy with other imports",
	Action:  "Wait a moment and upload again",
	Code:    codeBusy,
}

// userMessage maps err like interchange.MapError, plus the errors raised by
// this package.
func userMessage(err error) interchange.UserMessage {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, errBusy):
		return busyMessage
	case errors.As(err, &maxBytes):
		return interchange.MapError(csvcodec.ErrTooLarge)
	}
	return interchange.MapError(err)
}

// newErrorResponse fills the common fields of an error body.
func newErrorResponse(r *http.Request, msg interchange.UserMessage) ErrorResponse {
	return ErrorResponse{
		Error:     msg.Message,
		Message:   msg.Message,
		Action:    msg.Action,
		Code:      msg.Code,
		RequestID: chimw.GetReqID(r.Context()),
	}
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var verrs schema.ValidationErrors
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, interchange.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &verrs),
		errors.Is(err, interchange.ErrUnknownSchema),
		errors.Is(err, interchange.ErrNoRecords):
		return http.StatusUnprocessableEntity
	case errors.Is(err, interchange.ErrInvalidJSON),
		errors.Is(err, interchange.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, csvcodec.ErrTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBusy), errors.Is(err, interchange.ErrStorage):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the user-facing message with the status
// derived from it.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondErrorStatus(w, r, err, statusFor(err))
}

func (s *Server) respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := userMessage(err)

	log := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request error", "path", r.URL.Path, "method", r.Method, "status", status, "code", msg.Code, "error", err)
	} else {
		log.Warn("request rejected", "path", r.URL.Path, "method", r.Method, "status", status, "code", msg.Code, "error", err)
	}

	if !wantsJSON(r) {
		http.Error(w, msg.Message+" ("+msg.Code+")", status)
		return
	}

	resp := newErrorResponse(r, msg)
	var verrs schema.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Details = verrs
	}
	writeJSONStatus(w, status, resp)
}

// writeError writes a JSON error that did not come from the service, such as
// a malformed request.
func writeError(w http.ResponseWriter, r *http.Request, status int, message, code string) {
	writeJSONStatus(w, status, newErrorResponse(r, interchange.UserMessage{Message: message, Code: code}))
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent.
		slog.Warn("json encode error", "error", err)
	}
}
