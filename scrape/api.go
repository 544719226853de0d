package scrape

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
)

// TriggerServer exposes the invocation contract over HTTP so runs can be
// fired manually: POST /run starts a pass and answers with the status
// object.
type TriggerServer struct {
	handler *Handler
	log     *log.Logger
}

// ErrorResponse is the JSON envelope for trigger API errors.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewTriggerServer creates a TriggerServer around a handler. A nil logger
// discards output.
func NewTriggerServer(handler *Handler, logger *log.Logger) *TriggerServer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &TriggerServer{handler: handler, log: logger}
}

// Mux returns the route table for the trigger API.
func (s *TriggerServer) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/run", s.HandleRun)
	mux.HandleFunc("/healthz", s.HandleHealth)
	return mux
}

// HandleRun handles POST /run: it reads the opaque trigger payload, runs a
// full pass, and answers with the invocation status object.
func (s *TriggerServer) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_payload", "Failed to read trigger payload: "+err.Error())
		return
	}

	s.log.Info("run triggered over http", "remote", r.RemoteAddr)
	resp := s.handler.Handle(r.Context(), payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	json.NewEncoder(w).Encode(resp)
}

// HandleHealth handles GET /healthz.
func (s *TriggerServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *TriggerServer) writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
