package transport

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// RejectionResponse is the payload for a booking request that was evaluated
// and turned down. The reason is a machine-readable code, never free text,
// so the caller can render a specific remediation.
type RejectionResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
	Message  string `json:"message,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string, details map[string]string) {
	WriteJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}

func WriteRejection(w http.ResponseWriter, status int, reason, message string) {
	WriteJSON(w, status, RejectionResponse{
		Accepted: false,
		Reason:   reason,
		Message:  message,
	})
}
