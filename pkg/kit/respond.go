package kit

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
)

type ErrorResponse struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {ok:false, error:code}. code is a stable machine string;
// message is optional human text for the page's error block.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	WriteJSON(w, status, ErrorResponse{
		Error:     code,
		Message:   message,
		Details:   details,
		RequestID: chimw.GetReqID(r.Context()),
	})
}
