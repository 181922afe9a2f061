package chat

import (
	"encoding/json"
	"net/http"

	"github.com/igame-lab/assistant/internal/service/chat"
	"github.com/igame-lab/assistant/internal/service/session"
	"github.com/igame-lab/assistant/util/getsafe"
)

type chatHandler struct {
	service  *chat.Service
	sessions *session.Service
}

// HandleMessage answers POST /chat. A missing or non-string message is the
// caller's error; everything past that point always yields a reply.
func (h *chatHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	message := getsafe.String(body, "message")
	if len(message) == 0 {
		http.Error(w, "message is required and must be a string", http.StatusBadRequest)
		return
	}

	sessionId := getsafe.String(body, "sessionId")

	reply, sessionId := h.service.Respond(r.Context(), sessionId, message)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"response":  reply,
		"sessionId": sessionId,
	})
}

// HandleSessions answers GET /chat with the live session list.
func (h *chatHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"sessions": h.sessions.List(r.Context()),
	})
}

func NewHandler(service *chat.Service, sessions *session.Service) *chatHandler {
	return &chatHandler{
		service:  service,
		sessions: sessions,
	}
}
