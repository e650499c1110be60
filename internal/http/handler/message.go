package handler

import (
	"context"
	"net/http"

	"aws-examples-api/internal/auth"
	"aws-examples-api/internal/domain"
)

// Greeter is satisfied by service.MessageService
type Greeter interface {
	Greeting(ctx context.Context) string
}

// MessageHandler serves the greeting and the caller's forwarded identity
type MessageHandler struct {
	greeter Greeter
}

// NewMessageHandler creates a MessageHandler backed by greeter
func NewMessageHandler(greeter Greeter) *MessageHandler {
	return &MessageHandler{greeter: greeter}
}

// GetMessages handles GET /api/messages. The identity middleware has already
// run; a missing or rejected identity is served as an empty user object.
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := auth.FromContext(ctx)

	user := map[string]any(identity.Claims)
	if user == nil {
		user = map[string]any{}
	}

	writeJSON(w, http.StatusOK, domain.MessagesResponse{
		Message: h.greeter.Greeting(ctx),
		User:    user,
	})
}

// Healthz handles GET /api/healthz, the ALB target group health check
func (h *MessageHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
