package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"gwi.com/ai-chat-relay/internal/core"
	"gwi.com/ai-chat-relay/internal/logger"
	"gwi.com/ai-chat-relay/internal/store"
)

const (
	msgRegisterFieldsRequired = core.ReasonRegisterFields
	msgChatFieldsRequired     = core.ReasonChatFields
	msgUserIDRequired         = core.ReasonUserIDRequired
	msgInternalError          = "Internal Server Error"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type APIHandler struct {
	chatService *core.ChatService
	db          Pinger
	validate    *RequestValidator
	log         *logger.Logger
}

func NewAPIHandler(cs *core.ChatService, db Pinger, log *logger.Logger) *APIHandler {
	return &APIHandler{
		chatService: cs,
		db:          db,
		validate:    NewRequestValidator(),
		log:         log.With("component", "APIHandler"),
	}
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type MessagesResponse struct {
	Messages []store.ChatRecord `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *APIHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeRequest(w, r, &req); err != nil || h.validate.Validate(&req) != nil {
		writeError(w, http.StatusBadRequest, msgRegisterFieldsRequired)
		return
	}

	user, err := h.chatService.RegisterUser(r.Context(), req.Name, req.Email)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeRequest(w, r, &req); err != nil || h.validate.Validate(&req) != nil {
		writeError(w, http.StatusBadRequest, msgChatFieldsRequired)
		return
	}

	reply, err := h.chatService.Chat(r.Context(), req.UserID, req.Message)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
}

func (h *APIHandler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	var req GetMessagesRequest
	if err := decodeRequest(w, r, &req); err != nil || h.validate.Validate(&req) != nil {
		writeError(w, http.StatusBadRequest, msgUserIDRequired)
		return
	}

	messages, err := h.chatService.GetMessages(r.Context(), req.UserID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Messages: messages})
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.log.Warn("Health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondServiceError maps a core error kind to its HTTP status. Anything
// that is not a validation or not-found error is logged and reported as 500.
func (h *APIHandler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var coreErr *core.Error
	kind := core.KindOf(err)
	switch kind {
	case core.ErrorValidation:
		errors.As(err, &coreErr)
		writeError(w, http.StatusBadRequest, coreErr.Reason)
	case core.ErrorNotFound:
		errors.As(err, &coreErr)
		writeError(w, http.StatusNotFound, coreErr.Reason)
	default:
		h.log.Error("Request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"kind", string(kind),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, msgInternalError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
