package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
	"github.com/nutrisha-ai/nutrisha/pkg/usecase"
)

type sendMessageRequest struct {
	ConversationID string                       `json:"conversationId"`
	Content        string                       `json:"content"`
	MessageType    string                       `json:"messageType"`
	Attachments    []model.AttachmentRefPayload `json:"attachments"`
}

type createConversationRequest struct {
	Title string `json:"title"`
	Mode  string `json:"mode"`
}

type updateModeRequest struct {
	Mode string `json:"mode"`
}

type conversationResponse struct {
	ID        model.ConversationID     `json:"id"`
	UserID    string                   `json:"userId"`
	StaffID   *string                  `json:"nutritionistId"`
	Title     string                   `json:"title"`
	Mode      types.ConversationMode   `json:"conversationMode"`
	Status    types.ConversationStatus `json:"status"`
	CreatedAt time.Time                `json:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

func toConversationResponse(c *model.Conversation) conversationResponse {
	return conversationResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		StaffID:   c.StaffID,
		Title:     c.Title,
		Mode:      c.Mode,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (s *Server) sendMessageHandler(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())

	var req sendMessageRequest
	if err := s.readJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	attachments := make([]model.AttachmentRef, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, a.Ref())
	}

	resp, err := s.uc.Chat.SendUserMessage(r.Context(), p.UserID, p.Role, usecase.SendMessageRequest{
		ConversationID: model.ConversationID(req.ConversationID),
		Content:        req.Content,
		MessageType:    types.MessageType(req.MessageType),
		Attachments:    attachments,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) createConversationHandler(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())

	var req createConversationRequest
	if err := s.readJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	conv, err := s.uc.Conversation.CreateConversation(r.Context(), p.UserID, req.Title, types.ConversationMode(req.Mode))
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusCreated, toConversationResponse(conv))
}

func (s *Server) listConversationsHandler(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())

	convs, err := s.uc.Conversation.ListConversations(r.Context(), p.UserID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := make([]conversationResponse, 0, len(convs))
	for _, c := range convs {
		resp = append(resp, toConversationResponse(c))
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) updateModeHandler(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())
	convID := model.ConversationID(chi.URLParam(r, "conversationID"))

	var req updateModeRequest
	if err := s.readJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	conv, err := s.uc.Conversation.UpdateMode(r.Context(), p.UserID, p.Role, convID, types.ConversationMode(req.Mode))
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, toConversationResponse(conv))
}

func (s *Server) getMessagesHandler(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())
	convID := model.ConversationID(chi.URLParam(r, "conversationID"))

	limit, err := intQuery(r, "limit", usecase.DefaultMessagePageSize)
	if err != nil {
		handleError(w, r, err)
		return
	}
	offset, err := intQuery(r, "offset", 0)
	if err != nil {
		handleError(w, r, err)
		return
	}

	messages, err := s.uc.Conversation.GetMessages(r.Context(), p.UserID, p.Role, convID, limit, offset)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, messages)
}

func intQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, goerr.Wrap(usecase.ErrInvalidRequest, "query parameter must be an integer",
			goerr.V("key", key),
			goerr.V("value", raw))
	}
	return n, nil
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{
		"userId": p.UserID,
		"role":   p.Role.String(),
	})
}
