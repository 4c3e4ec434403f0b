package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
)

type searchMemoriesRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type memoryResponse struct {
	ID             model.MemoryID       `json:"id"`
	ConversationID model.ConversationID `json:"conversationId"`
	Summary        string               `json:"summary"`
	MessageContent string               `json:"messageContent"`
	Topics         []string             `json:"topics"`
	Metadata       map[string]string    `json:"metadata"`
	Score          float64              `json:"score"`
	CreatedAt      time.Time            `json:"createdAt"`
}

func (s *Server) searchMemoriesHandler(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())

	var req searchMemoriesRequest
	if err := s.readJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	hits, err := s.uc.Memory.SearchMemories(r.Context(), p.UserID, req.Query, req.Limit)
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := make([]memoryResponse, 0, len(hits))
	for _, h := range hits {
		resp = append(resp, memoryResponse{
			ID:             h.Record.ID,
			ConversationID: h.Record.ConversationID,
			Summary:        h.Record.Summary,
			MessageContent: h.Record.MessageContent,
			Topics:         h.Record.Topics,
			Metadata:       h.Record.Metadata,
			Score:          h.Score,
			CreatedAt:      h.Record.CreatedAt,
		})
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) deleteMemoryHandler(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())
	id := model.MemoryID(chi.URLParam(r, "memoryID"))

	if err := s.uc.Memory.DeleteMemory(r.Context(), p.Role, id); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) purgeMemoriesHandler(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())

	if err := s.uc.Memory.PurgeUserMemories(r.Context(), p.UserID); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
}
