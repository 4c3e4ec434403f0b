package http

import (
	"net/http"

	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
)

type registerTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type deactivateDeviceRequest struct {
	Token string `json:"token"`
}

func (s *Server) registerTokenHandler(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())

	var req registerTokenRequest
	if err := s.readJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	if _, err := s.uc.Device.RegisterDevice(r.Context(), p.UserID, req.Token, model.DevicePlatform(req.Platform)); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) deactivateDeviceHandler(w http.ResponseWriter, r *http.Request) {
	p := model.PrincipalFromContext(r.Context())

	var req deactivateDeviceRequest
	if err := s.readJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	if err := s.uc.Device.DeactivateDevice(r.Context(), p.UserID, req.Token); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
}
