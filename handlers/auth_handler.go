package handlers

import (
	"log/slog"
	"net/http"

	"github.com/strayworks/bracketbot/services"
)

type AuthHandler struct {
	authService services.AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

func (h *AuthHandler) StaffLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		AccessKey string `json:"access_key"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	token, err := h.authService.StaffLogin(input.AccessKey)
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"token": token}, nil)
}
