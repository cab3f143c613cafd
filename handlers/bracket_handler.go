package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/strayworks/bracketbot/services"
)

type BracketHandler struct {
	bracketService services.BracketService
	logger         *slog.Logger
}

func NewBracketHandler(bracketService services.BracketService, logger *slog.Logger) *BracketHandler {
	return &BracketHandler{bracketService: bracketService, logger: logger}
}

func (h *BracketHandler) Start(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	payload, err := h.bracketService.StartBracket(r.Context(), guildID)
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, jsonResponse{"bracket": payload}, nil)
}

func (h *BracketHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	matchID, err := strconv.Atoi(chi.URLParam(r, "matchID"))
	if err != nil || matchID <= 0 {
		badRequestResponse(w, err)
		return
	}

	var input services.RecordResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	input.MatchID = matchID

	payload, err := h.bracketService.RecordResult(r.Context(), guildID, input)
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"bracket": payload}, nil)
}

func (h *BracketHandler) GetProjection(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	proj, err := h.bracketService.Projection(r.Context(), guildID)
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"projection": proj}, nil)
}

func (h *BracketHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	png, err := h.bracketService.RenderBracket(r.Context(), guildID)
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.logger.Error("failed to write bracket image response", "guild_id", guildID, "error", err)
	}
}
