package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/strayworks/bracketbot/services"
)

type TeamHandler struct {
	teamService services.TeamService
	logger      *slog.Logger
}

func NewTeamHandler(teamService services.TeamService, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{teamService: teamService, logger: logger}
}

func (h *TeamHandler) Register(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input services.RegisterTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	input.GuildID = guildID

	team, err := h.teamService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil)
}

func (h *TeamHandler) SetReady(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	teamName := chi.URLParam(r, "teamName")

	var input struct {
		Ready bool `json:"ready"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	team, err := h.teamService.SetReady(r.Context(), guildID, teamName, input.Ready)
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil)
}

func (h *TeamHandler) Disband(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	teamName := chi.URLParam(r, "teamName")

	if err := h.teamService.Disband(r.Context(), guildID, teamName); err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"message": "team disbanded"}, nil)
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	teams, err := h.teamService.List(r.Context(), guildID)
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil)
}
