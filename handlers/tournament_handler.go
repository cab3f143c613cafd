package handlers

import (
	"log/slog"
	"net/http"

	"github.com/strayworks/bracketbot/models"
	"github.com/strayworks/bracketbot/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	logger            *slog.Logger
}

func NewTournamentHandler(tournamentService services.TournamentService, logger *slog.Logger) *TournamentHandler {
	return &TournamentHandler{tournamentService: tournamentService, logger: logger}
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	input.GuildID = guildID

	tournament, err := h.tournamentService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil)
}

func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.tournamentService.GetByGuild(r.Context(), guildID)
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

func (h *TournamentHandler) SetQueueStatus(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input struct {
		QueueStatus string `json:"queue_status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.tournamentService.SetQueueStatus(r.Context(), guildID, models.QueueStatus(input.QueueStatus))
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

func (h *TournamentHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input services.TournamentSettingsInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.tournamentService.UpdateSettings(r.Context(), guildID, input)
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

func (h *TournamentHandler) ResetBracket(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.tournamentService.ResetBracket(r.Context(), guildID); err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"message": "bracket reset"}, nil)
}

func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.tournamentService.Delete(r.Context(), guildID); err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"message": "tournament deleted"}, nil)
}
