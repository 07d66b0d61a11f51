package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Billy-Davies-2/championship-draft/internal/bracket"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// ListTournaments returns every tournament with its matches
func (h *API) ListTournaments(w http.ResponseWriter, r *http.Request) {
	views, err := h.reader.Tournaments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// GetTournament returns one tournament with its matches
func (h *API) GetTournament(w http.ResponseWriter, r *http.Request) {
	view, err := h.reader.Tournament(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListUsers returns the public user directory
func (h *API) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.reader.Users(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Me returns the caller's identity
func (h *API) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, identity(r))
}

// CreateTournament registers a tournament and its first match
func (h *API) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var req bracket.CreateTournamentRequest
	if !decode(w, r, &req) {
		return
	}

	view, err := h.bracket.CreateTournament(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

type statusRequest struct {
	Status models.TournamentStatus `json:"status"`
}

// SetTournamentStatus changes a tournament's status
func (h *API) SetTournamentStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}

	t, err := h.bracket.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type resultRequest struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
}

// RecordResult stores the final result of a tournament
func (h *API) RecordResult(w http.ResponseWriter, r *http.Request) {
	var req resultRequest
	if !decode(w, r, &req) {
		return
	}

	t, err := h.bracket.RecordResult(r.Context(), chi.URLParam(r, "id"), req.Winner, req.Loser)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// RegisterUser adds or updates a directory entry
func (h *API) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if !decode(w, r, &user) {
		return
	}

	saved, err := h.bracket.RegisterUser(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
