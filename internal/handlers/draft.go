package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"

	"github.com/Billy-Davies-2/championship-draft/internal/catalog"
	"github.com/Billy-Davies-2/championship-draft/internal/logger"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// MatchResponse is returned by every draft action
type MatchResponse struct {
	Match   *models.Match `json:"match"`
	Warning string        `json:"warning,omitempty"`
}

// GetMatch returns one normalized match
func (h *API) GetMatch(w http.ResponseWriter, r *http.Request) {
	m, err := h.reader.Match(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Ready marks the caller ready
func (h *API) Ready(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "id")
	m, err := h.coord.Ready(r.Context(), matchID, identity(r).AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{Match: m})
}

type bansRequest struct {
	LoadoutIDs []string `json:"loadoutIds"`
}

// SubmitBans stores the caller's bans. A short submission accepted under
// the partial-ban policy carries a warning the first time only.
func (h *API) SubmitBans(w http.ResponseWriter, r *http.Request) {
	var req bansRequest
	if !decode(w, r, &req) {
		return
	}

	matchID := chi.URLParam(r, "id")
	accountID := identity(r).AccountID
	m, err := h.coord.SubmitBans(r.Context(), matchID, accountID, req.LoadoutIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := MatchResponse{Match: m}
	if h.coord.Engine().IsPartialBan(req.LoadoutIDs) && h.warnOnce(matchID, accountID) {
		banCap := h.coord.Engine().Policy().BanCap
		resp.Warning = fmt.Sprintf("only %d of %d bans submitted", len(req.LoadoutIDs), banCap)
		logger.Info("Partial ban accepted", "match", matchID, "account", accountID, "bans", len(req.LoadoutIDs), "cap", banCap)
	}
	writeJSON(w, http.StatusOK, resp)
}

// warnOnce reports true the first time it sees matchID/accountID within
// the warning TTL
func (h *API) warnOnce(matchID, accountID string) bool {
	return h.warnings.Add(matchID+":"+accountID, true, cache.DefaultExpiration) == nil
}

type factionRequest struct {
	FactionID string `json:"factionId"`
}

// ChooseFaction sets the caller's faction
func (h *API) ChooseFaction(w http.ResponseWriter, r *http.Request) {
	var req factionRequest
	if !decode(w, r, &req) {
		return
	}

	m, err := h.coord.ChooseFaction(r.Context(), chi.URLParam(r, "id"), identity(r).AccountID, req.FactionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{Match: m})
}

type picksRequest struct {
	LoadoutIDs []string `json:"loadoutIds"`
	Confirm    bool     `json:"confirm"`
}

// SubmitPicks replaces the caller's picks, confirming them when asked
func (h *API) SubmitPicks(w http.ResponseWriter, r *http.Request) {
	var req picksRequest
	if !decode(w, r, &req) {
		return
	}

	matchID := chi.URLParam(r, "id")
	accountID := identity(r).AccountID

	var (
		m   *models.Match
		err error
	)
	if req.Confirm {
		m, err = h.coord.SubmitPicks(r.Context(), matchID, accountID, req.LoadoutIDs)
	} else {
		m, err = h.coord.SetPicks(r.Context(), matchID, accountID, req.LoadoutIDs)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{Match: m})
}

// Confirm confirms the caller's current picks
func (h *API) Confirm(w http.ResponseWriter, r *http.Request) {
	m, err := h.coord.Confirm(r.Context(), chi.URLParam(r, "id"), identity(r).AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{Match: m})
}

type factionView struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Loadouts []catalog.Loadout `json:"loadouts"`
}

type catalogResponse struct {
	Factions         []factionView `json:"factions"`
	BanCap           int           `json:"banCap"`
	PickCount        int           `json:"pickCount"`
	AllowPartialBans bool          `json:"allowPartialBans"`
}

// Catalog lists factions with their loadouts and the active draft policy
func (h *API) Catalog(w http.ResponseWriter, r *http.Request) {
	cat := h.coord.Engine().Catalog()
	policy := h.coord.Engine().Policy()

	resp := catalogResponse{
		BanCap:           policy.BanCap,
		PickCount:        policy.PickCount,
		AllowPartialBans: policy.AllowPartialBans,
	}
	for _, f := range cat.Factions() {
		loadouts, err := cat.LoadoutsOf(f.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Factions = append(resp.Factions, factionView{ID: f.ID, Name: f.Name, Loadouts: loadouts})
	}
	writeJSON(w, http.StatusOK, resp)
}
