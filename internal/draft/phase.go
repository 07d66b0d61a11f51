package draft

import (
	"github.com/Billy-Davies-2/championship-draft/internal/catalog"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// DerivePhase computes the phase from the match contents alone. The stored
// phase is never consulted. Bans come before picks.
func (e *Engine) DerivePhase(m *models.Match) models.Phase {
	readyCount := 0
	for _, p := range m.Players {
		if p.Ready {
			readyCount++
		}
	}

	switch {
	case readyCount == 0:
		return models.PhaseWaiting
	case readyCount < PlayersPerMatch || len(m.Players) < PlayersPerMatch || m.Map == "":
		return models.PhaseReadyCheck
	case m.DraftStartedAt == nil:
		return models.PhaseMapSelected
	}

	for _, p := range m.Players {
		if !e.bansComplete(m.Bans[p.AccountID]) {
			return models.PhaseBanning
		}
	}
	for _, p := range m.Players {
		if !e.selectionLocked(m, p.AccountID) {
			return models.PhasePicking
		}
	}
	return models.PhaseLocked
}

// bansComplete reports whether a player's ban set satisfies the cap policy
func (e *Engine) bansComplete(bans []string) bool {
	if len(bans) >= e.policy.BanCap {
		return true
	}
	return e.policy.AllowPartialBans && len(bans) > 0
}

func (e *Engine) selectionLocked(m *models.Match, accountID string) bool {
	sel, ok := m.Selections[accountID]
	if !ok || !sel.Confirmed {
		return false
	}
	return e.checkPicks(m, accountID, sel.Faction, sel.LoadoutPicks) == nil
}

// Settle applies the server-driven transitions after a mutation. The map is
// drawn once, when both players are ready; with a zero display delay the
// draft opens in the same step. The phase is always re-derived.
func (e *Engine) Settle(m *models.Match, mapPool []string) {
	if len(m.Players) == PlayersPerMatch && allReady(m) && m.Map == "" {
		pool := mapPool
		if len(pool) == 0 {
			pool = catalog.DefaultMapPool
		}
		m.Map = pool[e.rand.Intn(len(pool))]
		m.MapDecidedAt = e.stamp()
	}

	if m.Map != "" && m.DraftStartedAt == nil && allReady(m) && e.policy.MapDisplayDelay <= 0 {
		m.DraftStartedAt = e.stamp()
	}

	e.reconcile(m)
	m.Phase = e.DerivePhase(m)
}

// OpenDraft is the deferred transition out of map-selected. Firing it after
// the match has moved on is a no-op.
func (e *Engine) OpenDraft() Mutator {
	return func(m *models.Match) error {
		if e.DerivePhase(m) != models.PhaseMapSelected {
			return nil
		}
		m.DraftStartedAt = e.stamp()
		return nil
	}
}

func allReady(m *models.Match) bool {
	if len(m.Players) == 0 {
		return false
	}
	for _, p := range m.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}
