package draft

import (
	"github.com/Billy-Davies-2/championship-draft/internal/catalog"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// Normalize repairs a decoded match into the nearest valid document and
// re-derives its phase. Normalize(Normalize(m)) == Normalize(m).
func (e *Engine) Normalize(m *models.Match) {
	if m.Round == "" {
		m.Round = DefaultRound
	}

	e.normalizePlayers(m)

	if m.Map == "" {
		m.MapDecidedAt = nil
		m.DraftStartedAt = nil
	} else if m.DraftStartedAt == nil && pastMapSelected(m.Phase) {
		// Documents written before draftStartedAt existed only carry the phase.
		if m.MapDecidedAt != nil {
			started := *m.MapDecidedAt
			m.DraftStartedAt = &started
		} else {
			m.DraftStartedAt = e.stamp()
		}
	}

	e.normalizeBans(m)
	e.normalizeSelections(m)
	e.reconcile(m)

	m.Phase = e.DerivePhase(m)
}

func pastMapSelected(p models.Phase) bool {
	return p == models.PhaseBanning || p == models.PhasePicking || p == models.PhaseLocked
}

func (e *Engine) normalizePlayers(m *models.Match) {
	seen := make(map[string]bool, len(m.Players))
	players := make([]models.Player, 0, PlayersPerMatch)
	for _, p := range m.Players {
		if p.AccountID == "" || seen[p.AccountID] || len(players) == PlayersPerMatch {
			continue
		}
		seen[p.AccountID] = true
		if p.DisplayName == "" {
			p.DisplayName = p.AccountID
		}
		if !p.Ready {
			p.ReadyAt = nil
		}
		players = append(players, p)
	}
	m.Players = players
}

func (e *Engine) normalizeBans(m *models.Match) {
	bans := make(map[string][]string, len(m.Players))
	for _, p := range m.Players {
		bans[p.AccountID] = e.cleanIDs(m.Bans[p.AccountID], e.policy.BanCap, func(id string) bool {
			return e.catalog.Known(id)
		})
	}
	m.Bans = bans
}

func (e *Engine) normalizeSelections(m *models.Match) {
	selections := make(map[string]models.Selection, len(m.Players))
	for _, p := range m.Players {
		sel := m.Selections[p.AccountID]
		if sel.Faction != "" && !e.catalog.HasFaction(sel.Faction) {
			sel.Faction = ""
		}
		if sel.Faction == "" {
			sel.LoadoutPicks = []string{}
		} else {
			faction := sel.Faction
			sel.LoadoutPicks = e.cleanIDs(sel.LoadoutPicks, e.policy.PickCount, func(id string) bool {
				f, ok := catalog.FactionOf(id)
				return ok && f == faction && e.catalog.Known(id)
			})
		}
		selections[p.AccountID] = sel
	}
	m.Selections = selections
}

// reconcile enforces the cross-player rule: picks banned by the opponent are
// stripped, and any selection that is no longer complete and legal loses its
// confirmation.
func (e *Engine) reconcile(m *models.Match) {
	for _, p := range m.Players {
		sel := m.Selections[p.AccountID]
		if opponent, ok := m.Opponent(p.AccountID); ok {
			banned := toSet(m.Bans[opponent])
			kept := make([]string, 0, len(sel.LoadoutPicks))
			for _, id := range sel.LoadoutPicks {
				if !banned[id] {
					kept = append(kept, id)
				}
			}
			sel.LoadoutPicks = kept
		}
		if sel.LoadoutPicks == nil {
			sel.LoadoutPicks = []string{}
		}
		if sel.Confirmed && len(sel.LoadoutPicks) != e.policy.PickCount {
			sel.Confirmed = false
		}
		if !sel.Confirmed {
			sel.ConfirmedAt = nil
		}
		m.Selections[p.AccountID] = sel
	}
}

// cleanIDs drops empty, duplicate and rejected ids and caps the result
func (e *Engine) cleanIDs(ids []string, limit int, keep func(string) bool) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if len(out) == limit {
			break
		}
		if id == "" || seen[id] || !keep(id) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
