package draft

import (
	"strings"
	"time"

	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// Diff lists the draft events that turn before into after. before may be
// nil for a freshly created match.
func Diff(before, after *models.Match, at time.Time) []models.DraftEvent {
	if after == nil {
		return nil
	}
	if before == nil {
		before = &models.Match{}
	}

	var events []models.DraftEvent
	add := func(kind models.DraftEventKind, accountID, value string) {
		events = append(events, models.DraftEvent{
			MatchID:      after.ID,
			TournamentID: after.TournamentID,
			AccountID:    accountID,
			Kind:         kind,
			Value:        value,
			Phase:        after.Phase,
			At:           at,
		})
	}

	for _, p := range after.Players {
		prev, _ := before.Player(p.AccountID)
		if p.Ready && !prev.Ready {
			add(models.EventReady, p.AccountID, "")
		}
	}

	if after.Map != "" && before.Map == "" {
		add(models.EventMapDrawn, "", after.Map)
	}
	if after.DraftStartedAt != nil && before.DraftStartedAt == nil {
		add(models.EventDraftOpen, "", "")
	}

	for _, p := range after.Players {
		id := p.AccountID
		known := toSet(before.Bans[id])
		for _, ban := range after.Bans[id] {
			if !known[ban] {
				add(models.EventBan, id, ban)
			}
		}

		prev, next := before.Selections[id], after.Selections[id]
		if next.Faction != "" && next.Faction != prev.Faction {
			add(models.EventFaction, id, next.Faction)
		}
		if len(next.LoadoutPicks) > 0 && !sameOrder(prev.LoadoutPicks, next.LoadoutPicks) {
			add(models.EventPicks, id, strings.Join(next.LoadoutPicks, ","))
		}
		switch {
		case next.Confirmed && !prev.Confirmed:
			add(models.EventConfirm, id, "")
		case !next.Confirmed && prev.Confirmed:
			add(models.EventUnconfirm, id, "")
		}
	}

	if after.Phase == models.PhaseLocked && before.Phase != models.PhaseLocked {
		add(models.EventLocked, "", "")
	}
	return events
}
