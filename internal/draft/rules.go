package draft

import (
	"github.com/Billy-Davies-2/championship-draft/internal/catalog"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// Each Validate* function returns (noop, err). noop means the request is an
// exact repeat of the current state and should succeed without a write.

// ValidateReady checks a ready-up request
func (e *Engine) ValidateReady(m *models.Match, accountID string) (bool, error) {
	p, ok := m.Player(accountID)
	if !ok {
		return false, &ForbiddenError{MatchID: m.ID, AccountID: accountID}
	}
	return p.Ready, nil
}

// ValidateBans checks a ban submission
func (e *Engine) ValidateBans(m *models.Match, accountID string, ids []string) (bool, error) {
	if err := e.guard(m, accountID); err != nil {
		return false, err
	}

	current := m.Bans[accountID]
	if len(current) > 0 && sameSet(current, ids) {
		return true, nil
	}
	if phase := e.DerivePhase(m); phase != models.PhaseBanning {
		return false, reject(ReasonWrongPhase, "bans can only be submitted during banning, match is %s", phase)
	}

	if len(ids) == 0 {
		return false, reject(ReasonEmptyBans, "select at least one battlegroup to ban")
	}
	if len(ids) > e.policy.BanCap {
		return false, reject(ReasonTooManyBans, "at most %d ban(s) allowed, got %d", e.policy.BanCap, len(ids))
	}

	seen := make(map[string]bool, len(ids))
	factions := make(map[string]string, len(ids))
	for _, id := range ids {
		if seen[id] {
			return false, reject(ReasonDuplicateLoadout, "%s is listed more than once", e.label(id))
		}
		seen[id] = true

		if !e.catalog.Known(id) {
			return false, reject(ReasonUnknownLoadout, "%s is not a known battlegroup", id)
		}
		faction, _ := catalog.FactionOf(id)
		if other, dup := factions[faction]; dup {
			return false, reject(ReasonDuplicateFactionBan, "only one ban per faction: %s and %s are both %s", e.label(other), e.label(id), faction)
		}
		factions[faction] = id
	}

	if e.bansComplete(current) {
		return false, reject(ReasonBansSubmitted, "bans were already submitted")
	}
	return false, nil
}

// IsPartialBan reports whether a valid submission is short of the cap
func (e *Engine) IsPartialBan(ids []string) bool {
	return len(ids) > 0 && len(ids) < e.policy.BanCap
}

// ValidateFactionChange checks a faction choice
func (e *Engine) ValidateFactionChange(m *models.Match, accountID, factionID string) (bool, error) {
	if err := e.guard(m, accountID); err != nil {
		return false, err
	}
	if err := e.selectionPhase(m); err != nil {
		return false, err
	}
	if !e.catalog.HasFaction(factionID) {
		return false, reject(ReasonUnknownFaction, "%q is not a known faction", factionID)
	}

	sel := m.Selections[accountID]
	if sel.Faction == factionID {
		return true, nil
	}
	if sel.Confirmed {
		return false, reject(ReasonSelectionConfirmed, "selection is already confirmed")
	}
	return false, nil
}

// ValidatePicks checks a pick list
func (e *Engine) ValidatePicks(m *models.Match, accountID string, ids []string) (bool, error) {
	if err := e.guard(m, accountID); err != nil {
		return false, err
	}
	if err := e.selectionPhase(m); err != nil {
		return false, err
	}

	sel := m.Selections[accountID]
	same := sameOrder(sel.LoadoutPicks, ids)
	if sel.Confirmed {
		if same {
			return true, nil
		}
		return false, reject(ReasonSelectionConfirmed, "selection is already confirmed")
	}
	if err := e.checkPicks(m, accountID, sel.Faction, ids); err != nil {
		return false, err
	}
	return same, nil
}

// ValidateConfirm checks that the current selection can be confirmed
func (e *Engine) ValidateConfirm(m *models.Match, accountID string) (bool, error) {
	if err := e.guard(m, accountID); err != nil {
		return false, err
	}
	if err := e.selectionPhase(m); err != nil {
		return false, err
	}

	sel := m.Selections[accountID]
	if sel.Confirmed {
		return true, nil
	}
	if sel.Faction != "" && len(sel.LoadoutPicks) != e.policy.PickCount {
		return false, reject(ReasonSelectionIncomplete, "pick %d battlegroups before confirming, have %d", e.policy.PickCount, len(sel.LoadoutPicks))
	}
	if err := e.checkPicks(m, accountID, sel.Faction, sel.LoadoutPicks); err != nil {
		return false, err
	}
	return false, nil
}

// checkPicks applies the legality rules in a fixed order so the reported
// reason is deterministic.
func (e *Engine) checkPicks(m *models.Match, accountID, faction string, ids []string) error {
	if faction == "" {
		return reject(ReasonFactionNotChosen, "choose a faction first")
	}
	if len(ids) != e.policy.PickCount {
		return reject(ReasonWrongPickCount, "exactly %d battlegroups must be picked, got %d", e.policy.PickCount, len(ids))
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return reject(ReasonDuplicateLoadout, "%s is picked more than once", e.label(id))
		}
		seen[id] = true
	}

	for _, id := range ids {
		if !e.catalog.Known(id) {
			return reject(ReasonUnknownLoadout, "%s is not a known battlegroup", id)
		}
	}
	for _, id := range ids {
		if f, _ := catalog.FactionOf(id); f != faction {
			return reject(ReasonWrongFaction, "%s does not belong to %s", e.label(id), faction)
		}
	}

	if opponent, ok := m.Opponent(accountID); ok {
		banned := toSet(m.Bans[opponent])
		for _, id := range ids {
			if banned[id] {
				return reject(ReasonBannedByOpponent, "%s was banned by the opponent", e.label(id))
			}
		}
	}
	return nil
}

// label names a loadout for rejection messages, falling back to the raw id
func (e *Engine) label(id string) string {
	l, err := e.catalog.Lookup(id)
	if err != nil {
		return id
	}
	return l.Label
}

// guard rejects non-participants and any change to a locked match
func (e *Engine) guard(m *models.Match, accountID string) error {
	if _, ok := m.Player(accountID); !ok {
		return &ForbiddenError{MatchID: m.ID, AccountID: accountID}
	}
	if e.DerivePhase(m) == models.PhaseLocked {
		return reject(ReasonMatchLocked, "the draft for this match is locked")
	}
	return nil
}

// selectionPhase allows faction and pick changes while banning or picking
func (e *Engine) selectionPhase(m *models.Match) error {
	switch phase := e.DerivePhase(m); phase {
	case models.PhaseBanning, models.PhasePicking:
		return nil
	default:
		return reject(ReasonWrongPhase, "selections open once the map is revealed, match is %s", phase)
	}
}

// Ready marks the player ready. Repeats keep the original readyAt.
func (e *Engine) Ready(accountID string) Mutator {
	return func(m *models.Match) error {
		noop, err := e.ValidateReady(m, accountID)
		if err != nil || noop {
			return err
		}
		for i := range m.Players {
			if m.Players[i].AccountID == accountID {
				m.Players[i].Ready = true
				m.Players[i].ReadyAt = e.stamp()
			}
		}
		return nil
	}
}

// SubmitBans stores the player's bans and, in the same step, strips any of
// the opponent's picks the bans now exclude.
func (e *Engine) SubmitBans(accountID string, ids []string) Mutator {
	return func(m *models.Match) error {
		noop, err := e.ValidateBans(m, accountID, ids)
		if err != nil || noop {
			return err
		}
		m.Bans[accountID] = append([]string(nil), ids...)
		e.reconcile(m)
		return nil
	}
}

// ChooseFaction sets the faction and clears any previous picks
func (e *Engine) ChooseFaction(accountID, factionID string) Mutator {
	return func(m *models.Match) error {
		noop, err := e.ValidateFactionChange(m, accountID, factionID)
		if err != nil || noop {
			return err
		}
		m.Selections[accountID] = models.Selection{
			Faction:      factionID,
			LoadoutPicks: []string{},
		}
		return nil
	}
}

// SetPicks replaces the pick list. An edit always clears confirmation.
func (e *Engine) SetPicks(accountID string, ids []string) Mutator {
	return func(m *models.Match) error {
		noop, err := e.ValidatePicks(m, accountID, ids)
		if err != nil || noop {
			return err
		}
		sel := m.Selections[accountID]
		sel.LoadoutPicks = append([]string(nil), ids...)
		sel.Confirmed = false
		sel.ConfirmedAt = nil
		m.Selections[accountID] = sel
		return nil
	}
}

// Confirm locks in the current selection
func (e *Engine) Confirm(accountID string) Mutator {
	return func(m *models.Match) error {
		noop, err := e.ValidateConfirm(m, accountID)
		if err != nil || noop {
			return err
		}
		sel := m.Selections[accountID]
		sel.Confirmed = true
		sel.ConfirmedAt = e.stamp()
		m.Selections[accountID] = sel
		return nil
	}
}

// SubmitPicks sets the picks and confirms them in one step
func (e *Engine) SubmitPicks(accountID string, ids []string) Mutator {
	set, confirm := e.SetPicks(accountID, ids), e.Confirm(accountID)
	return func(m *models.Match) error {
		if err := set(m); err != nil {
			return err
		}
		return confirm(m)
	}
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := toSet(a)
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return len(toSet(b)) == len(set)
}
