package models

import (
	"encoding/json"
	"time"
)

// Phase is the derived lifecycle stage of a match draft
type Phase string

const (
	PhaseWaiting     Phase = "waiting"
	PhaseReadyCheck  Phase = "ready-check"
	PhaseMapSelected Phase = "map-selected"
	PhaseBanning     Phase = "banning"
	PhasePicking     Phase = "picking"
	PhaseLocked      Phase = "locked"
)

// Phases lists every phase in lifecycle order
var Phases = []Phase{
	PhaseWaiting,
	PhaseReadyCheck,
	PhaseMapSelected,
	PhaseBanning,
	PhasePicking,
	PhaseLocked,
}

// Valid reports whether p is one of the defined phases
func (p Phase) Valid() bool {
	for _, known := range Phases {
		if p == known {
			return true
		}
	}
	return false
}

// TournamentStatus is the administrative state of a tournament
type TournamentStatus string

const (
	StatusScheduled TournamentStatus = "scheduled"
	StatusLive      TournamentStatus = "live"
	StatusCompleted TournamentStatus = "completed"
)

// Valid reports whether s is a known status
func (s TournamentStatus) Valid() bool {
	return s == StatusScheduled || s == StatusLive || s == StatusCompleted
}

// Player is a participant of a match
type Player struct {
	AccountID   string     `json:"accountId"`
	DisplayName string     `json:"displayName"`
	Ready       bool       `json:"ready"`
	ReadyAt     *time.Time `json:"readyAt"`
}

// Selection is one player's faction and loadout picks. An empty Faction
// means no faction has been chosen yet.
type Selection struct {
	Faction      string     `json:"faction"`
	LoadoutPicks []string   `json:"loadoutPicks"`
	Confirmed    bool       `json:"confirmed"`
	ConfirmedAt  *time.Time `json:"confirmedAt"`
}

// MarshalJSON writes an unset faction as null
func (s Selection) MarshalJSON() ([]byte, error) {
	type alias Selection
	out := struct {
		alias
		Faction *string `json:"faction"`
	}{alias: alias(s)}
	if s.Faction != "" {
		out.Faction = &s.Faction
	}
	if out.LoadoutPicks == nil {
		out.LoadoutPicks = []string{}
	}
	return json.Marshal(out)
}

// Match is the shared draft document for two players
type Match struct {
	ID             string               `json:"id"`
	TournamentID   string               `json:"tournamentId"`
	Round          string               `json:"round"`
	ScheduledAt    *time.Time           `json:"scheduledAt"`
	Players        []Player             `json:"players"`
	Map            string               `json:"map"`
	MapDecidedAt   *time.Time           `json:"mapDecidedAt"`
	DraftStartedAt *time.Time           `json:"draftStartedAt"`
	Phase          Phase                `json:"phase"`
	Selections     map[string]Selection `json:"selections"`
	Bans           map[string][]string  `json:"bans"`
}

// MarshalJSON writes an undrawn map as null
func (m Match) MarshalJSON() ([]byte, error) {
	type alias Match
	out := struct {
		alias
		Map *string `json:"map"`
	}{alias: alias(m)}
	if m.Map != "" {
		out.Map = &m.Map
	}
	return json.Marshal(out)
}

// Player returns the participant with the given account id
func (m *Match) Player(accountID string) (Player, bool) {
	for _, p := range m.Players {
		if p.AccountID == accountID {
			return p, true
		}
	}
	return Player{}, false
}

// Opponent returns the other participant's account id
func (m *Match) Opponent(accountID string) (string, bool) {
	for _, p := range m.Players {
		if p.AccountID != accountID {
			return p.AccountID, true
		}
	}
	return "", false
}

// Clone returns a deep copy
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	c.ScheduledAt = cloneTime(m.ScheduledAt)
	c.MapDecidedAt = cloneTime(m.MapDecidedAt)
	c.DraftStartedAt = cloneTime(m.DraftStartedAt)

	if m.Players != nil {
		c.Players = make([]Player, len(m.Players))
		for i, p := range m.Players {
			p.ReadyAt = cloneTime(p.ReadyAt)
			c.Players[i] = p
		}
	}
	if m.Selections != nil {
		c.Selections = make(map[string]Selection, len(m.Selections))
		for k, s := range m.Selections {
			s.LoadoutPicks = cloneStrings(s.LoadoutPicks)
			s.ConfirmedAt = cloneTime(s.ConfirmedAt)
			c.Selections[k] = s
		}
	}
	if m.Bans != nil {
		c.Bans = make(map[string][]string, len(m.Bans))
		for k, b := range m.Bans {
			c.Bans[k] = cloneStrings(b)
		}
	}
	return &c
}

// StreamLinks are broadcast channels for a tournament
type StreamLinks struct {
	Withgo string `json:"withgo"`
	Soop   string `json:"soop"`
}

// TournamentResult is the recorded outcome
type TournamentResult struct {
	Winner     string    `json:"winner"`
	Loser      string    `json:"loser"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Tournament is the stored tournament record. Matches are stored as
// separate documents and referenced by id.
type Tournament struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Status      TournamentStatus  `json:"status"`
	StartTime   *time.Time        `json:"startTime"`
	StreamLinks StreamLinks       `json:"streamLinks"`
	MapPool     []string          `json:"mapPool"`
	MatchIDs    []string          `json:"matchIds"`
	Result      *TournamentResult `json:"result"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// TournamentView is a tournament with its matches inlined, as observers see it
type TournamentView struct {
	Tournament
	Matches []*Match `json:"matches"`
}

// Role is the authorization role of an account
type Role string

const (
	RoleAdmin  Role = "admin"
	RolePlayer Role = "player"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RolePlayer || r == RoleViewer
}

// User is a public account profile. Credentials are never part of it.
type User struct {
	AccountID   string    `json:"accountId"`
	DisplayName string    `json:"displayName"`
	Role        Role      `json:"role"`
	Rank        string    `json:"rank,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DraftEventKind classifies a recorded draft event
type DraftEventKind string

const (
	EventReady     DraftEventKind = "ready"
	EventMapDrawn  DraftEventKind = "map_drawn"
	EventDraftOpen DraftEventKind = "draft_open"
	EventBan       DraftEventKind = "ban"
	EventFaction   DraftEventKind = "faction"
	EventPicks     DraftEventKind = "picks"
	EventConfirm   DraftEventKind = "confirm"
	EventUnconfirm DraftEventKind = "unconfirm"
	EventLocked    DraftEventKind = "locked"
)

// DraftEvent is an analytics record of an accepted change to a match
type DraftEvent struct {
	MatchID      string         `json:"matchId"`
	TournamentID string         `json:"tournamentId"`
	AccountID    string         `json:"accountId,omitempty"`
	Kind         DraftEventKind `json:"kind"`
	Value        string         `json:"value,omitempty"`
	Phase        Phase          `json:"phase"`
	At           time.Time      `json:"at"`
}

// BanCount is how often a loadout has been banned
type BanCount struct {
	LoadoutID string `json:"loadoutId"`
	Count     uint64 `json:"count"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
