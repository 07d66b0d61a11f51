package draft

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// DecodeMatch reads a stored match document. It never trusts the stored
// shape: wrong types and missing fields decode to zero values, and the
// legacy keys "scheduled" and "battlegroups" are accepted. Callers must
// run Normalize on the result.
func DecodeMatch(raw []byte) (*models.Match, error) {
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode match document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("decode match document: not an object")
	}

	m := &models.Match{
		ID:             asString(doc["id"]),
		TournamentID:   asString(doc["tournamentId"]),
		Round:          asString(doc["round"]),
		ScheduledAt:    asTime(firstOf(doc, "scheduledAt", "scheduled")),
		Map:            asString(doc["map"]),
		MapDecidedAt:   asTime(doc["mapDecidedAt"]),
		DraftStartedAt: asTime(doc["draftStartedAt"]),
		Phase:          models.Phase(asString(doc["phase"])),
		Selections:     map[string]models.Selection{},
		Bans:           map[string][]string{},
	}

	if players, ok := doc["players"].([]any); ok {
		for _, entry := range players {
			if p, ok := decodePlayer(entry); ok {
				m.Players = append(m.Players, p)
			}
		}
	}

	if selections, ok := doc["selections"].(map[string]any); ok {
		for accountID, entry := range selections {
			obj, _ := entry.(map[string]any)
			m.Selections[accountID] = models.Selection{
				Faction:      asString(obj["faction"]),
				LoadoutPicks: asStrings(firstOf(obj, "loadoutPicks", "battlegroups")),
				Confirmed:    asBool(obj["confirmed"]),
				ConfirmedAt:  asTime(obj["confirmedAt"]),
			}
		}
	}

	if bans, ok := doc["bans"].(map[string]any); ok {
		for accountID, entry := range bans {
			m.Bans[accountID] = asStrings(entry)
		}
	}

	return m, nil
}

func decodePlayer(raw any) (models.Player, bool) {
	switch v := raw.(type) {
	case string:
		return models.Player{AccountID: v}, v != ""
	case map[string]any:
		p := models.Player{
			AccountID:   asString(v["accountId"]),
			DisplayName: asString(v["displayName"]),
			Ready:       asBool(v["ready"]),
			ReadyAt:     asTime(v["readyAt"]),
		}
		return p, p.AccountID != ""
	}
	return models.Player{}, false
}

func firstOf(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	}
	return ""
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(b)
		return parsed
	}
	return false
}

func asStrings(v any) []string {
	switch list := v.(type) {
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if list != "" {
			return []string{list}
		}
	}
	return nil
}

// asTime accepts RFC 3339 strings and unix milliseconds
func asTime(v any) *time.Time {
	switch t := v.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil
		}
		parsed = parsed.UTC()
		return &parsed
	case json.Number:
		ms, err := t.Int64()
		if err != nil {
			return nil
		}
		parsed := time.UnixMilli(ms).UTC()
		return &parsed
	}
	return nil
}
