// Package catalog holds the static faction and battlegroup reference data.
// A Catalog is immutable after construction and safe for concurrent reads.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Separator joins a faction id and a battlegroup name into a loadout id
const Separator = "::"

var (
	ErrUnknownLoadout = errors.New("unknown loadout")
	ErrUnknownFaction = errors.New("unknown faction")
)

// Faction is a playable side with a fixed, ordered set of loadouts
type Faction struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	LoadoutIDs []string `json:"loadoutIds"`
}

// Loadout is a single selectable battlegroup
type Loadout struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FactionID   string `json:"faction"`
	FactionName string `json:"factionName"`
	Label       string `json:"label"`
	Image       string `json:"image,omitempty"`
}

// FactionDef is the input shape used to build a Catalog
type FactionDef struct {
	ID       string
	Name     string
	Loadouts []string
}

// Catalog is a read-only lookup table of factions and loadouts
type Catalog struct {
	factions []Faction
	byID     map[string]int
	loadouts map[string]Loadout
}

// LoadoutID builds the composite key for a battlegroup
func LoadoutID(factionID, name string) string {
	return factionID + Separator + name
}

// New builds a catalog. images maps battlegroup names to image paths; names
// without an entry get fallbackImage.
func New(defs []FactionDef, images map[string]string, fallbackImage string) (*Catalog, error) {
	c := &Catalog{
		byID:     make(map[string]int, len(defs)),
		loadouts: make(map[string]Loadout),
	}

	for _, def := range defs {
		if def.ID == "" || strings.Contains(def.ID, Separator) {
			return nil, fmt.Errorf("invalid faction id %q", def.ID)
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, fmt.Errorf("duplicate faction id %q", def.ID)
		}

		faction := Faction{ID: def.ID, Name: def.Name}
		for _, name := range def.Loadouts {
			id := LoadoutID(def.ID, name)
			if _, dup := c.loadouts[id]; dup {
				return nil, fmt.Errorf("duplicate loadout %q", id)
			}
			image := images[name]
			if image == "" {
				image = fallbackImage
			}
			c.loadouts[id] = Loadout{
				ID:          id,
				Name:        name,
				FactionID:   def.ID,
				FactionName: def.Name,
				Label:       def.Name + " · " + name,
				Image:       image,
			}
			faction.LoadoutIDs = append(faction.LoadoutIDs, id)
		}

		c.byID[def.ID] = len(c.factions)
		c.factions = append(c.factions, faction)
	}

	return c, nil
}

// Factions returns all factions in catalog order
func (c *Catalog) Factions() []Faction {
	out := make([]Faction, len(c.factions))
	for i, f := range c.factions {
		f.LoadoutIDs = append([]string(nil), f.LoadoutIDs...)
		out[i] = f
	}
	return out
}

// SmallestFaction returns the loadout count of the smallest faction, or 0
// for an empty catalog
func (c *Catalog) SmallestFaction() int {
	smallest := 0
	for i, f := range c.factions {
		if i == 0 || len(f.LoadoutIDs) < smallest {
			smallest = len(f.LoadoutIDs)
		}
	}
	return smallest
}

// HasFaction reports whether factionID is known
func (c *Catalog) HasFaction(factionID string) bool {
	_, ok := c.byID[factionID]
	return ok
}

// LoadoutsOf returns the loadouts of a faction in catalog order
func (c *Catalog) LoadoutsOf(factionID string) ([]Loadout, error) {
	idx, ok := c.byID[factionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFaction, factionID)
	}
	ids := c.factions[idx].LoadoutIDs
	out := make([]Loadout, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.loadouts[id])
	}
	return out, nil
}

// Lookup resolves a loadout id
func (c *Catalog) Lookup(loadoutID string) (Loadout, error) {
	l, ok := c.loadouts[loadoutID]
	if !ok {
		return Loadout{}, fmt.Errorf("%w: %s", ErrUnknownLoadout, loadoutID)
	}
	return l, nil
}

// Known reports whether loadoutID resolves
func (c *Catalog) Known(loadoutID string) bool {
	_, ok := c.loadouts[loadoutID]
	return ok
}

// FactionOf splits the composite key. It does not check that the loadout
// exists, so it can classify ids found in stale documents.
func FactionOf(loadoutID string) (string, bool) {
	factionID, name, ok := strings.Cut(loadoutID, Separator)
	if !ok || factionID == "" || name == "" {
		return "", false
	}
	return factionID, true
}
