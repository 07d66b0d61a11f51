// Package draft implements the ban/pick rules and the phase state machine
// for a single two-player match. Everything here operates on an in-memory
// snapshot; persistence and serialization live in the coordinator.
package draft

import (
	"fmt"
	"time"

	"github.com/Billy-Davies-2/championship-draft/internal/catalog"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// PlayersPerMatch is the number of participants a draft needs
const PlayersPerMatch = 2

// DefaultRound labels matches created without a round name
const DefaultRound = "경기"

// Policy holds the tunable draft constants
type Policy struct {
	BanCap           int
	PickCount        int
	AllowPartialBans bool
	MapDisplayDelay  time.Duration
}

// DefaultPolicy is one ban per player, three picks, and a five second map reveal
func DefaultPolicy() Policy {
	return Policy{
		BanCap:          1,
		PickCount:       3,
		MapDisplayDelay: 5 * time.Second,
	}
}

// Check reports whether a match under this policy can reach locked with the
// given catalog. Bans are limited to one per faction, so the cap cannot
// exceed the faction count. Picks come from one faction; when every faction
// can take a ban the smallest faction must still hold PickCount loadouts
// after losing one.
func (p Policy) Check(cat *catalog.Catalog) error {
	if p.BanCap < 1 {
		return fmt.Errorf("ban cap must be at least 1, got %d", p.BanCap)
	}
	if p.PickCount < 1 {
		return fmt.Errorf("pick count must be at least 1, got %d", p.PickCount)
	}

	factions := len(cat.Factions())
	if p.BanCap > factions {
		return fmt.Errorf("ban cap %d exceeds the %d factions (one ban per faction)", p.BanCap, factions)
	}

	available := cat.SmallestFaction()
	if p.BanCap >= factions {
		available--
	}
	if p.PickCount > available {
		return fmt.Errorf("pick count %d cannot be met: the smallest faction leaves %d battlegroups after bans", p.PickCount, available)
	}
	return nil
}

// Random is the source used for the map draw
type Random interface {
	Intn(n int) int
}

// Mutator changes a match snapshot in place or returns a rejection.
// It must not touch anything but the snapshot it is given.
type Mutator func(m *models.Match) error

// Engine applies the draft rules for one catalog and policy
type Engine struct {
	catalog *catalog.Catalog
	policy  Policy
	rand    Random
	now     func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithRandom replaces the map draw source
func WithRandom(r Random) Option {
	return func(e *Engine) { e.rand = r }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine. Non-positive policy counts fall back to the defaults.
func NewEngine(cat *catalog.Catalog, policy Policy, opts ...Option) *Engine {
	def := DefaultPolicy()
	if policy.BanCap < 1 {
		policy.BanCap = def.BanCap
	}
	if policy.PickCount < 1 {
		policy.PickCount = def.PickCount
	}
	if policy.MapDisplayDelay < 0 {
		policy.MapDisplayDelay = 0
	}

	e := &Engine{
		catalog: cat,
		policy:  policy,
		rand:    CryptoRand{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the active policy
func (e *Engine) Policy() Policy {
	return e.policy
}

// Catalog returns the battlegroup catalog
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

func (e *Engine) stamp() *time.Time {
	t := e.now().UTC()
	return &t
}
