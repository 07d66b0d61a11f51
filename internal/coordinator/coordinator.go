package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/Billy-Davies-2/championship-draft/internal/dal"
	"github.com/Billy-Davies-2/championship-draft/internal/draft"
	"github.com/Billy-Davies-2/championship-draft/internal/logger"
	"github.com/Billy-Davies-2/championship-draft/internal/metrics"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// Operation names used for logging and metrics
const (
	OpReady     = "ready"
	OpBans      = "bans"
	OpFaction   = "faction"
	OpPicks     = "picks"
	OpConfirm   = "confirm"
	OpOpenDraft = "open_draft"
)

// Publisher is notified after every persisted match change
type Publisher interface {
	TournamentsChanged()
}

// Recorder receives the draft events of persisted changes
type Recorder interface {
	RecordDraftEvents(ctx context.Context, events []models.DraftEvent) error
}

// Coordinator is the only writer of match documents. Mutations on one
// match run strictly one at a time; different matches run in parallel.
type Coordinator struct {
	repo      *dal.Repository
	engine    *draft.Engine
	reader    *Reader
	publisher Publisher
	recorder  Recorder

	slots     *keyedMutex
	ioTimeout time.Duration
	now       func() time.Time

	timersMu sync.Mutex
	timers   map[string]*displayTimer
	closed   bool

	background sync.WaitGroup
}

type displayTimer struct {
	timer *time.Timer
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithIOTimeout bounds the store round trip of one admitted mutation
func WithIOTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.ioTimeout = d
		}
	}
}

// WithClock overrides the clock used for event stamps and timer resume
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithRecorder sets the analytics sink
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) { c.recorder = r }
}

func New(repo *dal.Repository, engine *draft.Engine, publisher Publisher, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:      repo,
		engine:    engine,
		reader:    NewReader(repo, engine),
		publisher: publisher,
		slots:     newKeyedMutex(),
		ioTimeout: 10 * time.Second,
		now:       time.Now,
		timers:    make(map[string]*displayTimer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reader returns the read side sharing this coordinator's store and engine
func (c *Coordinator) Reader() *Reader {
	return c.reader
}

// Engine returns the rule engine
func (c *Coordinator) Engine() *draft.Engine {
	return c.engine
}

// Mutate applies mut to the current match document and persists the
// result. Waiting for the match slot honours ctx; once admitted the
// mutation runs to completion even if the caller goes away. A mutation
// that changes nothing is neither persisted nor broadcast.
func (c *Coordinator) Mutate(ctx context.Context, matchID, op string, mut draft.Mutator) (*models.Match, error) {
	release, err := c.slots.Acquire(ctx, matchID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	ioCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.ioTimeout)
	defer cancel()

	before, after, err := c.apply(ioCtx, matchID, mut)
	changed := err == nil && before != nil
	if changed {
		c.afterPersist(ioCtx, before, after)
	}
	release()

	metrics.MutationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	metrics.MatchMutations.WithLabelValues(op, outcome(err, changed)).Inc()

	if err != nil {
		if errors.Is(err, draft.ErrConflict) {
			logger.Error("Match mutation failed", "match", matchID, "op", op, "error", err)
		} else {
			logger.Debug("Match mutation rejected", "match", matchID, "op", op, "error", err)
		}
		return nil, err
	}

	if changed {
		logger.Info("Match updated", "match", matchID, "op", op, "phase", after.Phase)
		c.record(before, after)
	}
	return after, nil
}

// apply runs the read-modify-write. before is nil when nothing changed.
func (c *Coordinator) apply(ctx context.Context, matchID string, mut draft.Mutator) (before, after *models.Match, err error) {
	current, err := c.load(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}

	next := current.Clone()
	if err := mut(next); err != nil {
		return nil, nil, err
	}
	c.engine.Settle(next, c.mapPool(ctx, current))

	if reflect.DeepEqual(current, next) {
		return nil, current, nil
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return nil, nil, &draft.ConflictError{MatchID: matchID, Err: err}
	}
	if err := c.repo.SaveMatch(ctx, matchID, raw); err != nil {
		return nil, nil, &draft.ConflictError{MatchID: matchID, Err: err}
	}
	return current, next, nil
}

func (c *Coordinator) load(ctx context.Context, matchID string) (*models.Match, error) {
	raw, err := c.repo.LoadMatch(ctx, matchID)
	if errors.Is(err, dal.ErrNotFound) {
		return nil, &draft.NotFoundError{Kind: "match", ID: matchID}
	}
	if err != nil {
		return nil, &draft.ConflictError{MatchID: matchID, Err: err}
	}
	m, err := c.reader.decode(matchID, raw)
	if err != nil {
		return nil, &draft.ConflictError{MatchID: matchID, Err: err}
	}
	return m, nil
}

// mapPool is only read while a draw is still possible
func (c *Coordinator) mapPool(ctx context.Context, m *models.Match) []string {
	if m.Map != "" || m.TournamentID == "" {
		return nil
	}
	t, err := c.repo.Tournament(ctx, m.TournamentID)
	if err != nil {
		if !errors.Is(err, dal.ErrNotFound) {
			logger.Warn("Failed to load map pool, using default", "tournament", m.TournamentID, "error", err)
		}
		return nil
	}
	return t.MapPool
}

// afterPersist runs while the match slot is still held, so timers and
// notifications follow the order in which changes were persisted
func (c *Coordinator) afterPersist(ctx context.Context, before, after *models.Match) {
	if before.Map == "" && after.Map != "" {
		c.markLive(ctx, after.TournamentID)
	}
	if after.Phase == models.PhaseMapSelected {
		c.schedule(after.ID, c.engine.Policy().MapDisplayDelay)
	} else {
		c.cancel(after.ID)
	}
	if c.publisher != nil {
		c.publisher.TournamentsChanged()
	}
}

// markLive moves a scheduled tournament to live once its first map is drawn
func (c *Coordinator) markLive(ctx context.Context, tournamentID string) {
	if tournamentID == "" {
		return
	}
	_, err := c.repo.UpdateTournament(ctx, tournamentID, func(t *models.Tournament) error {
		if t.Status == models.StatusScheduled {
			t.Status = models.StatusLive
		}
		return nil
	})
	if err != nil && !errors.Is(err, dal.ErrNotFound) {
		logger.Warn("Failed to mark tournament live", "tournament", tournamentID, "error", err)
	}
}

func (c *Coordinator) record(before, after *models.Match) {
	if c.recorder == nil {
		return
	}
	events := draft.Diff(before, after, c.now().UTC())
	if len(events) == 0 {
		return
	}

	c.timersMu.Lock()
	if c.closed {
		c.timersMu.Unlock()
		return
	}
	c.background.Add(1)
	c.timersMu.Unlock()

	go func() {
		defer c.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.ioTimeout)
		defer cancel()
		if err := c.recorder.RecordDraftEvents(ctx, events); err != nil {
			metrics.RecorderFailures.Inc()
			logger.Warn("Failed to record draft events", "match", after.ID, "count", len(events), "error", err)
		}
	}()
}

func outcome(err error, changed bool) string {
	switch {
	case err == nil && changed:
		return metrics.OutcomeApplied
	case err == nil:
		return metrics.OutcomeNoop
	case errors.Is(err, draft.ErrConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, draft.ErrValidation), errors.Is(err, draft.ErrForbidden), errors.Is(err, draft.ErrNotFound):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

// Ready marks the player ready
func (c *Coordinator) Ready(ctx context.Context, matchID, accountID string) (*models.Match, error) {
	return c.Mutate(ctx, matchID, OpReady, c.engine.Ready(accountID))
}

// SubmitBans stores the player's bans
func (c *Coordinator) SubmitBans(ctx context.Context, matchID, accountID string, ids []string) (*models.Match, error) {
	return c.Mutate(ctx, matchID, OpBans, c.engine.SubmitBans(accountID, ids))
}

// ChooseFaction sets the player's faction
func (c *Coordinator) ChooseFaction(ctx context.Context, matchID, accountID, factionID string) (*models.Match, error) {
	return c.Mutate(ctx, matchID, OpFaction, c.engine.ChooseFaction(accountID, factionID))
}

// SetPicks replaces the player's picks without confirming
func (c *Coordinator) SetPicks(ctx context.Context, matchID, accountID string, ids []string) (*models.Match, error) {
	return c.Mutate(ctx, matchID, OpPicks, c.engine.SetPicks(accountID, ids))
}

// SubmitPicks replaces the picks and confirms them in one step
func (c *Coordinator) SubmitPicks(ctx context.Context, matchID, accountID string, ids []string) (*models.Match, error) {
	return c.Mutate(ctx, matchID, OpPicks, c.engine.SubmitPicks(accountID, ids))
}

// Confirm confirms the player's current picks
func (c *Coordinator) Confirm(ctx context.Context, matchID, accountID string) (*models.Match, error) {
	return c.Mutate(ctx, matchID, OpConfirm, c.engine.Confirm(accountID))
}

// Close stops pending display timers and waits for in-flight analytics
// writes. Matches left in map-selected are picked up by Resume on restart.
func (c *Coordinator) Close() {
	c.timersMu.Lock()
	c.closed = true
	for id, t := range c.timers {
		t.timer.Stop()
		delete(c.timers, id)
	}
	metrics.DisplayTimers.Set(0)
	c.timersMu.Unlock()

	c.background.Wait()
}
