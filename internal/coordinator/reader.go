package coordinator

import (
	"context"
	"errors"

	"github.com/Billy-Davies-2/championship-draft/internal/dal"
	"github.com/Billy-Davies-2/championship-draft/internal/draft"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// Reader serves normalized read models. It never writes; stored documents
// that need repair are repaired on the next mutation.
type Reader struct {
	repo   *dal.Repository
	engine *draft.Engine
}

func NewReader(repo *dal.Repository, engine *draft.Engine) *Reader {
	return &Reader{repo: repo, engine: engine}
}

// Match loads and normalizes one match
func (r *Reader) Match(ctx context.Context, id string) (*models.Match, error) {
	raw, err := r.repo.LoadMatch(ctx, id)
	if errors.Is(err, dal.ErrNotFound) {
		return nil, &draft.NotFoundError{Kind: "match", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return r.decode(id, raw)
}

func (r *Reader) decode(id string, raw []byte) (*models.Match, error) {
	m, err := draft.DecodeMatch(raw)
	if err != nil {
		return nil, err
	}
	if m.ID == "" {
		m.ID = id
	}
	r.engine.Normalize(m)
	return m, nil
}

// Tournament returns one tournament with its matches inlined
func (r *Reader) Tournament(ctx context.Context, id string) (models.TournamentView, error) {
	t, err := r.repo.Tournament(ctx, id)
	if errors.Is(err, dal.ErrNotFound) {
		return models.TournamentView{}, &draft.NotFoundError{Kind: "tournament", ID: id}
	}
	if err != nil {
		return models.TournamentView{}, err
	}
	return r.view(ctx, t)
}

// Tournaments returns every tournament with its matches inlined
func (r *Reader) Tournaments(ctx context.Context) ([]models.TournamentView, error) {
	tournaments, err := r.repo.Tournaments(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]models.TournamentView, 0, len(tournaments))
	for _, t := range tournaments {
		view, err := r.view(ctx, t)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// view inlines the tournament's matches. A match whose document is gone
// is left out rather than failing the whole collection.
func (r *Reader) view(ctx context.Context, t *models.Tournament) (models.TournamentView, error) {
	view := models.TournamentView{Tournament: *t, Matches: make([]*models.Match, 0, len(t.MatchIDs))}
	for _, id := range t.MatchIDs {
		m, err := r.Match(ctx, id)
		if errors.Is(err, draft.ErrNotFound) {
			continue
		}
		if err != nil {
			return models.TournamentView{}, err
		}
		view.Matches = append(view.Matches, m)
	}
	return view, nil
}

// Users returns the public user directory
func (r *Reader) Users(ctx context.Context) ([]models.User, error) {
	return r.repo.Users(ctx)
}

// PhaseCounts tallies matches by phase, every phase present
func (r *Reader) PhaseCounts(ctx context.Context) (map[models.Phase]int, error) {
	views, err := r.Tournaments(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[models.Phase]int, len(models.Phases))
	for _, p := range models.Phases {
		counts[p] = 0
	}
	for _, v := range views {
		for _, m := range v.Matches {
			counts[m.Phase]++
		}
	}
	return counts, nil
}
