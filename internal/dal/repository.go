package dal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

const (
	tournamentIndexKey = "tournaments/index"
	usersKey           = "users"
)

// MatchKey is the document key of a match
func MatchKey(id string) string { return "matches/" + id }

// TournamentKey is the document key of a tournament record
func TournamentKey(id string) string { return "tournaments/" + id }

// Repository lays the championship documents out on a DocumentStore.
// Match documents are written only by the draft coordinator; the lock here
// serializes administrative writes to the index, tournaments and users.
type Repository struct {
	store DocumentStore
	mu    sync.Mutex
}

// NewRepository wraps a document store
func NewRepository(store DocumentStore) *Repository {
	return &Repository{store: store}
}

// Store exposes the underlying document store for health checks
func (r *Repository) Store() DocumentStore {
	return r.store
}

// LoadMatch returns the raw stored match document
func (r *Repository) LoadMatch(ctx context.Context, id string) ([]byte, error) {
	return r.store.Load(ctx, MatchKey(id))
}

// SaveMatch overwrites the stored match document
func (r *Repository) SaveMatch(ctx context.Context, id string, raw []byte) error {
	return r.store.Save(ctx, MatchKey(id), raw)
}

// TournamentIDs lists tournaments in creation order. A missing index is empty.
func (r *Repository) TournamentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.loadJSON(ctx, tournamentIndexKey, &ids); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []string{}, nil
		}
		return nil, err
	}
	return ids, nil
}

// Tournament loads one tournament record
func (r *Repository) Tournament(ctx context.Context, id string) (*models.Tournament, error) {
	var t models.Tournament
	if err := r.loadJSON(ctx, TournamentKey(id), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Tournaments loads every indexed tournament. Index entries whose record
// is missing are skipped.
func (r *Repository) Tournaments(ctx context.Context) ([]*models.Tournament, error) {
	ids, err := r.TournamentIDs(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Tournament, 0, len(ids))
	for _, id := range ids {
		t, err := r.Tournament(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// CreateTournament writes the match documents first, then the tournament
// record, then the index, so a reader never sees a tournament whose matches
// are missing.
func (r *Repository) CreateTournament(ctx context.Context, t *models.Tournament, matches map[string][]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range t.MatchIDs {
		raw, ok := matches[id]
		if !ok {
			return fmt.Errorf("match %s has no document", id)
		}
		if err := r.SaveMatch(ctx, id, raw); err != nil {
			return err
		}
	}

	if err := r.saveJSON(ctx, TournamentKey(t.ID), t); err != nil {
		return err
	}

	ids, err := r.TournamentIDs(ctx)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == t.ID {
			return nil
		}
	}
	return r.saveJSON(ctx, tournamentIndexKey, append(ids, t.ID))
}

// UpdateTournament applies fn to the stored record and saves the result.
// If fn returns an error nothing is written.
func (r *Repository) UpdateTournament(ctx context.Context, id string, fn func(*models.Tournament) error) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.Tournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	if err := r.saveJSON(ctx, TournamentKey(id), t); err != nil {
		return nil, err
	}
	return t, nil
}

// Users returns the public user directory sorted by account id
func (r *Repository) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.loadJSON(ctx, usersKey, &users); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []models.User{}, nil
		}
		return nil, err
	}
	return users, nil
}

// User looks up one directory entry
func (r *Repository) User(ctx context.Context, accountID string) (models.User, error) {
	users, err := r.Users(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, u := range users {
		if u.AccountID == accountID {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("%w: user %s", ErrNotFound, accountID)
}

// UpsertUser inserts or replaces a directory entry, keeping CreatedAt of
// an existing entry
func (r *Repository) UpsertUser(ctx context.Context, user models.User) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.Users(ctx)
	if err != nil {
		return models.User{}, err
	}

	replaced := false
	for i, u := range users {
		if u.AccountID == user.AccountID {
			user.CreatedAt = u.CreatedAt
			users[i] = user
			replaced = true
			break
		}
	}
	if !replaced {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].AccountID < users[j].AccountID })

	if err := r.saveJSON(ctx, usersKey, users); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *Repository) loadJSON(ctx context.Context, key string, v any) error {
	raw, err := r.store.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (r *Repository) saveJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return r.store.Save(ctx, key, raw)
}
