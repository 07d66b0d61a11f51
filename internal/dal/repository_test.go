package dal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

func TestRepositoryEmptyCollections(t *testing.T) {
	repo := NewRepository(NewMemoryStore())
	ctx := context.Background()

	ids, err := repo.TournamentIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	tournaments, err := repo.Tournaments(ctx)
	require.NoError(t, err)
	assert.Empty(t, tournaments)

	users, err := repo.Users(ctx)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestRepositoryCreateTournament(t *testing.T) {
	repo := NewRepository(NewMemoryStore())
	ctx := context.Background()

	tournament := &models.Tournament{
		ID:       "t1",
		Name:     "Spring Cup",
		Status:   models.StatusScheduled,
		MapPool:  []string{"Map1"},
		MatchIDs: []string{"m1"},
	}
	require.NoError(t, repo.CreateTournament(ctx, tournament, map[string][]byte{"m1": []byte(`{"id":"m1"}`)}))
	// Creating again does not duplicate the index entry
	require.NoError(t, repo.CreateTournament(ctx, tournament, map[string][]byte{"m1": []byte(`{"id":"m1"}`)}))

	ids, err := repo.TournamentIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, ids)

	loaded, err := repo.Tournament(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Spring Cup", loaded.Name)
	assert.Equal(t, []string{"m1"}, loaded.MatchIDs)

	raw, err := repo.LoadMatch(ctx, "m1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"m1"}`, string(raw))
}

func TestRepositoryCreateTournamentRequiresMatchDocuments(t *testing.T) {
	repo := NewRepository(NewMemoryStore())
	ctx := context.Background()

	err := repo.CreateTournament(ctx, &models.Tournament{ID: "t1", MatchIDs: []string{"m1"}}, nil)
	require.Error(t, err)

	ids, err := repo.TournamentIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "nothing is indexed when a match document is missing")
}

func TestRepositoryTournamentsSkipsDanglingIndexEntries(t *testing.T) {
	store := NewMemoryStore()
	repo := NewRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.CreateTournament(ctx, &models.Tournament{ID: "t1"}, nil))
	require.NoError(t, store.Save(ctx, tournamentIndexKey, []byte(`["t1","ghost"]`)))

	tournaments, err := repo.Tournaments(ctx)
	require.NoError(t, err)
	require.Len(t, tournaments, 1)
	assert.Equal(t, "t1", tournaments[0].ID)
}

func TestRepositoryUpdateTournament(t *testing.T) {
	repo := NewRepository(NewMemoryStore())
	ctx := context.Background()
	require.NoError(t, repo.CreateTournament(ctx, &models.Tournament{ID: "t1", Status: models.StatusScheduled}, nil))

	updated, err := repo.UpdateTournament(ctx, "t1", func(t *models.Tournament) error {
		t.Status = models.StatusLive
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, updated.Status)

	boom := errors.New("rejected")
	_, err = repo.UpdateTournament(ctx, "t1", func(t *models.Tournament) error {
		t.Status = models.StatusCompleted
		return boom
	})
	assert.ErrorIs(t, err, boom)

	loaded, err := repo.Tournament(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, loaded.Status, "a failed update writes nothing")

	_, err = repo.UpdateTournament(ctx, "missing", func(*models.Tournament) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryUpsertUser(t *testing.T) {
	repo := NewRepository(NewMemoryStore())
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.UpsertUser(ctx, models.User{AccountID: "zed", DisplayName: "Zed", Role: models.RolePlayer, CreatedAt: created})
	require.NoError(t, err)
	_, err = repo.UpsertUser(ctx, models.User{AccountID: "amy", DisplayName: "Amy", Role: models.RoleViewer, CreatedAt: created})
	require.NoError(t, err)

	updated, err := repo.UpsertUser(ctx, models.User{AccountID: "zed", DisplayName: "Zed Prime", Role: models.RolePlayer, CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, created, updated.CreatedAt, "existing entries keep their creation time")

	users, err := repo.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "amy", users[0].AccountID)
	assert.Equal(t, "Zed Prime", users[1].DisplayName)

	user, err := repo.User(ctx, "amy")
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, user.Role)

	_, err = repo.User(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryConcurrentUserUpserts(t *testing.T) {
	repo := NewRepository(NewMemoryStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := repo.UpsertUser(ctx, models.User{AccountID: id, Role: models.RolePlayer})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	users, err := repo.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 8, "no lost updates")
}
