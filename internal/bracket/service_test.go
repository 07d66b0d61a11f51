package bracket

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/championship-draft/internal/catalog"
	"github.com/Billy-Davies-2/championship-draft/internal/dal"
	"github.com/Billy-Davies-2/championship-draft/internal/draft"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

type recordingPublisher struct {
	tournaments int
	users       int
}

func (p *recordingPublisher) TournamentsChanged() { p.tournaments++ }
func (p *recordingPublisher) UsersChanged()       { p.users++ }

func newService(t *testing.T) (*Service, *dal.Repository, *recordingPublisher) {
	t.Helper()
	repo := dal.NewRepository(dal.NewMemoryStore())
	pub := &recordingPublisher{}
	svc := NewService(repo, draft.NewEngine(catalog.Default(), draft.DefaultPolicy()), pub)

	for _, id := range []string{"p1", "p2", "p3"} {
		_, err := svc.RegisterUser(context.Background(), models.User{AccountID: id, DisplayName: "Player " + id})
		require.NoError(t, err)
	}
	return svc, repo, pub
}

func requireInvalid(t *testing.T, err error) {
	t.Helper()
	reason, ok := draft.ReasonOf(err)
	require.True(t, ok, "expected a validation error, got %v", err)
	assert.Equal(t, draft.ReasonInvalidRequest, reason)
}

func TestCreateTournament(t *testing.T) {
	svc, repo, pub := newService(t)
	ctx := context.Background()

	view, err := svc.CreateTournament(ctx, CreateTournamentRequest{
		Name:    "  Spring Cup ",
		MapPool: []string{"Map1", " Map2", "Map1", ""},
		Round:   "결승",
		Players: []string{"p1", "p2"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Spring Cup", view.Name)
	assert.Equal(t, models.StatusScheduled, view.Status)
	assert.Equal(t, []string{"Map1", "Map2"}, view.MapPool)
	require.Len(t, view.Matches, 1)

	m := view.Matches[0]
	assert.Equal(t, view.ID, m.TournamentID)
	assert.Equal(t, models.PhaseWaiting, m.Phase)
	assert.Equal(t, "결승", m.Round)
	assert.Equal(t, "Player p1", m.Players[0].DisplayName)
	assert.Contains(t, m.Bans, "p2")
	assert.Contains(t, m.Selections, "p1")
	assert.Equal(t, 1, pub.tournaments)

	raw, err := repo.LoadMatch(ctx, m.ID)
	require.NoError(t, err)
	stored, err := draft.DecodeMatch(raw)
	require.NoError(t, err)
	assert.Equal(t, m.Players, stored.Players)
}

func TestCreateTournamentDefaultsMapPool(t *testing.T) {
	svc, _, _ := newService(t)

	view, err := svc.CreateTournament(context.Background(), CreateTournamentRequest{
		Name:    "Cup",
		Players: []string{"p1", "p2"},
	})
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultMapPool, view.MapPool)
	assert.Equal(t, draft.DefaultRound, view.Matches[0].Round)
}

func TestCreateTournamentValidation(t *testing.T) {
	svc, repo, pub := newService(t)
	ctx := context.Background()

	cases := map[string]CreateTournamentRequest{
		"missing name":        {Players: []string{"p1", "p2"}},
		"one player":          {Name: "Cup", Players: []string{"p1"}},
		"same player twice":   {Name: "Cup", Players: []string{"p1", "p1"}},
		"three players":       {Name: "Cup", Players: []string{"p1", "p2", "p3"}},
		"unregistered player": {Name: "Cup", Players: []string{"p1", "ghost"}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateTournament(ctx, req)
			requireInvalid(t, err)
		})
	}

	ids, err := repo.TournamentIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 0, pub.tournaments)
}

func TestSetStatus(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()

	view, err := svc.CreateTournament(ctx, CreateTournamentRequest{Name: "Cup", Players: []string{"p1", "p2"}})
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, view.ID, models.StatusLive)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, updated.Status)
	assert.Equal(t, 2, pub.tournaments)

	_, err = svc.SetStatus(ctx, view.ID, "paused")
	requireInvalid(t, err)

	_, err = svc.SetStatus(ctx, "missing", models.StatusLive)
	assert.ErrorIs(t, err, draft.ErrNotFound)
}

func TestRecordResult(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	view, err := svc.CreateTournament(ctx, CreateTournamentRequest{Name: "Cup", Players: []string{"p1", "p2"}})
	require.NoError(t, err)

	_, err = svc.RecordResult(ctx, view.ID, "p1", "p1")
	requireInvalid(t, err)

	_, err = svc.RecordResult(ctx, view.ID, "p1", "p3")
	requireInvalid(t, err)

	_, err = svc.RecordResult(ctx, "missing", "p1", "p2")
	assert.ErrorIs(t, err, draft.ErrNotFound)

	done, err := svc.RecordResult(ctx, view.ID, "p2", "p1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	require.NotNil(t, done.Result)
	assert.Equal(t, "p2", done.Result.Winner)
	assert.Equal(t, "p1", done.Result.Loser)
	assert.False(t, done.Result.RecordedAt.IsZero())
}

func TestRegisterUser(t *testing.T) {
	svc, repo, pub := newService(t)
	ctx := context.Background()
	assert.Equal(t, 3, pub.users)

	user, err := svc.RegisterUser(ctx, models.User{AccountID: " caster ", Role: models.RoleViewer})
	require.NoError(t, err)
	assert.Equal(t, "caster", user.AccountID)
	assert.Equal(t, "caster", user.DisplayName)

	_, err = svc.RegisterUser(ctx, models.User{AccountID: "x", Role: "owner"})
	requireInvalid(t, err)

	_, err = svc.RegisterUser(ctx, models.User{})
	requireInvalid(t, err)

	users, err := repo.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 4)
	assert.Equal(t, 4, pub.users)
}
