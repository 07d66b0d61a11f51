package bracket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/championship-draft/internal/catalog"
	"github.com/Billy-Davies-2/championship-draft/internal/dal"
	"github.com/Billy-Davies-2/championship-draft/internal/draft"
	"github.com/Billy-Davies-2/championship-draft/internal/logger"
	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

// Publisher is notified when administrative changes alter a collection
type Publisher interface {
	TournamentsChanged()
	UsersChanged()
}

// Service is the administrative surface: tournaments, results and the
// user directory. It creates match documents but never edits them.
type Service struct {
	repo      *dal.Repository
	engine    *draft.Engine
	publisher Publisher
	now       func() time.Time
}

func NewService(repo *dal.Repository, engine *draft.Engine, publisher Publisher) *Service {
	return &Service{repo: repo, engine: engine, publisher: publisher, now: time.Now}
}

// CreateTournamentRequest describes a tournament and its first match
type CreateTournamentRequest struct {
	Name        string             `json:"name"`
	StartTime   *time.Time         `json:"startTime"`
	StreamLinks models.StreamLinks `json:"streamLinks"`
	MapPool     []string           `json:"mapPool"`
	Round       string             `json:"round"`
	ScheduledAt *time.Time         `json:"scheduledAt"`
	Players     []string           `json:"players"`
}

// CreateTournament registers a tournament with a fresh waiting match
// between two distinct registered players
func (s *Service) CreateTournament(ctx context.Context, req CreateTournamentRequest) (models.TournamentView, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.TournamentView{}, invalid("tournament name is required")
	}
	if len(req.Players) != draft.PlayersPerMatch || req.Players[0] == req.Players[1] {
		return models.TournamentView{}, invalid("a match needs %d distinct players", draft.PlayersPerMatch)
	}

	players := make([]models.Player, 0, len(req.Players))
	for _, accountID := range req.Players {
		user, err := s.repo.User(ctx, accountID)
		if errors.Is(err, dal.ErrNotFound) {
			return models.TournamentView{}, invalid("player %s is not registered", accountID)
		}
		if err != nil {
			return models.TournamentView{}, err
		}
		players = append(players, models.Player{AccountID: user.AccountID, DisplayName: user.DisplayName})
	}

	pool := cleanPool(req.MapPool)
	if len(pool) == 0 {
		pool = append([]string(nil), catalog.DefaultMapPool...)
	}

	now := s.now().UTC()
	match := &models.Match{
		ID:          uuid.NewString(),
		Round:       req.Round,
		ScheduledAt: req.ScheduledAt,
		Players:     players,
		Phase:       models.PhaseWaiting,
	}
	tournament := &models.Tournament{
		ID:          uuid.NewString(),
		Name:        name,
		Status:      models.StatusScheduled,
		StartTime:   req.StartTime,
		StreamLinks: req.StreamLinks,
		MapPool:     pool,
		MatchIDs:    []string{match.ID},
		CreatedAt:   now,
	}
	match.TournamentID = tournament.ID
	s.engine.Normalize(match)

	raw, err := json.Marshal(match)
	if err != nil {
		return models.TournamentView{}, err
	}
	if err := s.repo.CreateTournament(ctx, tournament, map[string][]byte{match.ID: raw}); err != nil {
		return models.TournamentView{}, fmt.Errorf("failed to create tournament: %w", err)
	}

	logger.Info("Tournament created", "tournament", tournament.ID, "match", match.ID, "players", req.Players)
	s.publisher.TournamentsChanged()
	return models.TournamentView{Tournament: *tournament, Matches: []*models.Match{match}}, nil
}

// SetStatus changes the administrative status of a tournament
func (s *Service) SetStatus(ctx context.Context, id string, status models.TournamentStatus) (*models.Tournament, error) {
	if !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	t, err := s.repo.UpdateTournament(ctx, id, func(t *models.Tournament) error {
		t.Status = status
		return nil
	})
	if err != nil {
		return nil, s.translate(err, id)
	}

	logger.Info("Tournament status changed", "tournament", id, "status", status)
	s.publisher.TournamentsChanged()
	return t, nil
}

// RecordResult stores the winner and completes the tournament. Both
// accounts must be participants of one of its matches.
func (s *Service) RecordResult(ctx context.Context, id, winner, loser string) (*models.Tournament, error) {
	if winner == "" || loser == "" || winner == loser {
		return nil, invalid("winner and loser must be two different players")
	}

	participants, err := s.participants(ctx, id)
	if err != nil {
		return nil, s.translate(err, id)
	}
	if !participants[winner] || !participants[loser] {
		return nil, invalid("winner and loser must play in this tournament")
	}

	t, err := s.repo.UpdateTournament(ctx, id, func(t *models.Tournament) error {
		t.Result = &models.TournamentResult{Winner: winner, Loser: loser, RecordedAt: s.now().UTC()}
		t.Status = models.StatusCompleted
		return nil
	})
	if err != nil {
		return nil, s.translate(err, id)
	}

	logger.Info("Tournament result recorded", "tournament", id, "winner", winner, "loser", loser)
	s.publisher.TournamentsChanged()
	return t, nil
}

func (s *Service) participants(ctx context.Context, id string) (map[string]bool, error) {
	t, err := s.repo.Tournament(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for _, matchID := range t.MatchIDs {
		raw, err := s.repo.LoadMatch(ctx, matchID)
		if errors.Is(err, dal.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		m, err := draft.DecodeMatch(raw)
		if err != nil {
			return nil, err
		}
		for _, p := range m.Players {
			out[p.AccountID] = true
		}
	}
	return out, nil
}

// RegisterUser adds or updates a public directory entry
func (s *Service) RegisterUser(ctx context.Context, user models.User) (models.User, error) {
	user.AccountID = strings.TrimSpace(user.AccountID)
	user.DisplayName = strings.TrimSpace(user.DisplayName)
	if user.AccountID == "" {
		return models.User{}, invalid("accountId is required")
	}
	if user.DisplayName == "" {
		user.DisplayName = user.AccountID
	}
	if user.Role == "" {
		user.Role = models.RolePlayer
	}
	if !user.Role.Valid() {
		return models.User{}, invalid("unknown role %q", user.Role)
	}
	user.CreatedAt = s.now().UTC()

	saved, err := s.repo.UpsertUser(ctx, user)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to save user: %w", err)
	}

	logger.Info("User registered", "account", saved.AccountID, "role", saved.Role)
	s.publisher.UsersChanged()
	return saved, nil
}

func (s *Service) translate(err error, id string) error {
	if errors.Is(err, dal.ErrNotFound) {
		return &draft.NotFoundError{Kind: "tournament", ID: id}
	}
	return err
}

func invalid(format string, args ...any) error {
	return &draft.ValidationError{Reason: draft.ReasonInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func cleanPool(pool []string) []string {
	seen := make(map[string]bool, len(pool))
	out := make([]string, 0, len(pool))
	for _, name := range pool {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
