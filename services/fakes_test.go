package services

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/strayworks/bracketbot/models"
	"github.com/strayworks/bracketbot/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTxRunner runs the closure directly. The fakes below hold their own
// state, so there is nothing to roll back.
type fakeTxRunner struct{}

func (fakeTxRunner) WithinTx(ctx context.Context, fn func(q repositories.Querier) error) error {
	return fn(nil)
}

type fakeTournamentRepo struct {
	mu      sync.Mutex
	byGuild map[int64]*models.Tournament
	nextID  int
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{byGuild: make(map[int64]*models.Tournament), nextID: 1}
}

func (r *fakeTournamentRepo) Create(ctx context.Context, q repositories.Querier, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byGuild[t.GuildID]; ok {
		return repositories.ErrTournamentGuildConflict
	}
	t.ID = r.nextID
	r.nextID++
	stored := *t
	r.byGuild[t.GuildID] = &stored
	return nil
}

func (r *fakeTournamentRepo) GetByGuild(ctx context.Context, q repositories.Querier, guildID int64) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byGuild[guildID]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *fakeTournamentRepo) GetByGuildForUpdate(ctx context.Context, q repositories.Querier, guildID int64) (*models.Tournament, error) {
	return r.GetByGuild(ctx, q, guildID)
}

func (r *fakeTournamentRepo) Update(ctx context.Context, q repositories.Querier, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for guildID, stored := range r.byGuild {
		if stored.ID == t.ID {
			clone := *t
			clone.Status = stored.Status
			r.byGuild[guildID] = &clone
			return nil
		}
	}
	return repositories.ErrTournamentNotFound
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, q repositories.Querier, id int, expected, next models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.byGuild {
		if stored.ID == id {
			if stored.Status != expected {
				return repositories.ErrTournamentStatusConflict
			}
			stored.Status = next
			return nil
		}
	}
	return repositories.ErrTournamentStatusConflict
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, q repositories.Querier, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for guildID, stored := range r.byGuild {
		if stored.ID == id {
			delete(r.byGuild, guildID)
			return nil
		}
	}
	return repositories.ErrTournamentNotFound
}

type fakeTeamRepo struct {
	mu     sync.Mutex
	teams  []*models.Team
	nextID int
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{nextID: 1}
}

func (r *fakeTeamRepo) Create(ctx context.Context, q repositories.Querier, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		if t.TournamentID == team.TournamentID && t.Name == team.Name {
			return repositories.ErrTeamNameConflict
		}
	}
	team.ID = r.nextID
	r.nextID++
	clone := *team
	r.teams = append(r.teams, &clone)
	return nil
}

func (r *fakeTeamRepo) GetByName(ctx context.Context, q repositories.Querier, tournamentID int, name string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		if t.TournamentID == tournamentID && t.Name == name {
			clone := *t
			return &clone, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) ListReady(ctx context.Context, q repositories.Querier, tournamentID int) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Team
	for _, t := range r.teams {
		if t.TournamentID == tournamentID && t.Ready {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) ListByTournament(ctx context.Context, q repositories.Querier, tournamentID int) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Team
	for _, t := range r.teams {
		if t.TournamentID == tournamentID {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) SetReady(ctx context.Context, q repositories.Querier, id int, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		if t.ID == id {
			t.Ready = ready
			return nil
		}
	}
	return repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) Delete(ctx context.Context, q repositories.Querier, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.teams {
		if t.ID == id {
			r.teams = append(r.teams[:i], r.teams[i+1:]...)
			return nil
		}
	}
	return repositories.ErrTeamNotFound
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	matches []*models.Match
	nextID  int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{nextID: 1}
}

func (r *fakeMatchRepo) CreateRound(ctx context.Context, q repositories.Querier, matches []*models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range matches {
		for _, existing := range r.matches {
			if existing.TournamentID == m.TournamentID && existing.Round == m.Round && existing.Slot == m.Slot {
				return repositories.ErrMatchSlotConflict
			}
		}
		m.ID = r.nextID
		r.nextID++
		clone := *m
		r.matches = append(r.matches, &clone)
	}
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, q repositories.Querier, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if m.ID == id {
			clone := *m
			return &clone, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, q repositories.Querier, id int) (*models.Match, error) {
	return r.GetByID(ctx, q, id)
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, q repositories.Querier, tournamentID int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, m := range r.matches {
		if m.TournamentID == tournamentID {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) CountByRound(ctx context.Context, q repositories.Querier, tournamentID, round int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.matches {
		if m.TournamentID == tournamentID && m.Round == round {
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) RecordResult(ctx context.Context, q repositories.Querier, id int, score, winner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if m.ID == id {
			if m.Status != models.MatchPending {
				return repositories.ErrMatchAlreadyScored
			}
			s, w := score, winner
			m.Score = &s
			m.Winner = &w
			m.Status = models.MatchCompleted
			return nil
		}
	}
	return repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) SetChannel(ctx context.Context, q repositories.Querier, id int, channelRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if m.ID == id {
			ref := channelRef
			m.ChannelRef = &ref
			return nil
		}
	}
	return repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) DeleteByTournament(ctx context.Context, q repositories.Querier, tournamentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*models.Match
	for _, m := range r.matches {
		if m.TournamentID != tournamentID {
			kept = append(kept, m)
		}
	}
	r.matches = kept
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	started  []BracketPayload
	updated  []BracketPayload
	finished []BracketPayload
	resets   int
}

func (n *fakeNotifier) BracketStarted(ctx context.Context, guildID int64, payload BracketPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, payload)
}

func (n *fakeNotifier) BracketUpdated(ctx context.Context, guildID int64, payload BracketPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, payload)
}

func (n *fakeNotifier) BracketFinished(ctx context.Context, guildID int64, payload BracketPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, payload)
}

func (n *fakeNotifier) BracketReset(ctx context.Context, guildID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets++
}
