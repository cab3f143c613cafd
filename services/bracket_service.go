package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/strayworks/bracketbot/brackets"
	"github.com/strayworks/bracketbot/models"
	"github.com/strayworks/bracketbot/render"
	"github.com/strayworks/bracketbot/repositories"
)

type BracketService interface {
	StartBracket(ctx context.Context, guildID int64) (*BracketPayload, error)
	RecordResult(ctx context.Context, guildID int64, input RecordResultInput) (*BracketPayload, error)
	Projection(ctx context.Context, guildID int64) (*brackets.Projection, error)
	RenderBracket(ctx context.Context, guildID int64) ([]byte, error)
}

type RecordResultInput struct {
	MatchID     int    `json:"match_id"`
	ScoreA      int    `json:"score_a"`
	ScoreB      int    `json:"score_b"`
	ReporterRef string `json:"reporter_ref,omitempty"`
}

type bracketService struct {
	db             repositories.Querier
	txRunner       repositories.TxRunner
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	channels       ChannelProvider
	notifier       Notifier
	images         ImageStore
	logger         *slog.Logger
}

func NewBracketService(
	db repositories.Querier,
	txRunner repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	channels ChannelProvider,
	notifier Notifier,
	images ImageStore,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		db:             db,
		txRunner:       txRunner,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		channels:       channels,
		notifier:       notifier,
		images:         images,
		logger:         logger,
	}
}

// StartBracket seeds the ready teams, creates the first round and moves the
// tournament to RUNNING. The tournament row lock serializes concurrent start
// attempts; the loser of the race sees RUNNING and gets
// ErrBracketAlreadyRunning.
func (s *bracketService) StartBracket(ctx context.Context, guildID int64) (*BracketPayload, error) {
	var (
		tournament *models.Tournament
		created    []*models.Match
	)
	err := s.txRunner.WithinTx(ctx, func(q repositories.Querier) error {
		var getErr error
		tournament, getErr = s.tournamentRepo.GetByGuildForUpdate(ctx, q, guildID)
		if getErr != nil {
			return getErr
		}
		switch tournament.Status {
		case models.TournamentRunning:
			return ErrBracketAlreadyRunning
		case models.TournamentFinished:
			return ErrTournamentFinished
		}

		format, fmtErr := brackets.NewFormat(tournament.BracketType)
		if fmtErr != nil {
			return fmtErr
		}

		teams, teamsErr := s.teamRepo.ListReady(ctx, q, tournament.ID)
		if teamsErr != nil {
			return teamsErr
		}
		seeds, seedErr := brackets.Seed(teamNames(teams))
		if seedErr != nil {
			return seedErr
		}
		pairs, pairErr := format.RoundOnePairs(seeds)
		if pairErr != nil {
			return pairErr
		}

		// A WAITING tournament should have no rows, but a crashed reset can
		// leave strays behind.
		if wipeErr := s.matchRepo.DeleteByTournament(ctx, q, tournament.ID); wipeErr != nil {
			return wipeErr
		}
		created = matchesFromPairs(tournament.ID, 1, pairs)
		if createErr := s.matchRepo.CreateRound(ctx, q, created); createErr != nil {
			return createErr
		}

		tournament.QueueStatus = models.QueueClosed
		if updErr := s.tournamentRepo.Update(ctx, q, tournament); updErr != nil {
			return updErr
		}
		return s.tournamentRepo.UpdateStatus(ctx, q, tournament.ID, models.TournamentWaiting, models.TournamentRunning)
	})
	if err != nil {
		return nil, err
	}
	tournament.Status = models.TournamentRunning

	s.openMatchChannels(ctx, tournament, created)

	payload := s.buildPayload(ctx, tournament)
	s.notifier.BracketStarted(ctx, guildID, payload)
	s.logger.Info("bracket started", "guild_id", guildID, "tournament_id", tournament.ID, "teams", len(created)*2)
	return &payload, nil
}

// RecordResult scores one match and, when it closes the current round, plans
// the next one in the same transaction. Everything runs under the tournament
// row lock so two results finishing a round cannot both create the next one.
func (s *bracketService) RecordResult(ctx context.Context, guildID int64, input RecordResultInput) (*BracketPayload, error) {
	if input.ScoreA < 0 || input.ScoreB < 0 {
		return nil, ErrInvalidScore
	}
	if input.ScoreA == input.ScoreB {
		return nil, ErrTiedScore
	}

	var (
		tournament *models.Tournament
		scored     *models.Match
		created    []*models.Match
		champion   string
	)
	err := s.txRunner.WithinTx(ctx, func(q repositories.Querier) error {
		// Reset carried state in case a contention retry re-runs the closure.
		scored, created, champion = nil, nil, ""

		var getErr error
		tournament, getErr = s.tournamentRepo.GetByGuildForUpdate(ctx, q, guildID)
		if getErr != nil {
			return getErr
		}
		if tournament.Status == models.TournamentWaiting {
			return ErrNoBracket
		}
		if tournament.Status == models.TournamentFinished {
			return ErrTournamentFinished
		}

		match, matchErr := s.matchRepo.GetByIDForUpdate(ctx, q, input.MatchID)
		if matchErr != nil {
			return matchErr
		}
		if match.TournamentID != tournament.ID {
			return repositories.ErrMatchNotFound
		}
		if match.Status != models.MatchPending {
			return ErrDuplicateResult
		}

		if tournament.CaptainScoring {
			if authErr := s.checkReporterIsCaptain(ctx, q, tournament.ID, match, input.ReporterRef); authErr != nil {
				return authErr
			}
		}

		winner := match.TeamA
		if input.ScoreB > input.ScoreA {
			winner = match.TeamB
		}
		score := fmt.Sprintf("%d-%d", input.ScoreA, input.ScoreB)

		if recErr := s.matchRepo.RecordResult(ctx, q, match.ID, score, winner); recErr != nil {
			if errors.Is(recErr, repositories.ErrMatchAlreadyScored) {
				return ErrDuplicateResult
			}
			return recErr
		}
		match.Score = &score
		match.Winner = &winner
		match.Status = models.MatchCompleted
		scored = match

		matches, listErr := s.matchRepo.ListByTournament(ctx, q, tournament.ID)
		if listErr != nil {
			return listErr
		}
		format, fmtErr := brackets.NewFormat(tournament.BracketType)
		if fmtErr != nil {
			return fmtErr
		}
		plan, planErr := format.PlanAdvance(matches)
		if planErr != nil {
			return planErr
		}
		if !plan.Complete {
			return nil
		}

		if plan.Champion != "" {
			champion = plan.Champion
			return s.tournamentRepo.UpdateStatus(ctx, q, tournament.ID, models.TournamentRunning, models.TournamentFinished)
		}

		// A round created by a concurrent winner is fine; the slot unique
		// constraint backstops the count check.
		existing, countErr := s.matchRepo.CountByRound(ctx, q, tournament.ID, plan.NextRound)
		if countErr != nil {
			return countErr
		}
		if existing > 0 {
			return nil
		}
		created = matchesFromPairs(tournament.ID, plan.NextRound, plan.Pairs)
		if createErr := s.matchRepo.CreateRound(ctx, q, created); createErr != nil {
			if errors.Is(createErr, repositories.ErrMatchSlotConflict) {
				created = nil
				return nil
			}
			return createErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.closeMatchChannel(ctx, tournament, scored)
	s.openMatchChannels(ctx, tournament, created)

	payload := s.buildPayload(ctx, tournament)
	if champion != "" {
		tournament.Status = models.TournamentFinished
		payload.Champion = &champion
		s.notifier.BracketFinished(ctx, guildID, payload)
		s.logger.Info("tournament finished", "guild_id", guildID, "tournament_id", tournament.ID, "champion", champion)
	} else {
		s.notifier.BracketUpdated(ctx, guildID, payload)
	}
	return &payload, nil
}

// Projection rebuilds the renderable bracket view from persisted state. The
// seed order is re-derived instead of stored; teams are frozen once the
// bracket runs, so it always comes out the same.
func (s *bracketService) Projection(ctx context.Context, guildID int64) (*brackets.Projection, error) {
	tournament, err := s.tournamentRepo.GetByGuild(ctx, s.db, guildID)
	if err != nil {
		return nil, err
	}
	if tournament.Status == models.TournamentWaiting {
		return nil, ErrNoBracket
	}

	var (
		teams   []*models.Team
		matches []*models.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var loadErr error
		teams, loadErr = s.teamRepo.ListReady(gctx, s.db, tournament.ID)
		return loadErr
	})
	g.Go(func() error {
		var loadErr error
		matches, loadErr = s.matchRepo.ListByTournament(gctx, s.db, tournament.ID)
		return loadErr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seeds, err := brackets.Seed(teamNames(teams))
	if err != nil {
		return nil, err
	}
	format, err := brackets.NewFormat(tournament.BracketType)
	if err != nil {
		return nil, err
	}
	return format.Project(seeds, matches)
}

func (s *bracketService) RenderBracket(ctx context.Context, guildID int64) ([]byte, error) {
	proj, err := s.Projection(ctx, guildID)
	if err != nil {
		return nil, err
	}
	png, err := render.Bracket(proj)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	return png, nil
}

func (s *bracketService) checkReporterIsCaptain(ctx context.Context, q repositories.Querier, tournamentID int, match *models.Match, reporterRef string) error {
	if reporterRef == "" {
		return ErrMatchNotScoreable
	}
	for _, name := range []string{match.TeamA, match.TeamB} {
		team, err := s.teamRepo.GetByName(ctx, q, tournamentID, name)
		if err != nil {
			// A match can outlive its team rows only through manual data
			// surgery; refuse captain checks against a ghost roster.
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return ErrMissingTeam
			}
			return err
		}
		if team.CaptainRef == reporterRef {
			return nil
		}
	}
	return ErrMatchNotScoreable
}

// buildPayload assembles the event payload sent after a committed change.
// Rendering and upload are best effort: a missing image never hides a state
// change.
func (s *bracketService) buildPayload(ctx context.Context, tournament *models.Tournament) BracketPayload {
	payload := BracketPayload{TournamentID: tournament.ID}

	proj, err := s.Projection(ctx, tournament.GuildID)
	if err != nil {
		s.logger.Error("failed to project bracket for event payload", "guild_id", tournament.GuildID, "error", err)
		return payload
	}
	payload.Projection = proj
	payload.Champion = proj.Champion

	if s.images == nil {
		return payload
	}
	png, err := render.Bracket(proj)
	if err != nil {
		s.logger.Error("failed to render bracket image", "guild_id", tournament.GuildID, "error", err)
		return payload
	}
	url, err := s.images.PublishBracketImage(ctx, tournament.ID, png)
	if err != nil {
		s.logger.Error("failed to publish bracket image", "guild_id", tournament.GuildID, "error", err)
		return payload
	}
	payload.ImageURL = &url
	return payload
}

func (s *bracketService) openMatchChannels(ctx context.Context, tournament *models.Tournament, matches []*models.Match) {
	if s.channels == nil || len(matches) == 0 {
		return
	}
	for _, match := range matches {
		ref, err := s.channels.CreateMatchChannel(ctx, MatchChannelContext{
			GuildID: tournament.GuildID,
			Match:   match,
			BestOf:  tournament.BestOf,
		})
		if err != nil {
			s.logger.Warn("failed to create match channel", "guild_id", tournament.GuildID, "match_id", match.ID, "error", err)
			continue
		}
		setErr := s.txRunner.WithinTx(ctx, func(q repositories.Querier) error {
			return s.matchRepo.SetChannel(ctx, q, match.ID, ref)
		})
		if setErr != nil {
			s.logger.Warn("failed to record match channel", "match_id", match.ID, "error", setErr)
		}
	}
}

func (s *bracketService) closeMatchChannel(ctx context.Context, tournament *models.Tournament, match *models.Match) {
	if s.channels == nil || match == nil || match.ChannelRef == nil {
		return
	}
	if err := s.channels.ArchiveMatchChannel(ctx, tournament.GuildID, *match.ChannelRef); err != nil {
		s.logger.Warn("failed to archive match channel", "guild_id", tournament.GuildID, "match_id", match.ID, "error", err)
	}
}

func teamNames(teams []*models.Team) []string {
	names := make([]string, len(teams))
	for i, t := range teams {
		names[i] = t.Name
	}
	return names
}

func matchesFromPairs(tournamentID, round int, pairs []brackets.Pair) []*models.Match {
	matches := make([]*models.Match, len(pairs))
	for i, p := range pairs {
		matches[i] = &models.Match{
			TournamentID: tournamentID,
			Round:        round,
			Slot:         p.Slot,
			TeamA:        p.TeamA,
			TeamB:        p.TeamB,
			Status:       models.MatchPending,
		}
	}
	return matches
}
