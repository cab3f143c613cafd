package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/strayworks/bracketbot/models"
	"github.com/strayworks/bracketbot/repositories"
)

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetByGuild(ctx context.Context, guildID int64) (*models.Tournament, error)
	SetQueueStatus(ctx context.Context, guildID int64, status models.QueueStatus) (*models.Tournament, error)
	UpdateSettings(ctx context.Context, guildID int64, input TournamentSettingsInput) (*models.Tournament, error)
	ResetBracket(ctx context.Context, guildID int64) error
	Delete(ctx context.Context, guildID int64) error
}

type CreateTournamentInput struct {
	GuildID  int64  `json:"guild_id"`
	Name     string `json:"name"`
	TeamSize int    `json:"team_size"`
	BestOf   int    `json:"best_of"`
}

// TournamentSettingsInput updates tournament settings. Nil fields are left
// unchanged.
type TournamentSettingsInput struct {
	Name           *string `json:"name,omitempty"`
	BestOf         *int    `json:"best_of,omitempty"`
	BracketType    *string `json:"bracket_type,omitempty"`
	CaptainScoring *bool   `json:"captain_scoring,omitempty"`
}

type tournamentService struct {
	txRunner       repositories.TxRunner
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	channels       ChannelProvider
	notifier       Notifier
	logger         *slog.Logger
}

func NewTournamentService(
	txRunner repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	channels ChannelProvider,
	notifier Notifier,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		txRunner:       txRunner,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		channels:       channels,
		notifier:       notifier,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("tournament name is required")
	}
	if input.TeamSize < 1 {
		return nil, fmt.Errorf("team size must be at least 1")
	}
	if input.BestOf < 1 || input.BestOf%2 == 0 {
		return nil, fmt.Errorf("best_of must be a positive odd number")
	}

	tournament := &models.Tournament{
		GuildID:     input.GuildID,
		Name:        input.Name,
		TeamSize:    input.TeamSize,
		BestOf:      input.BestOf,
		BracketType: models.BracketSingleElimination,
		QueueStatus: models.QueueOpen,
		Status:      models.TournamentWaiting,
	}

	err := s.txRunner.WithinTx(ctx, func(q repositories.Querier) error {
		return s.tournamentRepo.Create(ctx, q, tournament)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament created", "guild_id", input.GuildID, "tournament_id", tournament.ID)
	return tournament, nil
}

func (s *tournamentService) GetByGuild(ctx context.Context, guildID int64) (*models.Tournament, error) {
	var tournament *models.Tournament
	err := s.txRunner.WithinTx(ctx, func(q repositories.Querier) error {
		var getErr error
		tournament, getErr = s.tournamentRepo.GetByGuild(ctx, q, guildID)
		return getErr
	})
	if err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) SetQueueStatus(ctx context.Context, guildID int64, status models.QueueStatus) (*models.Tournament, error) {
	if status != models.QueueOpen && status != models.QueueClosed {
		return nil, fmt.Errorf("unknown queue status %q", status)
	}

	var tournament *models.Tournament
	err := s.txRunner.WithinTx(ctx, func(q repositories.Querier) error {
		var getErr error
		tournament, getErr = s.tournamentRepo.GetByGuildForUpdate(ctx, q, guildID)
		if getErr != nil {
			return getErr
		}
		if tournament.QueueStatus == status {
			return nil
		}
		tournament.QueueStatus = status
		return s.tournamentRepo.Update(ctx, q, tournament)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("queue status changed", "guild_id", guildID, "queue_status", status)
	return tournament, nil
}

func (s *tournamentService) UpdateSettings(ctx context.Context, guildID int64, input TournamentSettingsInput) (*models.Tournament, error) {
	if input.BracketType != nil {
		bt := models.BracketType(*input.BracketType)
		if bt != models.BracketSingleElimination && bt != models.BracketDoubleElimination {
			return nil, fmt.Errorf("unknown bracket type %q", *input.BracketType)
		}
	}
	if input.BestOf != nil && (*input.BestOf < 1 || *input.BestOf%2 == 0) {
		return nil, fmt.Errorf("best_of must be a positive odd number")
	}

	var tournament *models.Tournament
	err := s.txRunner.WithinTx(ctx, func(q repositories.Querier) error {
		var getErr error
		tournament, getErr = s.tournamentRepo.GetByGuildForUpdate(ctx, q, guildID)
		if getErr != nil {
			return getErr
		}
		// Format settings are frozen once the bracket runs; re-seeding under a
		// different format would not match the matches already played.
		if tournament.Status != models.TournamentWaiting && (input.BracketType != nil || input.BestOf != nil) {
			return ErrBracketLocked
		}

		if input.Name != nil {
			tournament.Name = *input.Name
		}
		if input.BestOf != nil {
			tournament.BestOf = *input.BestOf
		}
		if input.BracketType != nil {
			tournament.BracketType = models.BracketType(*input.BracketType)
		}
		if input.CaptainScoring != nil {
			tournament.CaptainScoring = *input.CaptainScoring
		}
		return s.tournamentRepo.Update(ctx, q, tournament)
	})
	if err != nil {
		return nil, err
	}
	return tournament, nil
}

// ResetBracket wipes all matches and returns the tournament to WAITING with
// an open queue. Match channels are archived best effort after commit.
func (s *tournamentService) ResetBracket(ctx context.Context, guildID int64) error {
	var (
		tournament  *models.Tournament
		channelRefs []string
	)
	err := s.txRunner.WithinTx(ctx, func(q repositories.Querier) error {
		var getErr error
		tournament, getErr = s.tournamentRepo.GetByGuildForUpdate(ctx, q, guildID)
		if getErr != nil {
			return getErr
		}
		if tournament.Status == models.TournamentWaiting {
			return ErrNoBracket
		}

		matches, listErr := s.matchRepo.ListByTournament(ctx, q, tournament.ID)
		if listErr != nil {
			return listErr
		}
		channelRefs = collectChannelRefs(matches)

		if delErr := s.matchRepo.DeleteByTournament(ctx, q, tournament.ID); delErr != nil {
			return delErr
		}

		tournament.QueueStatus = models.QueueOpen
		tournament.BracketChannelRef = nil
		if updErr := s.tournamentRepo.Update(ctx, q, tournament); updErr != nil {
			return updErr
		}
		return s.tournamentRepo.UpdateStatus(ctx, q, tournament.ID, tournament.Status, models.TournamentWaiting)
	})
	if err != nil {
		return err
	}

	s.archiveChannels(ctx, guildID, channelRefs)
	s.notifier.BracketReset(ctx, guildID)
	s.logger.Info("bracket reset", "guild_id", guildID, "tournament_id", tournament.ID)
	return nil
}

// Delete removes the tournament and everything attached to it. Teams and
// matches go via cascade; channels and websocket rooms are cleaned up after
// commit.
func (s *tournamentService) Delete(ctx context.Context, guildID int64) error {
	var (
		tournament  *models.Tournament
		channelRefs []string
	)
	err := s.txRunner.WithinTx(ctx, func(q repositories.Querier) error {
		var getErr error
		tournament, getErr = s.tournamentRepo.GetByGuildForUpdate(ctx, q, guildID)
		if getErr != nil {
			return getErr
		}

		matches, listErr := s.matchRepo.ListByTournament(ctx, q, tournament.ID)
		if listErr != nil {
			return listErr
		}
		channelRefs = collectChannelRefs(matches)

		return s.tournamentRepo.Delete(ctx, q, tournament.ID)
	})
	if err != nil {
		return err
	}

	s.archiveChannels(ctx, guildID, channelRefs)
	s.notifier.BracketReset(ctx, guildID)
	s.logger.Info("tournament deleted", "guild_id", guildID, "tournament_id", tournament.ID)
	return nil
}

func (s *tournamentService) archiveChannels(ctx context.Context, guildID int64, channelRefs []string) {
	if s.channels == nil {
		return
	}
	for _, ref := range channelRefs {
		if err := s.channels.ArchiveMatchChannel(ctx, guildID, ref); err != nil {
			s.logger.Warn("failed to archive match channel", "guild_id", guildID, "channel_ref", ref, "error", err)
		}
	}
}

func collectChannelRefs(matches []*models.Match) []string {
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.ChannelRef != nil && *m.ChannelRef != "" {
			refs = append(refs, *m.ChannelRef)
		}
	}
	return refs
}

// IsNotFound reports whether err means the requested entity does not exist,
// regardless of which repository produced it.
func IsNotFound(err error) bool {
	return errors.Is(err, repositories.ErrTournamentNotFound) ||
		errors.Is(err, repositories.ErrTeamNotFound) ||
		errors.Is(err, repositories.ErrMatchNotFound)
}
