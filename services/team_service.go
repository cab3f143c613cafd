package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/strayworks/bracketbot/models"
	"github.com/strayworks/bracketbot/repositories"
)

type TeamService interface {
	Register(ctx context.Context, input RegisterTeamInput) (*models.Team, error)
	SetReady(ctx context.Context, guildID int64, teamName string, ready bool) (*models.Team, error)
	Disband(ctx context.Context, guildID int64, teamName string) error
	List(ctx context.Context, guildID int64) ([]*models.Team, error)
}

type RegisterTeamInput struct {
	GuildID    int64  `json:"guild_id"`
	Name       string `json:"name"`
	CaptainRef string `json:"captain_ref"`
	RoleRef    string `json:"role_ref,omitempty"`
}

type teamService struct {
	txRunner       repositories.TxRunner
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	logger         *slog.Logger
}

func NewTeamService(
	txRunner repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		txRunner:       txRunner,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		logger:         logger,
	}
}

func (s *teamService) Register(ctx context.Context, input RegisterTeamInput) (*models.Team, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("team name is required")
	}
	if input.CaptainRef == "" {
		return nil, fmt.Errorf("team captain is required")
	}

	team := &models.Team{
		Name:       input.Name,
		CaptainRef: input.CaptainRef,
	}
	if input.RoleRef != "" {
		team.RoleRef = &input.RoleRef
	}

	err := s.txRunner.WithinTx(ctx, func(q repositories.Querier) error {
		tournament, getErr := s.tournamentRepo.GetByGuildForUpdate(ctx, q, input.GuildID)
		if getErr != nil {
			return getErr
		}
		if tournament.Status != models.TournamentWaiting {
			return ErrBracketLocked
		}
		if tournament.QueueStatus != models.QueueOpen {
			return ErrJoinClosed
		}

		team.TournamentID = tournament.ID
		return s.teamRepo.Create(ctx, q, team)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("team registered", "guild_id", input.GuildID, "team", team.Name)
	return team, nil
}

func (s *teamService) SetReady(ctx context.Context, guildID int64, teamName string, ready bool) (*models.Team, error) {
	var team *models.Team
	err := s.txRunner.WithinTx(ctx, func(q repositories.Querier) error {
		tournament, getErr := s.tournamentRepo.GetByGuildForUpdate(ctx, q, guildID)
		if getErr != nil {
			return getErr
		}
		if tournament.Status != models.TournamentWaiting {
			return ErrBracketLocked
		}

		var teamErr error
		team, teamErr = s.teamRepo.GetByName(ctx, q, tournament.ID, teamName)
		if teamErr != nil {
			return teamErr
		}
		if team.Ready == ready {
			return nil
		}
		if setErr := s.teamRepo.SetReady(ctx, q, team.ID, ready); setErr != nil {
			return setErr
		}
		team.Ready = ready
		return nil
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (s *teamService) Disband(ctx context.Context, guildID int64, teamName string) error {
	err := s.txRunner.WithinTx(ctx, func(q repositories.Querier) error {
		tournament, getErr := s.tournamentRepo.GetByGuildForUpdate(ctx, q, guildID)
		if getErr != nil {
			return getErr
		}
		if tournament.Status != models.TournamentWaiting {
			return ErrBracketLocked
		}

		team, teamErr := s.teamRepo.GetByName(ctx, q, tournament.ID, teamName)
		if teamErr != nil {
			return teamErr
		}
		return s.teamRepo.Delete(ctx, q, team.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("team disbanded", "guild_id", guildID, "team", teamName)
	return nil
}

func (s *teamService) List(ctx context.Context, guildID int64) ([]*models.Team, error) {
	var teams []*models.Team
	err := s.txRunner.WithinTx(ctx, func(q repositories.Querier) error {
		tournament, getErr := s.tournamentRepo.GetByGuild(ctx, q, guildID)
		if getErr != nil {
			return getErr
		}
		var listErr error
		teams, listErr = s.teamRepo.ListByTournament(ctx, q, tournament.ID)
		return listErr
	})
	if err != nil {
		return nil, err
	}
	return teams, nil
}
