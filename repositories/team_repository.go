package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/strayworks/bracketbot/models"
)

var (
	ErrTeamNotFound          = errors.New("team not found")
	ErrTeamNameConflict      = errors.New("team name is already taken in this tournament")
	ErrTeamTournamentInvalid = errors.New("team references an invalid tournament")
)

type TeamRepository interface {
	Create(ctx context.Context, q Querier, team *models.Team) error
	GetByName(ctx context.Context, q Querier, tournamentID int, name string) (*models.Team, error)
	// ListReady returns ready teams in insertion order (ascending id). The
	// seeding engine depends on this ordering being stable.
	ListReady(ctx context.Context, q Querier, tournamentID int) ([]*models.Team, error)
	ListByTournament(ctx context.Context, q Querier, tournamentID int) ([]*models.Team, error)
	SetReady(ctx context.Context, q Querier, id int, ready bool) error
	Delete(ctx context.Context, q Querier, id int) error
}

type postgresTeamRepository struct{}

func NewPostgresTeamRepository() TeamRepository {
	return &postgresTeamRepository{}
}

const teamColumns = `id, tournament_id, name, ready, role_ref, captain_ref, created_at`

func (r *postgresTeamRepository) Create(ctx context.Context, q Querier, team *models.Team) error {
	query := `
		INSERT INTO teams (tournament_id, name, ready, role_ref, captain_ref)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := q.QueryRowContext(ctx, query,
		team.TournamentID,
		team.Name,
		team.Ready,
		team.RoleRef,
		team.CaptainRef,
	).Scan(&team.ID, &team.CreatedAt)

	return handleTeamError(err)
}

func (r *postgresTeamRepository) GetByName(ctx context.Context, q Querier, tournamentID int, name string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE tournament_id = $1 AND name = $2`

	team := &models.Team{}
	err := q.QueryRowContext(ctx, query, tournamentID, name).Scan(
		&team.ID,
		&team.TournamentID,
		&team.Name,
		&team.Ready,
		&team.RoleRef,
		&team.CaptainRef,
		&team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) ListReady(ctx context.Context, q Querier, tournamentID int) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE tournament_id = $1 AND ready = TRUE ORDER BY id ASC`
	return r.list(ctx, q, query, tournamentID)
}

func (r *postgresTeamRepository) ListByTournament(ctx context.Context, q Querier, tournamentID int) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE tournament_id = $1 ORDER BY id ASC`
	return r.list(ctx, q, query, tournamentID)
}

func (r *postgresTeamRepository) list(ctx context.Context, q Querier, query string, args ...any) ([]*models.Team, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		var team models.Team
		if scanErr := rows.Scan(
			&team.ID,
			&team.TournamentID,
			&team.Name,
			&team.Ready,
			&team.RoleRef,
			&team.CaptainRef,
			&team.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, &team)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) SetReady(ctx context.Context, q Querier, id int, ready bool) error {
	query := `UPDATE teams SET ready = $1 WHERE id = $2`

	result, err := q.ExecContext(ctx, query, ready, id)
	if err != nil {
		return err
	}

	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func (r *postgresTeamRepository) Delete(ctx context.Context, q Querier, id int) error {
	query := `DELETE FROM teams WHERE id = $1`

	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func handleTeamError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "teams_tournament_id_name_key" {
				return ErrTeamNameConflict
			}
		case "23503": // foreign_key_violation
			if pqErr.Constraint == "teams_tournament_id_fkey" {
				return ErrTeamTournamentInvalid
			}
		}
	}
	return err
}
