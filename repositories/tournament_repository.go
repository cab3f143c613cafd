package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/strayworks/bracketbot/models"
)

var (
	ErrTournamentNotFound       = errors.New("tournament not found")
	ErrTournamentGuildConflict  = errors.New("tournament already exists for this guild")
	ErrTournamentStatusConflict = errors.New("tournament status changed concurrently")
)

type TournamentRepository interface {
	Create(ctx context.Context, q Querier, tournament *models.Tournament) error
	GetByGuild(ctx context.Context, q Querier, guildID int64) (*models.Tournament, error)
	// GetByGuildForUpdate locks the tournament row for the duration of the
	// surrounding transaction. Bracket start and round advancement take this
	// lock so they are serialized per tournament.
	GetByGuildForUpdate(ctx context.Context, q Querier, guildID int64) (*models.Tournament, error)
	Update(ctx context.Context, q Querier, tournament *models.Tournament) error
	// UpdateStatus transitions status from expected to next; if the row is no
	// longer in the expected status it returns ErrTournamentStatusConflict.
	UpdateStatus(ctx context.Context, q Querier, id int, expected, next models.TournamentStatus) error
	Delete(ctx context.Context, q Querier, id int) error
}

type postgresTournamentRepository struct{}

func NewPostgresTournamentRepository() TournamentRepository {
	return &postgresTournamentRepository{}
}

const tournamentColumns = `id, guild_id, name, team_size, best_of, bracket_type, captain_scoring, queue_status, status, bracket_channel_ref, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, q Querier, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments
			(guild_id, name, team_size, best_of, bracket_type, captain_scoring, queue_status, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := q.QueryRowContext(ctx, query,
		t.GuildID,
		t.Name,
		t.TeamSize,
		t.BestOf,
		t.BracketType,
		t.CaptainScoring,
		t.QueueStatus,
		t.Status,
	).Scan(&t.ID, &t.CreatedAt)

	return handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByGuild(ctx context.Context, q Querier, guildID int64) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE guild_id = $1`
	return scanTournament(q.QueryRowContext(ctx, query, guildID))
}

func (r *postgresTournamentRepository) GetByGuildForUpdate(ctx context.Context, q Querier, guildID int64) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE guild_id = $1 FOR UPDATE`
	return scanTournament(q.QueryRowContext(ctx, query, guildID))
}

func scanTournament(row *sql.Row) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(
		&t.ID,
		&t.GuildID,
		&t.Name,
		&t.TeamSize,
		&t.BestOf,
		&t.BracketType,
		&t.CaptainScoring,
		&t.QueueStatus,
		&t.Status,
		&t.BracketChannelRef,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, q Querier, t *models.Tournament) error {
	query := `
		UPDATE tournaments
		SET name = $1, team_size = $2, best_of = $3, bracket_type = $4,
			captain_scoring = $5, queue_status = $6, bracket_channel_ref = $7
		WHERE id = $8`

	result, err := q.ExecContext(ctx, query,
		t.Name,
		t.TeamSize,
		t.BestOf,
		t.BracketType,
		t.CaptainScoring,
		t.QueueStatus,
		t.BracketChannelRef,
		t.ID,
	)
	if err != nil {
		return handleTournamentError(err)
	}

	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrTournamentNotFound
	}
	return nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, q Querier, id int, expected, next models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = $1 WHERE id = $2 AND status = $3`

	result, err := q.ExecContext(ctx, query, next, id, expected)
	if err != nil {
		return err
	}

	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrTournamentStatusConflict
	}
	return nil
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, q Querier, id int) error {
	// Teams and bracket matches go with it via ON DELETE CASCADE.
	query := `DELETE FROM tournaments WHERE id = $1`

	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrTournamentNotFound
	}
	return nil
}

func handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if pqErr.Constraint == "tournaments_guild_id_key" {
			return ErrTournamentGuildConflict
		}
	}
	return err
}
