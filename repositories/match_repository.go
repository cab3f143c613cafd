package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/strayworks/bracketbot/models"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchSlotConflict maps the (tournament_id, round, slot) unique
	// constraint. A concurrent advance that loses the race to create a round
	// hits this and treats it as a no-op.
	ErrMatchSlotConflict = errors.New("match already exists for this round and slot")
	// ErrMatchAlreadyScored is returned when the guarded result update finds
	// the row no longer PENDING.
	ErrMatchAlreadyScored = errors.New("match already scored")
)

type MatchRepository interface {
	// CreateRound inserts a batch of matches for one round, assigning ids.
	CreateRound(ctx context.Context, q Querier, matches []*models.Match) error
	GetByID(ctx context.Context, q Querier, id int) (*models.Match, error)
	// GetByIDForUpdate locks the match row so a concurrent result submission
	// for the same match serializes behind this transaction.
	GetByIDForUpdate(ctx context.Context, q Querier, id int) (*models.Match, error)
	// ListByTournament returns all matches ordered by round then slot.
	ListByTournament(ctx context.Context, q Querier, tournamentID int) ([]*models.Match, error)
	CountByRound(ctx context.Context, q Querier, tournamentID, round int) (int, error)
	// RecordResult sets score, winner and COMPLETED status, guarded on the
	// row still being PENDING.
	RecordResult(ctx context.Context, q Querier, id int, score, winner string) error
	SetChannel(ctx context.Context, q Querier, id int, channelRef string) error
	DeleteByTournament(ctx context.Context, q Querier, tournamentID int) error
}

type postgresMatchRepository struct{}

func NewPostgresMatchRepository() MatchRepository {
	return &postgresMatchRepository{}
}

const matchColumns = `id, tournament_id, round, slot, team_a, team_b, score, winner, status, channel_ref, created_at`

func (r *postgresMatchRepository) CreateRound(ctx context.Context, q Querier, matches []*models.Match) error {
	query := `
		INSERT INTO bracket_matches (tournament_id, round, slot, team_a, team_b, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	for _, match := range matches {
		err := q.QueryRowContext(ctx, query,
			match.TournamentID,
			match.Round,
			match.Slot,
			match.TeamA,
			match.TeamB,
			match.Status,
		).Scan(&match.ID, &match.CreatedAt)
		if err != nil {
			return handleMatchError(err)
		}
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, q Querier, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM bracket_matches WHERE id = $1`
	return scanMatch(q.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, q Querier, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM bracket_matches WHERE id = $1 FOR UPDATE`
	return scanMatch(q.QueryRowContext(ctx, query, id))
}

func scanMatch(row *sql.Row) (*models.Match, error) {
	match := &models.Match{}
	err := row.Scan(
		&match.ID,
		&match.TournamentID,
		&match.Round,
		&match.Slot,
		&match.TeamA,
		&match.TeamB,
		&match.Score,
		&match.Winner,
		&match.Status,
		&match.ChannelRef,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, q Querier, tournamentID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM bracket_matches WHERE tournament_id = $1 ORDER BY round ASC, slot ASC`

	rows, err := q.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var match models.Match
		if scanErr := rows.Scan(
			&match.ID,
			&match.TournamentID,
			&match.Round,
			&match.Slot,
			&match.TeamA,
			&match.TeamB,
			&match.Score,
			&match.Winner,
			&match.Status,
			&match.ChannelRef,
			&match.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, &match)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) CountByRound(ctx context.Context, q Querier, tournamentID, round int) (int, error) {
	query := `SELECT COUNT(*) FROM bracket_matches WHERE tournament_id = $1 AND round = $2`

	var count int
	if err := q.QueryRowContext(ctx, query, tournamentID, round).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresMatchRepository) RecordResult(ctx context.Context, q Querier, id int, score, winner string) error {
	query := `
		UPDATE bracket_matches
		SET score = $1, winner = $2, status = $3
		WHERE id = $4 AND status = $5`

	result, err := q.ExecContext(ctx, query, score, winner, models.MatchCompleted, id, models.MatchPending)
	if err != nil {
		return err
	}

	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrMatchAlreadyScored
	}
	return nil
}

func (r *postgresMatchRepository) SetChannel(ctx context.Context, q Querier, id int, channelRef string) error {
	query := `UPDATE bracket_matches SET channel_ref = $1 WHERE id = $2`

	result, err := q.ExecContext(ctx, query, channelRef, id)
	if err != nil {
		return err
	}

	rowsAffected, checkErr := checkRowsAffected(result)
	if checkErr != nil {
		return checkErr
	}
	if rowsAffected == 0 {
		return ErrMatchNotFound
	}
	return nil
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, q Querier, tournamentID int) error {
	query := `DELETE FROM bracket_matches WHERE tournament_id = $1`
	_, err := q.ExecContext(ctx, query, tournamentID)
	return err
}

func handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if pqErr.Constraint == "bracket_matches_tournament_round_slot_key" {
			return ErrMatchSlotConflict
		}
	}
	return err
}
