package models

import "time"

// TournamentStatus mirrors the status ENUM stored in the DB.
// Transitions are one-way: WAITING -> RUNNING -> FINISHED.
type TournamentStatus string

const (
	TournamentWaiting  TournamentStatus = "WAITING"
	TournamentRunning  TournamentStatus = "RUNNING"
	TournamentFinished TournamentStatus = "FINISHED"
)

// QueueStatus controls whether new teams may still register.
type QueueStatus string

const (
	QueueOpen   QueueStatus = "OPEN"
	QueueClosed QueueStatus = "CLOSED"
)

// BracketType is accepted in configuration. Only single elimination is
// implemented; starting a double-elimination bracket is rejected.
type BracketType string

const (
	BracketSingleElimination BracketType = "single_elimination"
	BracketDoubleElimination BracketType = "double_elimination"
)

// Tournament is the per-guild configuration singleton. It owns zero or one
// active bracket (the bracket_matches rows referencing it).
type Tournament struct {
	ID                int              `json:"id" db:"id"`
	GuildID           int64            `json:"guild_id" db:"guild_id"`
	Name              string           `json:"name" db:"name"`
	TeamSize          int              `json:"team_size" db:"team_size"`
	BestOf            int              `json:"best_of" db:"best_of"`
	BracketType       BracketType      `json:"bracket_type" db:"bracket_type"`
	CaptainScoring    bool             `json:"captain_scoring" db:"captain_scoring"`
	QueueStatus       QueueStatus      `json:"queue_status" db:"queue_status"`
	Status            TournamentStatus `json:"status" db:"status"`
	BracketChannelRef *string          `json:"bracket_channel_ref,omitempty" db:"bracket_channel_ref"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
}
