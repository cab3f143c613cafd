package models

import "time"

// Team is a registered roster entry. Only teams with Ready set participate in
// bracket generation. Name is unique within a tournament. RoleRef and
// CaptainRef point at chat-platform entities and may be stale; the bracket
// core never dereferences them, it only forwards them to the channel
// provider.
type Team struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"name" db:"name"`
	Ready        bool      `json:"ready" db:"ready"`
	RoleRef      *string   `json:"role_ref,omitempty" db:"role_ref"`
	CaptainRef   string    `json:"captain_ref" db:"captain_ref"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
