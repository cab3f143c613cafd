package models

import "time"

// MatchStatus is one-way: PENDING -> COMPLETED. Completed matches are never
// re-scored.
type MatchStatus string

const (
	MatchPending   MatchStatus = "PENDING"
	MatchCompleted MatchStatus = "COMPLETED"
)

// Match is one bracket match. (TournamentID, Round, Slot) is the unique key;
// the parent/child relation between rounds is purely positional: the match at
// slot i of round r+1 receives the winners of slots 2i and 2i+1 of round r.
//
// Winner is set exactly when Status is COMPLETED and is always one of
// TeamA/TeamB. ChannelRef is a best-effort handle to the chat channel where
// the match is played; it is never authoritative.
type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Round        int         `json:"round" db:"round"`
	Slot         int         `json:"slot" db:"slot"`
	TeamA        string      `json:"team_a" db:"team_a"`
	TeamB        string      `json:"team_b" db:"team_b"`
	Score        *string     `json:"score,omitempty" db:"score"`
	Winner       *string     `json:"winner,omitempty" db:"winner"`
	Status       MatchStatus `json:"status" db:"status"`
	ChannelRef   *string     `json:"channel_ref,omitempty" db:"channel_ref"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// Loser returns the non-winning participant, or "" while the match is
// pending.
func (m *Match) Loser() string {
	if m.Winner == nil {
		return ""
	}
	if *m.Winner == m.TeamA {
		return m.TeamB
	}
	return m.TeamA
}
