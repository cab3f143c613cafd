package services

import "errors"

var (
	// Bracket lifecycle.
	ErrBracketAlreadyRunning = errors.New("bracket is already running")
	ErrTournamentFinished    = errors.New("tournament is finished")
	ErrNoBracket             = errors.New("tournament has no bracket")
	ErrBracketLocked         = errors.New("teams cannot change while the bracket is running")

	// Scoring.
	ErrTiedScore         = errors.New("matches cannot end in a tie")
	ErrDuplicateResult   = errors.New("match result was already recorded")
	ErrMissingTeam       = errors.New("winner must be one of the match participants")
	ErrInvalidScore      = errors.New("score must be two non-negative integers")
	ErrMatchNotScoreable = errors.New("match cannot be scored")

	// Registration.
	ErrJoinClosed = errors.New("tournament registration is closed")

	// Rendering.
	ErrRenderFailure = errors.New("failed to render bracket image")

	// Auth.
	ErrAuthInvalidKey = errors.New("invalid staff access key")
)
