package brackets

import (
	"errors"
	"fmt"

	"github.com/strayworks/bracketbot/models"
)

// ErrUnsupportedFormat is returned when a bracket type is recognized by the
// configuration layer but has no playable implementation yet.
var ErrUnsupportedFormat = errors.New("bracket format is not supported")

// Format plans bracket rounds for one tournament format.
type Format interface {
	RoundOnePairs(seeds []string) ([]Pair, error)
	PlanAdvance(matches []*models.Match) (*Advancement, error)
	Project(seeds []string, matches []*models.Match) (*Projection, error)
}

// NewFormat returns the planner for the given bracket type. Double
// elimination can be configured on a tournament but cannot be started.
func NewFormat(bracketType models.BracketType) (Format, error) {
	switch bracketType {
	case models.BracketSingleElimination:
		return SingleElimination{}, nil
	case models.BracketDoubleElimination:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, bracketType)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, bracketType)
	}
}
