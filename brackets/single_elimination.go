package brackets

import (
	"fmt"

	"github.com/strayworks/bracketbot/models"
)

// Pair is one pairing of participants within a round, in slot order.
type Pair struct {
	Slot  int
	TeamA string
	TeamB string
}

// Advancement is the planned next step for a bracket given its current
// matches. Exactly one of three shapes comes back: the current round is still
// in play (Complete false), the tournament is decided (Champion set), or the
// next round is ready to be created (Pairs set).
type Advancement struct {
	CurrentRound int
	Complete     bool
	Champion     string
	NextRound    int
	Pairs        []Pair
	Winners      []string
}

// Slot locates one participant box in a bracket projection: column cell
// (Column, Index).
type Slot struct {
	Column int `json:"column"`
	Index  int `json:"index"`
}

// Projection is the renderable view of a bracket. Columns[0] holds the seeds;
// Columns[r] holds the winners of round r in slot order, nil where the match
// is still pending. It is derived purely from the seed order and the persisted
// matches, so it survives restarts.
type Projection struct {
	Seeds      []string    `json:"seeds"`
	Columns    [][]*string `json:"columns"`
	Eliminated []Slot      `json:"eliminated"`
	Champion   *string     `json:"champion,omitempty"`
}

// SingleElimination plans rounds for a knockout bracket. It is stateless; all
// bracket state lives in the persisted matches.
type SingleElimination struct{}

// RoundOnePairs pairs adjacent seeds: (0,1), (2,3) and so on.
func (SingleElimination) RoundOnePairs(seeds []string) ([]Pair, error) {
	if !ValidSize(len(seeds)) {
		return nil, ErrInvalidBracketSize
	}

	pairs := make([]Pair, 0, len(seeds)/2)
	for i := 0; i < len(seeds); i += 2 {
		pairs = append(pairs, Pair{
			Slot:  i / 2,
			TeamA: seeds[i],
			TeamB: seeds[i+1],
		})
	}
	return pairs, nil
}

// PlanAdvance inspects the matches of a bracket (ordered by round, slot) and
// decides what happens next. It never mutates anything; the caller persists
// the outcome.
func (SingleElimination) PlanAdvance(matches []*models.Match) (*Advancement, error) {
	if len(matches) == 0 {
		return nil, fmt.Errorf("bracket has no matches")
	}

	byRound := groupByRound(matches)
	currentRound := len(byRound)
	current := byRound[currentRound]

	plan := &Advancement{CurrentRound: currentRound}

	winners := make([]string, 0, len(current))
	for _, m := range current {
		if m.Status != models.MatchCompleted || m.Winner == nil {
			return plan, nil
		}
		winners = append(winners, *m.Winner)
	}
	plan.Complete = true
	plan.Winners = winners

	if len(winners) == 1 {
		plan.Champion = winners[0]
		return plan, nil
	}

	plan.NextRound = currentRound + 1
	plan.Pairs = NextRoundPairs(winners)
	return plan, nil
}

// NextRoundPairs pairs round winners positionally: the winners of slots 2i
// and 2i+1 meet at slot i.
func NextRoundPairs(winners []string) []Pair {
	pairs := make([]Pair, 0, len(winners)/2)
	for i := 0; i+1 < len(winners); i += 2 {
		pairs = append(pairs, Pair{
			Slot:  i / 2,
			TeamA: winners[i],
			TeamB: winners[i+1],
		})
	}
	return pairs
}

// Project builds the renderable bracket view from the seed order and the
// persisted matches.
func (SingleElimination) Project(seeds []string, matches []*models.Match) (*Projection, error) {
	if !ValidSize(len(seeds)) {
		return nil, ErrInvalidBracketSize
	}

	numRounds := NumRounds(len(seeds))
	byRound := groupByRound(matches)

	proj := &Projection{
		Seeds:   seeds,
		Columns: make([][]*string, numRounds+1),
	}

	proj.Columns[0] = make([]*string, len(seeds))
	for i := range seeds {
		name := seeds[i]
		proj.Columns[0][i] = &name
	}

	for round := 1; round <= numRounds; round++ {
		width := len(seeds) >> uint(round)
		column := make([]*string, width)
		for _, m := range byRound[round] {
			if m.Slot < 0 || m.Slot >= width {
				return nil, fmt.Errorf("match %d has slot %d out of range for round %d", m.ID, m.Slot, m.Round)
			}
			if m.Status != models.MatchCompleted || m.Winner == nil {
				continue
			}
			winner := *m.Winner
			column[m.Slot] = &winner

			loser := m.Loser()
			prev := proj.Columns[round-1]
			for idx, name := range prev {
				if name != nil && *name == loser && feedsSlot(idx, m.Slot) {
					proj.Eliminated = append(proj.Eliminated, Slot{Column: round - 1, Index: idx})
					break
				}
			}
		}
		proj.Columns[round] = column
	}

	final := proj.Columns[numRounds]
	if len(final) == 1 && final[0] != nil {
		proj.Champion = final[0]
	}
	return proj, nil
}

// feedsSlot reports whether the participant at index idx of a column feeds
// the match at slot in the next round.
func feedsSlot(idx, slot int) bool {
	return idx/2 == slot
}

func groupByRound(matches []*models.Match) map[int][]*models.Match {
	byRound := make(map[int][]*models.Match)
	for _, m := range matches {
		byRound[m.Round] = append(byRound[m.Round], m)
	}
	return byRound
}
