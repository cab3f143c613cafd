package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strayworks/bracketbot/brackets"
	"github.com/strayworks/bracketbot/models"
	"github.com/strayworks/bracketbot/repositories"
)

const testGuildID int64 = 42

type bracketHarness struct {
	service        BracketService
	tournamentRepo *fakeTournamentRepo
	teamRepo       *fakeTeamRepo
	matchRepo      *fakeMatchRepo
	notifier       *fakeNotifier
	tournament     *models.Tournament
}

func newBracketHarness(t *testing.T, teamCount int) *bracketHarness {
	t.Helper()

	tournamentRepo := newFakeTournamentRepo()
	teamRepo := newFakeTeamRepo()
	matchRepo := newFakeMatchRepo()
	notifier := &fakeNotifier{}

	tournament := &models.Tournament{
		GuildID:     testGuildID,
		Name:        "weekly cup",
		TeamSize:    5,
		BestOf:      3,
		BracketType: models.BracketSingleElimination,
		QueueStatus: models.QueueOpen,
		Status:      models.TournamentWaiting,
	}
	require.NoError(t, tournamentRepo.Create(context.Background(), nil, tournament))

	for i := 0; i < teamCount; i++ {
		team := &models.Team{
			TournamentID: tournament.ID,
			Name:         fmt.Sprintf("team-%d", i),
			Ready:        true,
			CaptainRef:   fmt.Sprintf("captain-%d", i),
		}
		require.NoError(t, teamRepo.Create(context.Background(), nil, team))
	}

	service := NewBracketService(
		nil,
		fakeTxRunner{},
		tournamentRepo,
		teamRepo,
		matchRepo,
		nil,
		notifier,
		nil,
		testLogger(),
	)

	return &bracketHarness{
		service:        service,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		notifier:       notifier,
		tournament:     tournament,
	}
}

func (h *bracketHarness) pendingMatches(t *testing.T) []*models.Match {
	t.Helper()
	matches, err := h.matchRepo.ListByTournament(context.Background(), nil, h.tournament.ID)
	require.NoError(t, err)
	var pending []*models.Match
	for _, m := range matches {
		if m.Status == models.MatchPending {
			pending = append(pending, m)
		}
	}
	return pending
}

func TestStartBracketCreatesFirstRound(t *testing.T) {
	h := newBracketHarness(t, 4)

	payload, err := h.service.StartBracket(context.Background(), testGuildID)
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.NotNil(t, payload.Projection)

	stored, err := h.tournamentRepo.GetByGuild(context.Background(), nil, testGuildID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentRunning, stored.Status)
	assert.Equal(t, models.QueueClosed, stored.QueueStatus)

	matches, err := h.matchRepo.ListByTournament(context.Background(), nil, h.tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for i, m := range matches {
		assert.Equal(t, 1, m.Round)
		assert.Equal(t, i, m.Slot)
		assert.Equal(t, models.MatchPending, m.Status)
	}

	assert.Len(t, h.notifier.started, 1)
}

func TestStartBracketRejectsRunning(t *testing.T) {
	h := newBracketHarness(t, 4)

	_, err := h.service.StartBracket(context.Background(), testGuildID)
	require.NoError(t, err)

	_, err = h.service.StartBracket(context.Background(), testGuildID)
	assert.ErrorIs(t, err, ErrBracketAlreadyRunning)

	matches, listErr := h.matchRepo.ListByTournament(context.Background(), nil, h.tournament.ID)
	require.NoError(t, listErr)
	assert.Len(t, matches, 2, "a rejected start must not duplicate matches")
}

func TestStartBracketRejectsBadTeamCount(t *testing.T) {
	for _, count := range []int{0, 1, 3, 5, 6, 7, 9} {
		t.Run(fmt.Sprintf("%d teams", count), func(t *testing.T) {
			h := newBracketHarness(t, count)
			_, err := h.service.StartBracket(context.Background(), testGuildID)
			assert.ErrorIs(t, err, brackets.ErrInvalidBracketSize)

			stored, getErr := h.tournamentRepo.GetByGuild(context.Background(), nil, testGuildID)
			require.NoError(t, getErr)
			assert.Equal(t, models.TournamentWaiting, stored.Status)
		})
	}
}

func TestStartBracketCountsOnlyReadyTeams(t *testing.T) {
	h := newBracketHarness(t, 4)
	notReady := &models.Team{
		TournamentID: h.tournament.ID,
		Name:         "stragglers",
		Ready:        false,
		CaptainRef:   "captain-x",
	}
	require.NoError(t, h.teamRepo.Create(context.Background(), nil, notReady))

	_, err := h.service.StartBracket(context.Background(), testGuildID)
	require.NoError(t, err)

	matches, listErr := h.matchRepo.ListByTournament(context.Background(), nil, h.tournament.ID)
	require.NoError(t, listErr)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.NotEqual(t, "stragglers", m.TeamA)
		assert.NotEqual(t, "stragglers", m.TeamB)
	}
}

func TestStartBracketRejectsDoubleElimination(t *testing.T) {
	h := newBracketHarness(t, 4)
	h.tournament.BracketType = models.BracketDoubleElimination
	require.NoError(t, h.tournamentRepo.Update(context.Background(), nil, h.tournament))

	_, err := h.service.StartBracket(context.Background(), testGuildID)
	assert.ErrorIs(t, err, brackets.ErrUnsupportedFormat)
}

func TestRecordResultRejectsTies(t *testing.T) {
	h := newBracketHarness(t, 4)
	_, err := h.service.StartBracket(context.Background(), testGuildID)
	require.NoError(t, err)
	match := h.pendingMatches(t)[0]

	_, err = h.service.RecordResult(context.Background(), testGuildID, RecordResultInput{
		MatchID: match.ID, ScoreA: 1, ScoreB: 1,
	})
	assert.ErrorIs(t, err, ErrTiedScore)

	_, err = h.service.RecordResult(context.Background(), testGuildID, RecordResultInput{
		MatchID: match.ID, ScoreA: -1, ScoreB: 2,
	})
	assert.ErrorIs(t, err, ErrInvalidScore)
}

func TestRecordResultRejectsRescoring(t *testing.T) {
	h := newBracketHarness(t, 4)
	_, err := h.service.StartBracket(context.Background(), testGuildID)
	require.NoError(t, err)
	match := h.pendingMatches(t)[0]

	_, err = h.service.RecordResult(context.Background(), testGuildID, RecordResultInput{
		MatchID: match.ID, ScoreA: 2, ScoreB: 0,
	})
	require.NoError(t, err)

	_, err = h.service.RecordResult(context.Background(), testGuildID, RecordResultInput{
		MatchID: match.ID, ScoreA: 0, ScoreB: 2,
	})
	assert.ErrorIs(t, err, ErrDuplicateResult)

	stored, getErr := h.matchRepo.GetByID(context.Background(), nil, match.ID)
	require.NoError(t, getErr)
	require.NotNil(t, stored.Winner)
	assert.Equal(t, match.TeamA, *stored.Winner, "the original result must stand")
}

func TestRecordResultRequiresBracket(t *testing.T) {
	h := newBracketHarness(t, 4)

	_, err := h.service.RecordResult(context.Background(), testGuildID, RecordResultInput{
		MatchID: 1, ScoreA: 2, ScoreB: 0,
	})
	assert.ErrorIs(t, err, ErrNoBracket)
}

func TestRecordResultUnknownMatch(t *testing.T) {
	h := newBracketHarness(t, 4)
	_, err := h.service.StartBracket(context.Background(), testGuildID)
	require.NoError(t, err)

	_, err = h.service.RecordResult(context.Background(), testGuildID, RecordResultInput{
		MatchID: 999, ScoreA: 2, ScoreB: 0,
	})
	assert.ErrorIs(t, err, repositories.ErrMatchNotFound)
}

func TestRecordResultAdvancesRound(t *testing.T) {
	h := newBracketHarness(t, 4)
	_, err := h.service.StartBracket(context.Background(), testGuildID)
	require.NoError(t, err)

	round1 := h.pendingMatches(t)
	require.Len(t, round1, 2)

	_, err = h.service.RecordResult(context.Background(), testGuildID, RecordResultInput{
		MatchID: round1[0].ID, ScoreA: 2, ScoreB: 1,
	})
	require.NoError(t, err)

	// One result in: the round is still open, no second round yet.
	count, countErr := h.matchRepo.CountByRound(context.Background(), nil, h.tournament.ID, 2)
	require.NoError(t, countErr)
	assert.Zero(t, count)

	_, err = h.service.RecordResult(context.Background(), testGuildID, RecordResultInput{
		MatchID: round1[1].ID, ScoreA: 0, ScoreB: 2,
	})
	require.NoError(t, err)

	matches, listErr := h.matchRepo.ListByTournament(context.Background(), nil, h.tournament.ID)
	require.NoError(t, listErr)
	require.Len(t, matches, 3)

	final := matches[2]
	assert.Equal(t, 2, final.Round)
	assert.Equal(t, 0, final.Slot)
	assert.Equal(t, round1[0].TeamA, final.TeamA, "winner of slot 0 fills the final's first seat")
	assert.Equal(t, round1[1].TeamB, final.TeamB, "winner of slot 1 fills the final's second seat")
	assert.Len(t, h.notifier.updated, 2)
}

func TestFullTournamentProducesChampion(t *testing.T) {
	h := newBracketHarness(t, 8)
	_, err := h.service.StartBracket(context.Background(), testGuildID)
	require.NoError(t, err)

	var lastPayload *BracketPayload
	for {
		pending := h.pendingMatches(t)
		if len(pending) == 0 {
			break
		}
		for _, m := range pending {
			lastPayload, err = h.service.RecordResult(context.Background(), testGuildID, RecordResultInput{
				MatchID: m.ID, ScoreA: 2, ScoreB: 0,
			})
			require.NoError(t, err)
		}
	}

	stored, getErr := h.tournamentRepo.GetByGuild(context.Background(), nil, testGuildID)
	require.NoError(t, getErr)
	assert.Equal(t, models.TournamentFinished, stored.Status)

	require.NotNil(t, lastPayload)
	require.NotNil(t, lastPayload.Champion)
	assert.Len(t, h.notifier.finished, 1)

	matches, listErr := h.matchRepo.ListByTournament(context.Background(), nil, h.tournament.ID)
	require.NoError(t, listErr)
	assert.Len(t, matches, 7, "8 teams play exactly 7 matches")

	// Nothing is scoreable once the champion is decided.
	_, err = h.service.RecordResult(context.Background(), testGuildID, RecordResultInput{
		MatchID: matches[0].ID, ScoreA: 2, ScoreB: 0,
	})
	assert.ErrorIs(t, err, ErrTournamentFinished)
}

func TestRecordResultCaptainScoring(t *testing.T) {
	h := newBracketHarness(t, 4)
	h.tournament.CaptainScoring = true
	require.NoError(t, h.tournamentRepo.Update(context.Background(), nil, h.tournament))

	_, err := h.service.StartBracket(context.Background(), testGuildID)
	require.NoError(t, err)
	match := h.pendingMatches(t)[0]

	teamA, getErr := h.teamRepo.GetByName(context.Background(), nil, h.tournament.ID, match.TeamA)
	require.NoError(t, getErr)

	_, err = h.service.RecordResult(context.Background(), testGuildID, RecordResultInput{
		MatchID: match.ID, ScoreA: 2, ScoreB: 0, ReporterRef: "random-bystander",
	})
	assert.ErrorIs(t, err, ErrMatchNotScoreable)

	_, err = h.service.RecordResult(context.Background(), testGuildID, RecordResultInput{
		MatchID: match.ID, ScoreA: 2, ScoreB: 0, ReporterRef: teamA.CaptainRef,
	})
	assert.NoError(t, err)
}

func TestProjectionRequiresBracket(t *testing.T) {
	h := newBracketHarness(t, 4)

	_, err := h.service.Projection(context.Background(), testGuildID)
	assert.ErrorIs(t, err, ErrNoBracket)
}

func TestProjectionMatchesBracketState(t *testing.T) {
	h := newBracketHarness(t, 4)
	_, err := h.service.StartBracket(context.Background(), testGuildID)
	require.NoError(t, err)

	match := h.pendingMatches(t)[0]
	_, err = h.service.RecordResult(context.Background(), testGuildID, RecordResultInput{
		MatchID: match.ID, ScoreA: 3, ScoreB: 1,
	})
	require.NoError(t, err)

	proj, err := h.service.Projection(context.Background(), testGuildID)
	require.NoError(t, err)

	require.Len(t, proj.Columns, 3)
	require.NotNil(t, proj.Columns[1][0])
	assert.Equal(t, match.TeamA, *proj.Columns[1][0])
	assert.Nil(t, proj.Columns[1][1])
	assert.Len(t, proj.Eliminated, 1)
	assert.Nil(t, proj.Champion)
}

func TestRenderBracketReturnsPNG(t *testing.T) {
	h := newBracketHarness(t, 4)
	_, err := h.service.StartBracket(context.Background(), testGuildID)
	require.NoError(t, err)

	png, err := h.service.RenderBracket(context.Background(), testGuildID)
	require.NoError(t, err)
	require.NotEmpty(t, png)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
