package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strayworks/bracketbot/models"
	"github.com/strayworks/bracketbot/repositories"
)

type teamHarness struct {
	service        TeamService
	tournamentRepo *fakeTournamentRepo
	teamRepo       *fakeTeamRepo
	tournament     *models.Tournament
}

func newTeamHarness(t *testing.T) *teamHarness {
	t.Helper()

	tournamentRepo := newFakeTournamentRepo()
	teamRepo := newFakeTeamRepo()

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

	return &teamHarness{
		service:        NewTeamService(fakeTxRunner{}, tournamentRepo, teamRepo, testLogger()),
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		tournament:     tournament,
	}
}

func (h *teamHarness) setStatus(t *testing.T, status models.TournamentStatus) {
	t.Helper()
	require.NoError(t, h.tournamentRepo.UpdateStatus(context.Background(), nil, h.tournament.ID, models.TournamentWaiting, status))
}

func TestRegisterTeam(t *testing.T) {
	h := newTeamHarness(t)

	team, err := h.service.Register(context.Background(), RegisterTeamInput{
		GuildID:    testGuildID,
		Name:       "night-owls",
		CaptainRef: "captain-1",
	})
	require.NoError(t, err)
	assert.Equal(t, h.tournament.ID, team.TournamentID)
	assert.False(t, team.Ready)
}

func TestRegisterTeamDuplicateName(t *testing.T) {
	h := newTeamHarness(t)

	_, err := h.service.Register(context.Background(), RegisterTeamInput{
		GuildID: testGuildID, Name: "night-owls", CaptainRef: "captain-1",
	})
	require.NoError(t, err)

	_, err = h.service.Register(context.Background(), RegisterTeamInput{
		GuildID: testGuildID, Name: "night-owls", CaptainRef: "captain-2",
	})
	assert.ErrorIs(t, err, repositories.ErrTeamNameConflict)
}

func TestRegisterTeamClosedQueue(t *testing.T) {
	h := newTeamHarness(t)
	h.tournament.QueueStatus = models.QueueClosed
	require.NoError(t, h.tournamentRepo.Update(context.Background(), nil, h.tournament))

	_, err := h.service.Register(context.Background(), RegisterTeamInput{
		GuildID: testGuildID, Name: "late-arrivals", CaptainRef: "captain-9",
	})
	assert.ErrorIs(t, err, ErrJoinClosed)
}

func TestRegisterTeamLockedWhileRunning(t *testing.T) {
	h := newTeamHarness(t)
	h.setStatus(t, models.TournamentRunning)

	_, err := h.service.Register(context.Background(), RegisterTeamInput{
		GuildID: testGuildID, Name: "late-arrivals", CaptainRef: "captain-9",
	})
	assert.ErrorIs(t, err, ErrBracketLocked)
}

func TestSetReadyTogglesTeam(t *testing.T) {
	h := newTeamHarness(t)
	_, err := h.service.Register(context.Background(), RegisterTeamInput{
		GuildID: testGuildID, Name: "night-owls", CaptainRef: "captain-1",
	})
	require.NoError(t, err)

	team, err := h.service.SetReady(context.Background(), testGuildID, "night-owls", true)
	require.NoError(t, err)
	assert.True(t, team.Ready)

	team, err = h.service.SetReady(context.Background(), testGuildID, "night-owls", false)
	require.NoError(t, err)
	assert.False(t, team.Ready)
}

func TestSetReadyLockedWhileRunning(t *testing.T) {
	h := newTeamHarness(t)
	_, err := h.service.Register(context.Background(), RegisterTeamInput{
		GuildID: testGuildID, Name: "night-owls", CaptainRef: "captain-1",
	})
	require.NoError(t, err)
	h.setStatus(t, models.TournamentRunning)

	_, err = h.service.SetReady(context.Background(), testGuildID, "night-owls", true)
	assert.ErrorIs(t, err, ErrBracketLocked)
}

func TestDisbandTeam(t *testing.T) {
	h := newTeamHarness(t)
	_, err := h.service.Register(context.Background(), RegisterTeamInput{
		GuildID: testGuildID, Name: "night-owls", CaptainRef: "captain-1",
	})
	require.NoError(t, err)

	require.NoError(t, h.service.Disband(context.Background(), testGuildID, "night-owls"))

	teams, err := h.service.List(context.Background(), testGuildID)
	require.NoError(t, err)
	assert.Empty(t, teams)

	err = h.service.Disband(context.Background(), testGuildID, "night-owls")
	assert.ErrorIs(t, err, repositories.ErrTeamNotFound)
}

func TestDisbandLockedWhileRunning(t *testing.T) {
	h := newTeamHarness(t)
	_, err := h.service.Register(context.Background(), RegisterTeamInput{
		GuildID: testGuildID, Name: "night-owls", CaptainRef: "captain-1",
	})
	require.NoError(t, err)
	h.setStatus(t, models.TournamentRunning)

	err = h.service.Disband(context.Background(), testGuildID, "night-owls")
	assert.ErrorIs(t, err, ErrBracketLocked)
}
