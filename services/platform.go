package services

import (
	"context"

	"github.com/strayworks/bracketbot/models"
)

// MatchChannelContext carries what a chat platform needs to open a channel
// for one match.
type MatchChannelContext struct {
	GuildID int64
	Match   *models.Match
	BestOf  int
}

// ChannelProvider manages per-match chat channels on the platform. All calls
// are best effort: channel failures never fail a bracket operation.
type ChannelProvider interface {
	CreateMatchChannel(ctx context.Context, mc MatchChannelContext) (string, error)
	ArchiveMatchChannel(ctx context.Context, guildID int64, channelRef string) error
}

// Notifier publishes bracket state changes to connected clients.
type Notifier interface {
	BracketStarted(ctx context.Context, guildID int64, payload BracketPayload)
	BracketUpdated(ctx context.Context, guildID int64, payload BracketPayload)
	BracketFinished(ctx context.Context, guildID int64, payload BracketPayload)
	BracketReset(ctx context.Context, guildID int64)
}

// BracketPayload is what goes out with every bracket event: the projection
// plus, when rendering succeeded, a public image URL.
type BracketPayload struct {
	TournamentID int     `json:"tournament_id"`
	Projection   any     `json:"projection"`
	ImageURL     *string `json:"image_url,omitempty"`
	Champion     *string `json:"champion,omitempty"`
}
