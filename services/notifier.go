package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/strayworks/bracketbot/brackets"
	"github.com/strayworks/bracketbot/storage"
)

// hubNotifier pushes bracket events to websocket rooms. Rooms are keyed by
// guild id.
type hubNotifier struct {
	hub    *brackets.Hub
	logger *slog.Logger
}

func NewHubNotifier(hub *brackets.Hub, logger *slog.Logger) Notifier {
	return &hubNotifier{hub: hub, logger: logger}
}

func roomID(guildID int64) string {
	return fmt.Sprintf("guild:%d", guildID)
}

func (n *hubNotifier) BracketStarted(ctx context.Context, guildID int64, payload BracketPayload) {
	n.hub.BroadcastToRoom(roomID(guildID), brackets.Event{Type: brackets.EventBracketStarted, Payload: payload})
}

func (n *hubNotifier) BracketUpdated(ctx context.Context, guildID int64, payload BracketPayload) {
	n.hub.BroadcastToRoom(roomID(guildID), brackets.Event{Type: brackets.EventBracketUpdated, Payload: payload})
}

func (n *hubNotifier) BracketFinished(ctx context.Context, guildID int64, payload BracketPayload) {
	n.hub.BroadcastToRoom(roomID(guildID), brackets.Event{Type: brackets.EventBracketFinished, Payload: payload})
}

func (n *hubNotifier) BracketReset(ctx context.Context, guildID int64) {
	n.hub.BroadcastToRoom(roomID(guildID), brackets.Event{Type: brackets.EventBracketReset, Payload: nil})
	n.hub.CloseRoom(roomID(guildID))
}

// ImageStore publishes rendered bracket PNGs and returns their public URL.
type ImageStore interface {
	PublishBracketImage(ctx context.Context, tournamentID int, png []byte) (string, error)
}

// r2ImageStore uploads bracket images under uuid-versioned keys so every
// bracket state gets its own immutable URL and caches never serve a stale
// image.
type r2ImageStore struct {
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewR2ImageStore(uploader storage.FileUploader, logger *slog.Logger) ImageStore {
	return &r2ImageStore{uploader: uploader, logger: logger}
}

func (s *r2ImageStore) PublishBracketImage(ctx context.Context, tournamentID int, png []byte) (string, error) {
	key := fmt.Sprintf("brackets/%d/%s.png", tournamentID, uuid.NewString())

	result, err := s.uploader.Upload(ctx, key, "image/png", bytes.NewReader(png))
	if err != nil {
		return "", fmt.Errorf("failed to publish bracket image: %w", err)
	}
	s.logger.Debug("bracket image published", "tournament_id", tournamentID, "key", key)
	return result.Location, nil
}
