// Package events reacts to gateway events other than messages: the moderation
// log, member lifecycle and role deletion.
package events

import (
	"github.com/robalyx/warden/internal/bot/core/verify"
	"github.com/robalyx/warden/internal/bot/sticky"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/discord/platform"
	"go.uber.org/zap"
)

// Handler handles guild events.
type Handler struct {
	store    database.Store
	platform platform.Client
	verifier *verify.Cache
	sticky   *sticky.Protocol
	logger   *zap.Logger
}

// NewHandler creates a new instance of the event handler.
func NewHandler(
	store database.Store, client platform.Client, verifier *verify.Cache, protocol *sticky.Protocol, logger *zap.Logger,
) *Handler {
	return &Handler{
		store:    store,
		platform: client,
		verifier: verifier,
		sticky:   protocol,
		logger:   logger.Named("events"),
	}
}
