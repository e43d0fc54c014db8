package database

import (
	"github.com/robalyx/warden/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	server    *models.ServerModel
	channel   *models.ChannelModel
	user      *models.UserModel
	member    *models.MemberModel
	activity  *models.ActivityModel
	teamRater *models.TeamRaterModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		server:    models.NewServer(db, logger),
		channel:   models.NewChannel(db, logger),
		user:      models.NewUser(db, logger),
		member:    models.NewMember(db, logger),
		activity:  models.NewActivity(db, logger),
		teamRater: models.NewTeamRater(db, logger),
	}
}

// Server returns the server model repository.
func (r *Repository) Server() *models.ServerModel {
	return r.server
}

// Channel returns the channel model repository.
func (r *Repository) Channel() *models.ChannelModel {
	return r.channel
}

// User returns the user model repository.
func (r *Repository) User() *models.UserModel {
	return r.user
}

// Member returns the member model repository.
func (r *Repository) Member() *models.MemberModel {
	return r.member
}

// Activity returns the activity model repository.
func (r *Repository) Activity() *models.ActivityModel {
	return r.activity
}

// TeamRater returns the team rater model repository.
func (r *Repository) TeamRater() *models.TeamRaterModel {
	return r.teamRater
}
