package commands

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/warden/internal/bot/constants"
	"github.com/robalyx/warden/internal/bot/core/command"
	"github.com/robalyx/warden/internal/bot/modlog"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/discord/platform"
	"github.com/robalyx/warden/pkg/utils"
	"go.uber.org/zap"
)

// boostPollDelay is the wait before the first boost poll after startup.
const boostPollDelay = 5 * time.Second

// boostersCommand lists the server's current boosters.
type boostersCommand struct{}

func boostersDefinition() *command.Definition {
	return &command.Definition{
		Name: "boosters",
		Help: doc{
			usage: "boosters",
			desc: "List this server's current Nitro Boosters and when they started boosting. " +
				"Results may be out of date by up to 24 hours.",
			requires: "MANAGE_ROLES",
		}.help(),
		New: func() command.Command { return boostersCommand{} },
		Init: func(ctx context.Context, deps *command.Deps) error {
			logger := deps.Logger.Named("boosts")

			go utils.RunDaily(ctx, logger, constants.BoostPollJob, boostPollDelay, func(ctx context.Context) error {
				return UpdateBoosters(ctx, deps.Store, deps.Platform, logger)
			})

			return nil
		},
	}
}

func (boostersCommand) Execute(ctx context.Context, c *command.Context) error {
	if ok, err := guildCommand(ctx, c, "MANAGE_ROLES", constants.AccessDenied); !ok {
		return err
	}

	boosters, err := c.Store.Members().ListBoosters(ctx, uint64(c.Guild.ID))
	if err != nil {
		return err
	}

	embed := discord.NewEmbedBuilder().
		SetColor(constants.BoosterEmbedColor).
		SetDescription("Current Nitro Boosters").
		SetAuthor(c.Guild.Name, "", "").
		SetFooterText("Server ID: " + c.Guild.ID.String()).
		SetTimestamp(c.Clock())

	for _, booster := range boosters[:min(len(boosters), constants.BoostersPerPage)] {
		embed.AddField(
			booster.Name+"#"+booster.Discriminator,
			"Since "+booster.Boosting.UTC().Format("Mon, 02 Jan 2006"),
			false,
		)
	}

	if len(boosters) == 0 {
		embed.AddField("No Boosters", "Try this command again once you have a nitro booster.", false)
	}

	return c.SendEmbed(ctx, embed.Build())
}

// UpdateBoosters compares every guild's members with the stored boost state,
// records changes and announces them in the log channel.
func UpdateBoosters(ctx context.Context, store database.Store, client platform.Client, logger *zap.Logger) error {
	for _, guild := range client.Guilds() {
		if err := updateGuildBoosters(ctx, store, client, logger, guild); err != nil {
			return fmt.Errorf("guild %d: %w", guild.ID, err)
		}
	}
	return nil
}

func updateGuildBoosters(
	ctx context.Context, store database.Store, client platform.Client, logger *zap.Logger, guild platform.Guild,
) error {
	serverID := uint64(guild.ID)
	members := store.Members()

	boostingIDs, err := members.ListBoostingIDs(ctx, serverID)
	if err != nil {
		return err
	}

	current, err := client.Members(ctx, guild.ID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}

	announce := func(text string) {
		if _, err := modlog.Text(ctx, store, client, guild.ID, text); err != nil {
			logger.Warn("Failed to announce boost change",
				zap.Uint64("guildID", serverID),
				zap.Error(err))
		}
	}

	for _, member := range current {
		userID := uint64(member.User.ID)
		wasBoosting := slices.Contains(boostingIDs, userID)
		boostingIDs = slices.DeleteFunc(boostingIDs, func(id uint64) bool { return id == userID })

		switch {
		case member.PremiumSince != nil && !wasBoosting:
			if err := startBoosting(ctx, store, serverID, member); err != nil {
				return err
			}
			announce(fmt.Sprintf("<@%d> has started boosting!", userID))

		case member.PremiumSince == nil && wasBoosting:
			if err := members.SetBoosting(ctx, serverID, userID, nil); err != nil {
				return err
			}
			announce(fmt.Sprintf("<@%d> is no longer boosting.", userID))
		}
	}

	// Anyone left has left the server
	for _, userID := range boostingIDs {
		if err := members.SetBoosting(ctx, serverID, userID, nil); err != nil {
			return err
		}
		announce(fmt.Sprintf("<@%d> is no longer boosting because they left the server.", userID))
	}

	return nil
}

// startBoosting records a new booster, creating their rows when missing.
func startBoosting(ctx context.Context, store database.Store, serverID uint64, member platform.Member) error {
	userID := uint64(member.User.ID)

	err := store.Users().CreateUser(ctx, &types.User{
		UserID:        userID,
		Name:          member.User.Username,
		Discriminator: member.User.Discriminator,
	})
	if err != nil {
		return err
	}

	err = store.Members().CreateMember(ctx, &types.Member{
		ServerID: serverID,
		UserID:   userID,
		Boosting: member.PremiumSince,
	})
	if err != nil {
		return err
	}

	return store.Members().SetBoosting(ctx, serverID, userID, member.PremiumSince)
}
