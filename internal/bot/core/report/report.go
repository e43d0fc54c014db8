package report

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/discord/platform"
	"github.com/robalyx/warden/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Interval is the minimum time between two reports sent to the error channel.
const Interval = time.Minute

// maxMessageLength is the platform limit for message content.
const maxMessageLength = 2000

// ErrPanic wraps values recovered from panicking handlers.
var ErrPanic = errors.New("panic")

// Reporter logs every error and forwards them to an operator channel, throttled.
type Reporter struct {
	platform  platform.Client
	channelID snowflake.ID
	limiter   *rate.Limiter
	logger    *zap.Logger

	// sending serializes the check, send and token spend of channel reports
	sending sync.Mutex
}

// New creates a reporter. A zero channelID disables channel reports.
func New(client platform.Client, channelID snowflake.ID, logger *zap.Logger) *Reporter {
	return &Reporter{
		platform:  client,
		channelID: channelID,
		limiter:   rate.NewLimiter(rate.Every(Interval), 1),
		logger:    logger.Named("report"),
	}
}

// Report logs err and, at most once per Interval, posts it to the error channel.
func (r *Reporter) Report(ctx context.Context, detail string, err error) {
	if err == nil {
		r.logger.Error("Error with no details thrown", zap.String("detail", detail))
		return
	}

	r.logger.Error("Reported error", zap.String("detail", detail), zap.Error(err))

	if r.platform == nil || r.channelID == 0 {
		return
	}

	r.sending.Lock()
	defer r.sending.Unlock()

	// The interval only restarts once a report actually reached the channel
	if r.limiter.Tokens() < 1 {
		return
	}

	text := utils.Truncate(strings.TrimSpace(detail+" "+err.Error()), maxMessageLength)
	if sendErr := r.platform.Send(ctx, r.channelID, discord.MessageCreate{Content: text}); sendErr != nil {
		r.logger.Error("Failed to send error report", zap.Error(sendErr))
		return
	}
	r.limiter.Allow()
}

// Recovered converts a recovered panic value into an error carrying the stack.
func Recovered(recovered any) error {
	if err, ok := recovered.(error); ok {
		return fmt.Errorf("%w: %w\n%s", ErrPanic, err, debug.Stack())
	}
	return fmt.Errorf("%w: %v\n%s", ErrPanic, recovered, debug.Stack())
}
