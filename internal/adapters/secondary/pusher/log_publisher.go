package pusher

import (
	"context"
	"log/slog"

	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

// LogPublisher stands in for Pusher when no credentials are configured. It
// logs what would have been pushed; clients still get every change through
// the pollers.
type LogPublisher struct {
	logger *slog.Logger
}

var (
	_ ports.Publisher         = (*LogPublisher)(nil)
	_ ports.ChannelAuthorizer = (*LogPublisher)(nil)
)

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "push_log")}
}

func (p *LogPublisher) Publish(ctx context.Context, channel string, event domain.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "push disabled, event not sent",
		"channel", channel,
		"event", event.Type,
	)
	return nil
}

// AuthorizeChannel always fails: there is no push service to subscribe to.
func (p *LogPublisher) AuthorizeChannel([]byte) ([]byte, error) {
	return nil, apperrors.ErrPushNotConfigured
}
