// Package pusher adapts the Pusher Channels HTTP API to the Publisher and
// ChannelAuthorizer ports.
package pusher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	pushersdk "github.com/pusher/pusher-http-go/v5"
	"github.com/trackitco/support-dashboard/internal/config"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	"github.com/trackitco/support-dashboard/internal/core/ports"
	"github.com/trackitco/support-dashboard/internal/infrastructure/metrics"
)

const requestTimeout = 5 * time.Second

// client is the subset of the Pusher SDK the publisher uses.
type client interface {
	Trigger(channel string, eventName string, data interface{}) error
	AuthorizePrivateChannel(params []byte) ([]byte, error)
}

// Publisher triggers dashboard events on private Pusher channels.
type Publisher struct {
	client client
	logger *slog.Logger
}

var (
	_ ports.Publisher         = (*Publisher)(nil)
	_ ports.ChannelAuthorizer = (*Publisher)(nil)
)

// NewPublisher builds a TLS client for the configured cluster.
func NewPublisher(cfg config.PusherConfig, logger *slog.Logger) *Publisher {
	return NewPublisherWithClient(&pushersdk.Client{
		AppID:      cfg.AppID,
		Key:        cfg.Key,
		Secret:     cfg.Secret,
		Cluster:    cfg.Cluster,
		Secure:     true,
		HTTPClient: &http.Client{Timeout: requestTimeout},
	}, logger)
}

// NewPublisherWithClient wraps an already configured SDK client.
func NewPublisherWithClient(c *pushersdk.Client, logger *slog.Logger) *Publisher {
	return &Publisher{client: c, logger: logger.With("component", "pusher")}
}

// Publish triggers event on channel. The event type is the Pusher event
// name; its payload (or error text) is the data.
func (p *Publisher) Publish(ctx context.Context, channel string, event domain.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var data any = event.Data
	if event.Type == domain.EventError {
		data = map[string]string{"error": event.Error}
	}

	err := p.client.Trigger(channel, string(event.Type), data)
	metrics.RecordPushPublish(err)
	if err != nil {
		return fmt.Errorf("trigger %s on %s: %w", event.Type, channel, err)
	}
	p.logger.DebugContext(ctx, "event pushed", "channel", channel, "event", event.Type)
	return nil
}

// AuthorizeChannel signs a private channel subscription. params is the
// form-encoded body (socket_id, channel_name) sent by the Pusher client.
func (p *Publisher) AuthorizeChannel(params []byte) ([]byte, error) {
	resp, err := p.client.AuthorizePrivateChannel(params)
	if err != nil {
		return nil, fmt.Errorf("authorize channel: %w", err)
	}
	return resp, nil
}
