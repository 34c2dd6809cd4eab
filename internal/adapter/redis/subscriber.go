package redis

import (
	"context"
	"log/slog"

	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/metrics"
	"github.com/pscheid92/overlayd/internal/platform/correlation"
	goredis "github.com/redis/go-redis/v9"
)

// CommandSubscriber forwards commands from the Redis channel to a local sender.
type CommandSubscriber struct {
	rdb     *goredis.Client
	channel string
	sender  domain.CommandSender
}

// NewCommandSubscriber creates a subscriber. An empty channel uses DefaultChannel.
func NewCommandSubscriber(rdb *goredis.Client, channel string, sender domain.CommandSender) *CommandSubscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	return &CommandSubscriber{rdb: rdb, channel: channel, sender: sender}
}

// Start listens for commands. Blocks until ctx is cancelled.
func (s *CommandSubscriber) Start(ctx context.Context) {
	pubsub := s.rdb.Subscribe(ctx, s.channel)
	defer func() {
		_ = pubsub.Close()
	}()

	// Wait for the subscription to be confirmed so publishers see a receiver.
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() == nil {
			slog.Error("Failed to subscribe to command channel", "channel", s.channel, "error", err)
		}
		return
	}
	slog.Info("Listening for overlay commands", "channel", s.channel)

	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				return
			}
			s.handle(ctx, msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (s *CommandSubscriber) handle(ctx context.Context, payload string) {
	env, cmd, err := decodeEnvelope(payload)
	if err != nil {
		metrics.PubSubMessagesReceived.WithLabelValues(s.channel, "invalid").Inc()
		slog.Warn("Invalid command message", "channel", s.channel, "payload", payload, "error", err)
		return
	}

	if id := correlation.Sanitize(env.CorrelationID); id != "" {
		ctx = correlation.WithID(ctx, id)
	} else {
		ctx, _ = correlation.Ensure(ctx)
	}

	metrics.PubSubMessagesReceived.WithLabelValues(s.channel, "ok").Inc()
	metrics.ControlCommandsReceivedTotal.WithLabelValues("redis", cmd.String()).Inc()

	if err := s.sender.Send(ctx, cmd); err != nil {
		slog.ErrorContext(ctx, "Failed to deliver command", "command", cmd.String(), "envelope_id", env.ID, "error", err)
		return
	}
	slog.DebugContext(ctx, "Command delivered", "command", cmd.String(), "envelope_id", env.ID)
}
