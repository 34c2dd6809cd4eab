package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/platform/correlation"
	goredis "github.com/redis/go-redis/v9"
)

// ErrNoSubscriber is returned when a command was published but no daemon was listening.
var ErrNoSubscriber = errors.New("no overlay daemon subscribed")

// CommandPublisher implements domain.CommandSender over Redis pub/sub.
type CommandPublisher struct {
	rdb     *goredis.Client
	channel string
	clock   clockwork.Clock
}

// NewCommandPublisher creates a publisher. An empty channel uses DefaultChannel.
func NewCommandPublisher(rdb *goredis.Client, channel string, clock clockwork.Clock) *CommandPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &CommandPublisher{rdb: rdb, channel: channel, clock: clock}
}

// Send publishes cmd. It fails with ErrNoSubscriber when nobody received the message.
func (p *CommandPublisher) Send(ctx context.Context, cmd domain.Command) error {
	corrID, _ := correlation.ID(ctx)
	env := newEnvelope(cmd, corrID, p.clock.Now())

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode command envelope: %w", err)
	}

	receivers, err := p.rdb.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish %s command: %w", cmd, err)
	}
	if receivers == 0 {
		return fmt.Errorf("%s command on %s: %w", cmd, p.channel, ErrNoSubscriber)
	}

	slog.DebugContext(ctx, "Command published", "command", cmd.String(), "envelope_id", env.ID, "receivers", receivers)
	return nil
}
