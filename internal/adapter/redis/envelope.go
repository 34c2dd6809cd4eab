package redis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/overlayd/internal/domain"
)

// DefaultChannel is the pub/sub channel commands are published on.
const DefaultChannel = "overlay:commands"

// envelope is the wire format of one command. ID identifies the delivery for logging only;
// commands are idempotent on the receiving side, so redelivery is harmless.
type envelope struct {
	ID            string    `json:"id"`
	Command       string    `json:"command"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	SentAt        time.Time `json:"sent_at"`
}

func newEnvelope(cmd domain.Command, correlationID string, now time.Time) envelope {
	return envelope{
		ID:            uuid.NewString(),
		Command:       cmd.String(),
		CorrelationID: correlationID,
		SentAt:        now.UTC(),
	}
}

func decodeEnvelope(payload string) (envelope, domain.Command, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return envelope{}, 0, fmt.Errorf("decode command envelope: %w", err)
	}
	cmd, err := domain.ParseCommand(env.Command)
	if err != nil {
		return env, 0, err
	}
	return env, cmd, nil
}
