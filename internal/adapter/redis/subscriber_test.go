package redis

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/platform/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedSend struct {
	cmd           domain.Command
	correlationID string
}

type captureSender struct {
	mu    sync.Mutex
	sends []capturedSend
}

func (s *captureSender) Send(ctx context.Context, cmd domain.Command) error {
	id, _ := correlation.ID(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, capturedSend{cmd: cmd, correlationID: id})
	return nil
}

func (s *captureSender) all() []capturedSend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]capturedSend(nil), s.sends...)
}

func TestEnvelope_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := newEnvelope(domain.CommandHide, "abcd1234", now)

	payload, err := json.Marshal(env)
	require.NoError(t, err)

	got, cmd, err := decodeEnvelope(string(payload))
	require.NoError(t, err)
	assert.Equal(t, domain.CommandHide, cmd)
	assert.Equal(t, env.ID, got.ID)
	assert.Equal(t, "abcd1234", got.CorrelationID)
	assert.True(t, now.Equal(got.SentAt))
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	_, _, err := decodeEnvelope("not json")
	assert.Error(t, err)

	_, _, err = decodeEnvelope(`{"id":"1","command":"blink"}`)
	assert.ErrorIs(t, err, domain.ErrUnknownCommand)
}

func TestSubscriber_HandleForwardsCommand(t *testing.T) {
	sender := &captureSender{}
	sub := NewCommandSubscriber(nil, "", sender)

	sub.handle(context.Background(), `{"id":"1","command":"SHOW","correlation_id":"feedbeef"}`)
	sub.handle(context.Background(), `{"id":"2","command":"nope"}`)
	sub.handle(context.Background(), `{"id":"3","command":"hide"}`)

	sends := sender.all()
	require.Len(t, sends, 2)
	assert.Equal(t, capturedSend{cmd: domain.CommandShow, correlationID: "feedbeef"}, sends[0])
	assert.Equal(t, domain.CommandHide, sends[1].cmd)
	assert.NotEmpty(t, sends[1].correlationID, "missing ids are minted")
	assert.Equal(t, DefaultChannel, sub.channel)
}

func TestSubscriber_HandleReplacesUnsafeCorrelationID(t *testing.T) {
	sender := &captureSender{}
	sub := NewCommandSubscriber(nil, "", sender)

	payload, err := json.Marshal(envelope{ID: "1", Command: "show", CorrelationID: "abc\nlevel=ERROR msg=forged"})
	require.NoError(t, err)
	sub.handle(context.Background(), string(payload))

	sends := sender.all()
	require.Len(t, sends, 1)
	assert.NotEqual(t, "abc\nlevel=ERROR msg=forged", sends[0].correlationID)
	assert.Equal(t, sends[0].correlationID, correlation.Sanitize(sends[0].correlationID))
}
