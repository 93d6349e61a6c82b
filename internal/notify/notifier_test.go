package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendaplus/practice-backend/internal/plugin"
)

type captureProvider struct {
	mu   sync.Mutex
	sent []Message
	fail bool
}

func (p *captureProvider) Name() string { return "capture" }

func (p *captureProvider) Send(ctx context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("channel down")
	}
	p.sent = append(p.sent, msg)
	return nil
}

func (p *captureProvider) messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.sent...)
}

func event(t plugin.EventType, reason string) plugin.Event {
	return plugin.Event{
		ID:            "ev-1",
		Type:          t,
		TenantID:      "t1",
		AppointmentID: "a1",
		ClientID:      "c1",
		Reason:        reason,
		StartTime:     time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNotifierRendersPerEventType(t *testing.T) {
	provider := &captureProvider{}
	n := NewNotifier(provider, zerolog.Nop())

	require.NoError(t, n.Notify(context.Background(), event(plugin.EventConfirmed, "")))
	require.NoError(t, n.Notify(context.Background(), event(plugin.EventCancelled, "clinic closed")))

	msgs := provider.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Appointment confirmed", msgs[0].Subject)
	assert.Equal(t, "c1", msgs[0].Recipient)
	assert.Contains(t, msgs[0].Body, "Tue, 01 Sep 2026 09:00")
	assert.Equal(t, "Missed appointment", subjects[plugin.EventNoShow])
	assert.Contains(t, msgs[1].Body, "clinic closed")
}

func TestNotifierSkipsEventsWithoutTemplate(t *testing.T) {
	provider := &captureProvider{}
	n := NewNotifier(provider, zerolog.Nop())

	require.NoError(t, n.Notify(context.Background(), event(plugin.EventStarted, "")))
	assert.Empty(t, provider.messages())
}

func TestNotifierPropagatesProviderFailure(t *testing.T) {
	provider := &captureProvider{fail: true}
	n := NewNotifier(provider, zerolog.Nop())

	err := n.Notify(context.Background(), event(plugin.EventConfirmed, ""))
	assert.Error(t, err)
}
