package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	TenantID  string
	Recipient string
	Subject   string
	Body      string
}

// Provider delivers rendered messages over one channel (email, SMS, push).
// Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// LogProvider writes notifications to the log instead of an external
// channel. It is the default provider for development and tests.
type LogProvider struct {
	log zerolog.Logger
}

func NewLogProvider(log zerolog.Logger) *LogProvider {
	return &LogProvider{log: log.With().Str("component", "notify_log_provider").Logger()}
}

func (p *LogProvider) Name() string { return "log" }

func (p *LogProvider) Send(ctx context.Context, msg Message) error {
	p.log.Info().
		Str("tenant", msg.TenantID).
		Str("recipient", msg.Recipient).
		Str("subject", msg.Subject).
		Msg(msg.Body)
	return nil
}
