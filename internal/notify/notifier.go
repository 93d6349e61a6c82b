// Package notify turns scheduling events into client-facing messages. It
// consumes the same observer boundary as any external plugin: the scheduling
// engine knows nothing about notification channels or templates.
package notify

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/agendaplus/practice-backend/internal/plugin"
)

const PluginID = "notifier"

var templates = map[plugin.EventType]*template.Template{
	plugin.EventRequested: parse("requested",
		"Your appointment on {{.StartTime.Format \"Mon, 02 Jan 2006 15:04\"}} was received and is awaiting confirmation."),
	plugin.EventConfirmed: parse("confirmed",
		"Your appointment on {{.StartTime.Format \"Mon, 02 Jan 2006 15:04\"}} is confirmed."),
	plugin.EventRescheduled: parse("rescheduled",
		"Your appointment was moved to {{.StartTime.Format \"Mon, 02 Jan 2006 15:04\"}} and awaits confirmation."),
	plugin.EventCancelled: parse("cancelled",
		"Your appointment on {{.StartTime.Format \"Mon, 02 Jan 2006 15:04\"}} was cancelled{{if .Reason}}: {{.Reason}}{{end}}."),
	plugin.EventCompleted: parse("completed",
		"Thanks for your visit. Your appointment on {{.StartTime.Format \"Mon, 02 Jan 2006\"}} is complete."),
	plugin.EventNoShow: parse("no_show",
		"You missed your appointment on {{.StartTime.Format \"Mon, 02 Jan 2006 15:04\"}}. Please contact the practice to rebook."),
}

var subjects = map[plugin.EventType]string{
	plugin.EventRequested:   "Appointment received",
	plugin.EventConfirmed:   "Appointment confirmed",
	plugin.EventRescheduled: "Appointment rescheduled",
	plugin.EventCancelled:   "Appointment cancelled",
	plugin.EventCompleted:   "Appointment completed",
	plugin.EventNoShow:      "Missed appointment",
}

func parse(name, text string) *template.Template {
	return template.Must(template.New(name).Parse(text))
}

// Notifier is the built-in observer that sends a message to the client for
// every transition it is subscribed to.
type Notifier struct {
	provider Provider
	log      zerolog.Logger
}

func NewNotifier(provider Provider, log zerolog.Logger) *Notifier {
	return &Notifier{
		provider: provider,
		log:      log.With().Str("component", "notifier").Logger(),
	}
}

func (n *Notifier) PluginID() string { return PluginID }

func (n *Notifier) Notify(ctx context.Context, ev plugin.Event) error {
	tmpl, ok := templates[ev.Type]
	if !ok {
		// EventStarted and future types have no client-facing message.
		return nil
	}

	var body strings.Builder
	if err := tmpl.Execute(&body, ev); err != nil {
		return fmt.Errorf("render %s notification failed: %w", ev.Type, err)
	}

	msg := Message{
		TenantID:  ev.TenantID,
		Recipient: ev.ClientID,
		Subject:   subjects[ev.Type],
		Body:      body.String(),
	}
	if err := n.provider.Send(ctx, msg); err != nil {
		return fmt.Errorf("send via %s failed: %w", n.provider.Name(), err)
	}

	n.log.Debug().Str("event", ev.ID).Str("type", string(ev.Type)).
		Str("recipient", ev.ClientID).Msg("notification sent")
	return nil
}
