package assist

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agendaplus/practice-backend/internal/plugin"
)

const PluginID = "faq-assist"

const systemPrompt = "You are a front-desk assistant for a professional practice. " +
	"Answer briefly and factually. If the question needs a human, say so."

// Assistant answers routine questions through the inference engine with a
// fingerprint cache in front of it.
type Assistant struct {
	client *Client
	cache  Cache
	log    zerolog.Logger
}

func NewAssistant(client *Client, cache Cache, log zerolog.Logger) *Assistant {
	return &Assistant{
		client: client,
		cache:  cache,
		log:    log.With().Str("component", "assistant").Logger(),
	}
}

// Answer resolves a question, consulting the cache first. Identical
// questions with identical sampling parameters cost one engine call total.
func (a *Assistant) Answer(ctx context.Context, question string) (string, error) {
	req := GenerateRequest{
		Prompt:       question,
		SystemPrompt: systemPrompt,
		MaxTokens:    256,
		Temperature:  0.2,
	}
	key := Fingerprint(req)

	if cached, err := a.cache.Get(ctx, key); err == nil {
		return cached, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		// A broken cache degrades to an engine call, never to a failure.
		a.log.Warn().Err(err).Msg("answer cache unavailable")
	}

	resp, err := a.client.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if err := a.cache.Set(ctx, key, resp.Text); err != nil {
		a.log.Warn().Err(err).Msg("caching answer failed")
	}
	return resp.Text, nil
}

// Summarizer is the built-in observer that pre-generates a short summary for
// booking events, so front-desk staff see a warm answer instead of waiting on
// the engine.
type Summarizer struct {
	assistant *Assistant
}

func NewSummarizer(assistant *Assistant) *Summarizer {
	return &Summarizer{assistant: assistant}
}

func (s *Summarizer) PluginID() string { return PluginID }

func (s *Summarizer) Notify(ctx context.Context, ev plugin.Event) error {
	prompt := fmt.Sprintf(
		"Summarize this appointment change in one sentence for the front desk: "+
			"appointment %s moved from %q to %q, slot %s to %s.",
		ev.AppointmentID, ev.FromStatus, ev.ToStatus,
		ev.StartTime.Format("2006-01-02 15:04"), ev.EndTime.Format("2006-01-02 15:04"),
	)
	if _, err := s.assistant.Answer(ctx, prompt); err != nil {
		return fmt.Errorf("warm appointment summary failed: %w", err)
	}
	return nil
}
