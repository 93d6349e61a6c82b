package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/agendaplus/practice-backend/internal/api"
	"github.com/agendaplus/practice-backend/internal/appointment"
	"github.com/agendaplus/practice-backend/internal/assist"
	"github.com/agendaplus/practice-backend/internal/auth"
	"github.com/agendaplus/practice-backend/internal/availability"
	"github.com/agendaplus/practice-backend/internal/config"
	"github.com/agendaplus/practice-backend/internal/notify"
	"github.com/agendaplus/practice-backend/internal/outbox"
	"github.com/agendaplus/practice-backend/internal/plugin"
	"github.com/agendaplus/practice-backend/internal/resource"
)

// Container holds the initialized components the entrypoint runs or shuts down.
type Container struct {
	Router     *gin.Engine
	Dispatcher *outbox.Dispatcher
	Reminder   *notify.Reminder
	JWTManager *auth.JWTManager
}

// NewContainer initializes all modules and returns the container.
func NewContainer(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, log zerolog.Logger) (*Container, error) {
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTokenTTL)

	// Plugin runtime. Built-in plugins are handed in through the catalog;
	// registrations bind them per tenant or globally.
	registry := plugin.NewRegistry(cfg.GuardTimeout, log)

	// Notify plugin
	provider := notify.NewLogProvider(log)
	notifier := notify.NewNotifier(provider, log)

	// Assist plugin. Redis is optional; the cache degrades to in-process.
	var cache assist.Cache
	if cfg.RedisAddr != "" {
		cache = assist.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), 0)
	} else {
		cache = assist.NewMemoryCache()
	}
	assistant := assist.NewAssistant(assist.NewClient(cfg.AssistBaseURL, cfg.AssistTimeout), cache, log)
	summarizer := assist.NewSummarizer(assistant)

	catalog := plugin.Catalog{
		notify.PluginID: notifier,
		assist.PluginID: summarizer,
	}

	pluginRepo := plugin.NewPgxRepository(pool)
	pluginService := plugin.NewService(registry, pluginRepo, catalog, log)
	if err := pluginService.Restore(ctx); err != nil {
		return nil, err
	}

	// Event pipeline
	eventStore := outbox.NewPgxStore(pool)
	dispatcher := outbox.NewDispatcher(eventStore, registry, outbox.DispatcherConfig{
		PollInterval: cfg.OutboxPollInterval,
		Workers:      cfg.OutboxWorkers,
	}, log)

	// Resource module
	resRepo := resource.NewPgxRepository(pool)
	resService := resource.NewService(resRepo)

	// Availability module
	avRepo := availability.NewPgxRepository(pool)
	avService := availability.NewService(avRepo, resService)

	// Appointment module (scheduling engine)
	apptRepo := appointment.NewPgxRepository(pool)
	apptService := appointment.NewService(apptRepo, resService, avService, registry, eventStore, appointment.Config{
		StartGraceWindow: cfg.StartGraceWindow,
		StaleRetryMax:    cfg.StaleRetryMax,
	}, log)

	// Reminder sweep
	reminder := notify.NewReminder(apptRepo, provider, notify.ReminderConfig{
		Spec: cfg.ReminderCron,
		Lead: cfg.ReminderLead,
	}, log)

	router := api.NewRouter(api.Config{
		IsProduction:        cfg.IsProduction,
		ProdOrigins:         cfg.ProdOrigins,
		AppointmentService:  apptService,
		ResourceService:     resService,
		AvailabilityService: avService,
		PluginService:       pluginService,
		JWTManager:          jwtManager,
	})

	return &Container{
		Router:     router,
		Dispatcher: dispatcher,
		Reminder:   reminder,
		JWTManager: jwtManager,
	}, nil
}
