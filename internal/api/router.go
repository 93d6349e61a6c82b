package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agendaplus/practice-backend/internal/appointment"
	apptHttp "github.com/agendaplus/practice-backend/internal/appointment/http"
	"github.com/agendaplus/practice-backend/internal/auth"
	"github.com/agendaplus/practice-backend/internal/availability"
	avHttp "github.com/agendaplus/practice-backend/internal/availability/http"
	"github.com/agendaplus/practice-backend/internal/metrics"
	"github.com/agendaplus/practice-backend/internal/plugin"
	pluginHttp "github.com/agendaplus/practice-backend/internal/plugin/http"
	"github.com/agendaplus/practice-backend/internal/resource"
	resHttp "github.com/agendaplus/practice-backend/internal/resource/http"
)

// Config lists the services the router exposes.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	AppointmentService  appointment.Service
	ResourceService     resource.Service
	AvailabilityService availability.Service
	PluginService       plugin.Service
	JWTManager          *auth.JWTManager
}

// NewRouter assembles middleware (CORS, logging, metrics, auth) and
// registers routes for each module under /v1.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), metrics.GinMiddleware())

	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.ProdOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	apptHandler := apptHttp.NewHandler(cfg.AppointmentService)
	resHandler := resHttp.NewHandler(cfg.ResourceService)
	avHandler := avHttp.NewHandler(cfg.AvailabilityService)
	pluginHandler := pluginHttp.NewHandler(cfg.PluginService)

	v1 := r.Group("/v1")
	{
		apptHttp.RegisterRoutes(v1, apptHandler, authMiddleware)
		resHttp.RegisterRoutes(v1, resHandler, authMiddleware)
		avHttp.RegisterRoutes(v1, avHandler, authMiddleware)
		pluginHttp.RegisterRoutes(v1, pluginHandler, authMiddleware)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	return r
}
