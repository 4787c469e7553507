package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/rapidcare/rapidcare/internal/config"
	"github.com/rapidcare/rapidcare/internal/domain/account"
	"github.com/rapidcare/rapidcare/internal/domain/ambulance"
	"github.com/rapidcare/rapidcare/internal/domain/announcement"
	"github.com/rapidcare/rapidcare/internal/domain/bed"
	"github.com/rapidcare/rapidcare/internal/domain/bloodbank"
	"github.com/rapidcare/rapidcare/internal/domain/doctor"
	"github.com/rapidcare/rapidcare/internal/domain/emergency"
	"github.com/rapidcare/rapidcare/internal/domain/hospital"
	"github.com/rapidcare/rapidcare/internal/domain/reset"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/db"
	"github.com/rapidcare/rapidcare/internal/platform/middleware"
	"github.com/rapidcare/rapidcare/internal/platform/realtime"
)

const version = "1.0.0"

// app holds the realtime core and the services built over one store.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *store
	jwt    auth.JWTConfig

	broadcaster *realtime.Broadcaster
	manager     *realtime.Manager
	relay       *realtime.RedisRelay

	announcements *announcement.Service
}

func newApp(cfg *config.Config, logger zerolog.Logger, st *store, key []byte) *app {
	broadcaster := realtime.NewBroadcaster(realtime.NewRegistry(), logger)
	manager := realtime.NewManager(broadcaster, logger, realtime.Options{
		SendBuffer:   cfg.WSSendBuffer,
		WriteTimeout: cfg.WSWriteTimeout,
	})
	return &app{
		cfg:         cfg,
		logger:      logger,
		store:       st,
		jwt:         jwtConfig(key),
		broadcaster: broadcaster,
		manager:     manager,
	}
}

// useRelay routes every emission, server and client originated, through
// relay so that other instances deliver it too.
func (a *app) useRelay(relay *realtime.RedisRelay) {
	a.relay = relay
	a.manager.SetPublisher(relay)
}

func (a *app) publisher() realtime.Publisher {
	if a.relay != nil {
		return a.relay
	}
	return a.broadcaster
}

// server builds the HTTP server with every route mounted.
func (a *app) server() *echo.Echo {
	cfg := a.cfg
	backend := a.store.backend
	events := a.publisher()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(a.logger)

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	public := e.Group("/api", middleware.RateLimit(rateLimitCfg))
	var api *echo.Group
	if cfg.IsDev() {
		api = public.Group("", auth.DevAuthMiddleware(a.jwt))
	} else {
		api = public.Group("", auth.OptionalJWTMiddleware(a.jwt))
	}

	hospitals := hospital.NewRepository(backend)
	doctors := doctor.NewDoctorRepository(backend)
	ambulances := ambulance.NewRepository(backend)
	emts := ambulance.NewEMTRepository(backend)
	drivers := ambulance.NewDriverRepository(backend)

	hospital.NewHandler(hospital.NewService(hospitals, events)).RegisterRoutes(api)
	bed.NewHandler(bed.NewService(bed.NewRepository(backend), events)).RegisterRoutes(api)

	doctorSvc := doctor.NewService(doctors, doctor.NewAttendanceRepository(backend),
		doctor.NewLeaveRepository(backend), hospitals, events)
	doctorSvc.SetGeofenceRadius(cfg.GeofenceRadiusMeters)
	doctor.NewHandler(doctorSvc).RegisterRoutes(api)

	ambulanceSvc := ambulance.NewService(ambulances, emts, drivers, events)
	ambulanceSvc.SetSpeed(cfg.AmbulanceSpeedKmh)
	ambulance.NewHandler(ambulanceSvc).RegisterRoutes(api)

	emergencySvc := emergency.NewService(emergency.NewRepository(backend), hospitals, ambulances, events)
	emergencySvc.SetSpeed(cfg.AmbulanceSpeedKmh)
	emergency.NewHandler(emergencySvc).RegisterRoutes(api)

	bloodSvc := bloodbank.NewService(bloodbank.NewRepository(backend), events)
	bloodSvc.SetThresholds(cfg.LowStockThreshold, cfg.CriticalStockThreshold)
	bloodbank.NewHandler(bloodSvc).RegisterRoutes(api)

	a.announcements = announcement.NewService(announcement.NewRepository(backend), events)
	announcement.NewHandler(a.announcements).RegisterRoutes(api)

	reset.NewHandler(reset.NewService(backend, events, a.logger)).RegisterRoutes(api)

	accounts := account.NewService(account.Repositories{
		Hospitals:  hospitals,
		Doctors:    doctors,
		Ambulances: ambulances,
		EMTs:       emts,
		Drivers:    drivers,
	}, auth.NewIssuer(a.jwt, cfg.JWTTTL), a.logger)
	account.NewHandler(accounts).RegisterRoutes(public, api)

	a.manager.RegisterRoutes(e)
	e.GET("/health", a.health)

	return e
}

func (a *app) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	code := http.StatusOK
	body := echo.Map{
		"status":      "ok",
		"version":     version,
		"store":       a.store.backend.Name(),
		"connections": a.broadcaster.ConnectionCount(),
		"rooms":       a.broadcaster.Registry().ScopeCount(),
		"relay":       a.relay != nil,
	}
	if err := a.store.backend.Ping(ctx); err != nil {
		code = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["error"] = err.Error()
	}
	if a.store.pool != nil {
		body["pool"] = db.GetPoolStats(a.store.pool)
	}
	return c.JSON(code, body)
}

// purgeAnnouncements removes expired announcements every interval until ctx
// is done.
func (a *app) purgeAnnouncements(ctx context.Context, interval time.Duration) {
	if a.announcements == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.announcements.PurgeExpired(ctx)
			if err != nil {
				a.logger.Warn().Err(err).Msg("announcement purge failed")
				continue
			}
			if n > 0 {
				a.logger.Info().Int("removed", n).Msg("purged expired announcements")
			}
		}
	}
}
