package main

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/homecare/internal/config"
	"github.com/ehr/homecare/internal/domain/coordination"
	"github.com/ehr/homecare/internal/domain/draft"
	"github.com/ehr/homecare/internal/platform/db"
	"github.com/ehr/homecare/internal/platform/middleware"
	"github.com/ehr/homecare/internal/platform/report"
	"github.com/ehr/homecare/internal/platform/websocket"
)

type healthCheck = db.Check

type serverDeps struct {
	store     *coordination.Store
	drafts    *draft.Service
	autosaver *draft.Autosaver
	hub       *websocket.Hub
	checks    []healthCheck
}

func newServer(cfg *config.Config, logger zerolog.Logger, deps serverDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Logger wraps Recovery so recovered panics are logged as 500s
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderAccept, middleware.RequestIDHeader},
		ExposeHeaders: []string{echo.HeaderContentDisposition, middleware.RequestIDHeader},
	}))

	api := e.Group("/api/v1")
	coordination.NewHandler(deps.store, logger).RegisterRoutes(api)
	draft.NewHandler(deps.drafts, deps.autosaver, cfg.DraftMaxAge).RegisterRoutes(api)
	report.NewHandler(deps.store).RegisterRoutes(api)

	websocket.NewHandler(deps.hub, cfg.CORSOrigins).RegisterRoutes(e)

	e.GET("/health", db.HealthHandler(deps.checks...))
	return e
}

func storeCheck(store *coordination.Store) healthCheck {
	return healthCheck{
		Name: "store",
		Ping: func(context.Context) error {
			if store.State().Loading {
				return errors.New("roster not loaded")
			}
			return nil
		},
		Details: func() any {
			st := store.State()
			return map[string]any{
				"patients":    len(st.Patients),
				"visits":      len(st.Visits),
				"loadWarning": st.LoadWarning,
			}
		},
	}
}
