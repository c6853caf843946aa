package draft

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/homecare/internal/domain/roster"
)

type Handler struct {
	svc       *Service
	autosaver *Autosaver
	maxAge    time.Duration
}

// NewHandler serves drafts. autosaver may be nil, in which case debounced
// writes are saved immediately.
func NewHandler(svc *Service, autosaver *Autosaver, maxAge time.Duration) *Handler {
	return &Handler{svc: svc, autosaver: autosaver, maxAge: maxAge}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/drafts")
	g.POST("/_sweep", h.Sweep)
	g.GET("/_settings/autosave", h.GetAutosave)
	g.PUT("/_settings/autosave", h.SetAutosave)
	g.GET("/:patientId/:role", h.GetDraft)
	g.PUT("/:patientId/:role", h.SaveDraft)
	g.DELETE("/:patientId/:role", h.DeleteDraft)
}

func keyFromContext(c echo.Context) Key {
	return Key{
		PatientID: c.Param("patientId"),
		Role:      roster.Role(c.Param("role")),
		Date:      c.QueryParam("date"),
	}
}

func (h *Handler) GetDraft(c echo.Context) error {
	d, err := h.svc.Get(c.Request().Context(), keyFromContext(c))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "draft not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

type saveRequest struct {
	Data       json.RawMessage `json:"data"`
	IsComplete bool            `json:"isComplete"`
}

// SaveDraft stores a draft. With ?debounce=true the write goes through the
// autosaver and the response is 202 Accepted.
func (h *Handler) SaveDraft(c echo.Context) error {
	var req saveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	k := keyFromContext(c)
	ctx := c.Request().Context()

	if c.QueryParam("debounce") == "true" && h.autosaver != nil {
		scheduled, err := h.autosaver.Touch(ctx, k, req.Data, req.IsComplete)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusAccepted, map[string]bool{"scheduled": scheduled})
	}

	d, err := h.svc.Save(ctx, k, req.Data, req.IsComplete)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDraft(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), keyFromContext(c)); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// Sweep removes stale drafts. ?maxAge= overrides the configured threshold.
func (h *Handler) Sweep(c echo.Context) error {
	maxAge := h.maxAge
	if raw := c.QueryParam("maxAge"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid maxAge")
		}
		maxAge = d
	}
	n, err := h.svc.Sweep(c.Request().Context(), maxAge)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"removed": n})
}

type autosaveSetting struct {
	Enabled *bool `json:"enabled"`
}

func (h *Handler) GetAutosave(c echo.Context) error {
	enabled, err := h.svc.AutosaveEnabled(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, autosaveSetting{Enabled: &enabled})
}

func (h *Handler) SetAutosave(c echo.Context) error {
	var req autosaveSetting
	if err := c.Bind(&req); err != nil || req.Enabled == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "enabled is required")
	}
	if err := h.svc.SetAutosave(c.Request().Context(), *req.Enabled); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !*req.Enabled && h.autosaver != nil {
		// pending writes scheduled before the switch still land
		if err := h.autosaver.Flush(c.Request().Context()); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, req)
}
