package coordination

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/homecare/internal/domain/roster"
	"github.com/ehr/homecare/internal/domain/visit"
	"github.com/ehr/homecare/pkg/pagination"
)

type Handler struct {
	store  *Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewHandler(store *Store, logger zerolog.Logger) *Handler {
	return &Handler{store: store, logger: logger, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/state", h.GetState)
	api.POST("/actions", h.DispatchAction)

	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.GET("/critical-cases", h.GetCriticalCases)

	api.GET("/visits", h.ListVisits)
	api.POST("/visits", h.AssignVisits)
	api.DELETE("/visits/:patientId/:date", h.CancelVisit)

	api.GET("/export", h.Export)
	api.POST("/import", h.Import)
}

func (h *Handler) GetState(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.State())
}

// DispatchAction accepts an action envelope and returns the resulting state.
func (h *Handler) DispatchAction(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	action, err := DecodeAction(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, unknown := action.(Unknown); unknown {
		h.logger.Warn().Str("action", string(action.Kind())).Msg("ignoring unknown action")
	}
	return c.JSON(http.StatusOK, h.store.Dispatch(action))
}

// ListPatients returns the filtered roster, paginated.
func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients := h.store.FilteredPatients()
	start, end := pg.Window(len(patients))
	return c.JSON(http.StatusOK, pagination.NewResponse(patients[start:end], len(patients), pg.Limit, pg.Offset))
}

type patientView struct {
	roster.Patient
	Risk         roster.Risk `json:"risk"`
	DaysAdmitted int         `json:"daysAdmitted"`
	Selected     bool        `json:"selected"`
}

func (h *Handler) GetPatient(c echo.Context) error {
	st := h.store.State()
	p, ok := st.Patient(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	now := h.now()
	return c.JSON(http.StatusOK, patientView{
		Patient:      p,
		Risk:         roster.ClassifyRisk(p.AdmissionDate, now),
		DaysAdmitted: roster.DaysSince(p.AdmissionDate, now),
		Selected:     st.Selection.Has(p.ID),
	})
}

func (h *Handler) GetCriticalCases(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.State().CriticalCases)
}

func (h *Handler) ListVisits(c echo.Context) error {
	visits := h.store.State().Visits
	if date := c.QueryParam("date"); date != "" {
		return c.JSON(http.StatusOK, visit.OnDate(visits, date))
	}
	return c.JSON(http.StatusOK, visits)
}

// AssignVisits schedules visits. Without patientIds the current selection is
// used.
func (h *Handler) AssignVisits(c echo.Context) error {
	var req AssignToVisits
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}
	if len(req.PatientIDs) == 0 {
		req.PatientIDs = []string(h.store.State().Selection)
	}
	st := h.store.Dispatch(req)
	return c.JSON(http.StatusCreated, visit.OnDate(st.Visits, req.Date))
}

func (h *Handler) CancelVisit(c echo.Context) error {
	h.store.Dispatch(CancelVisit{PatientID: c.Param("patientId"), Date: c.Param("date")})
	return c.NoContent(http.StatusNoContent)
}

// Export downloads the whole state as a dated JSON attachment.
func (h *Handler) Export(c echo.Context) error {
	now := h.now()
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+ExportFileName(now)+`"`)
	return c.JSON(http.StatusOK, Export(h.store.State(), now))
}

// Import replaces the state with an uploaded export. A rejected payload
// leaves the state untouched.
func (h *Handler) Import(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	snap, err := DecodeSnapshot(body)
	if err != nil {
		if errors.Is(err, ErrInvalidSnapshot) {
			h.logger.Warn().Err(err).Msg("import rejected")
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, h.store.Dispatch(ImportState{Snapshot: snap}))
}
