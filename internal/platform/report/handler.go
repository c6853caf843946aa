package report

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/homecare/internal/domain/coordination"
)

const dateLayout = "2006-01-02"

type Handler struct {
	store *coordination.Store
	now   func() time.Time
}

func NewHandler(store *coordination.Store) *Handler {
	return &Handler{store: store, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports")
	g.GET("/visits.xlsx", h.VisitSchedule)
	g.GET("/critical-cases.xlsx", h.CriticalCases)
}

// VisitSchedule serves the schedule for ?date=, today when absent.
func (h *Handler) VisitSchedule(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		date = h.now().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	data, err := VisitSchedule(h.store.State(), date)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return attachment(c, fmt.Sprintf("visits-%s.xlsx", date), data)
}

func (h *Handler) CriticalCases(c echo.Context) error {
	now := h.now()
	data, err := CriticalCases(h.store.State(), now)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return attachment(c, fmt.Sprintf("critical-cases-%s.xlsx", now.Format(dateLayout)), data)
}

func attachment(c echo.Context, filename string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	return c.Blob(http.StatusOK, ContentType, data)
}
