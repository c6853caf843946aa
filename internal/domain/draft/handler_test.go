package draft

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	a := NewAutosaver(svc, time.Hour, zerolog.Nop())
	return NewHandler(svc, a, 24*time.Hour), echo.New()
}

func draftContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("patientId", "role")
	c.SetParamValues("1001", "nurse")
	return c, rec
}

func TestHandler_SaveAndGetDraft(t *testing.T) {
	h, e := newTestHandler()

	c, rec := draftContext(e, http.MethodPut, "/api/v1/drafts/1001/nurse?date=2026-05-21", `{"data":{"text":"hi"},"isComplete":false}`)
	if err := h.SaveDraft(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c, rec = draftContext(e, http.MethodGet, "/api/v1/drafts/1001/nurse?date=2026-05-21", "")
	if err := h.GetDraft(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var d Draft
	json.Unmarshal(rec.Body.Bytes(), &d)
	if d.Key.Date != "2026-05-21" || string(d.Data) != `{"text":"hi"}` {
		t.Errorf("unexpected draft %+v", d)
	}
}

func TestHandler_GetDraft_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c, _ := draftContext(e, http.MethodGet, "/api/v1/drafts/1001/nurse", "")
	err := h.GetDraft(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_SaveDraft_InvalidRole(t *testing.T) {
	h, e := newTestHandler()
	c, _ := draftContext(e, http.MethodPut, "/api/v1/drafts/1001/chef", `{"data":{}}`)
	c.SetParamValues("1001", "chef")
	err := h.SaveDraft(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_SaveDraft_Debounced(t *testing.T) {
	h, e := newTestHandler()
	defer h.autosaver.Stop()

	c, rec := draftContext(e, http.MethodPut, "/api/v1/drafts/1001/nurse?debounce=true", `{"data":{"v":1}}`)
	if err := h.SaveDraft(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", rec.Code)
	}
	if h.autosaver.Pending() != 1 {
		t.Errorf("expected one pending write, got %d", h.autosaver.Pending())
	}
}

func TestHandler_DeleteDraft(t *testing.T) {
	h, e := newTestHandler()
	h.svc.Save(context.Background(), nurseKey, nil, false)

	c, rec := draftContext(e, http.MethodDelete, "/api/v1/drafts/1001/nurse", "")
	if err := h.DeleteDraft(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_Sweep(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/drafts/_sweep?maxAge=1h", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Sweep(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"removed":0`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/drafts/_sweep?maxAge=soon", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	if err := h.Sweep(c); err == nil {
		t.Error("expected error for invalid maxAge")
	}
}

func TestHandler_AutosaveSetting(t *testing.T) {
	h, e := newTestHandler()
	h.autosaver.Touch(context.Background(), nurseKey, json.RawMessage(`{"pending":true}`), false)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/drafts/_settings/autosave", strings.NewReader(`{"enabled":false}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.SetAutosave(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := h.svc.Get(context.Background(), nurseKey); err != nil {
		t.Errorf("expected pending draft flushed, got %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/drafts/_settings/autosave", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	if err := h.GetAutosave(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"enabled":false`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_SetAutosave_MissingField(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/drafts/_settings/autosave", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	if err := h.SetAutosave(c); err == nil {
		t.Error("expected error for missing enabled")
	}
}
