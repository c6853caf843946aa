package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ehr/homecare/internal/config"
	"github.com/ehr/homecare/internal/domain/coordination"
	"github.com/ehr/homecare/internal/domain/draft"
	"github.com/ehr/homecare/internal/domain/roster"
	"github.com/ehr/homecare/internal/platform/middleware"
	"github.com/ehr/homecare/internal/platform/websocket"
)

const testBundle = `{
  "المرضى": [
    {"id": "1001", "name": "Amal", "area": "North", "hasCatheter": true, "admissionDate": "2026-01-01"},
    {"id": "1002", "name": "Omar", "area": "South"}
  ],
  "طاقم": [
    {"id": "s1", "name": "Dr. Sami", "profession": "Doctor"},
    {"id": "s2", "name": "Sara", "profession": "Nurse"}
  ],
  "الأحياء": ["North", "South"]
}`

// setupEnv points the config at a bundle file inside a fresh working
// directory.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "bundle.json")
	require.NoError(t, os.WriteFile(path, []byte(testBundle), 0o600))
	t.Setenv("DATA_SOURCE", path)
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "disabled")

	fixed := time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)
	prev := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = prev })
	return dir
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func testConfig() *config.Config {
	return &config.Config{
		DraftBackend:  config.BackendMemory,
		AutosaveDelay: 10 * time.Millisecond,
		DraftMaxAge:   time.Hour,
		CORSOrigins:   []string{"http://localhost:3000"},
		BodyLimit:     "1M",
	}
}

func newTestServer(t *testing.T) (*coordination.Store, *echo.Echo) {
	t.Helper()
	store := coordination.NewStore(coordination.InitialState(), nil, zerolog.Nop())
	filters := roster.EmptyFilters()
	store.Dispatch(coordination.ImportState{Snapshot: coordination.Snapshot{
		Patients: []roster.Patient{{ID: "1001", Name: "Amal", Area: "North"}},
		Filters:  &filters,
	}})
	svc := draft.NewService(draft.NewMemoryRepo())
	autosaver := draft.NewAutosaver(svc, 10*time.Millisecond, zerolog.Nop())
	t.Cleanup(autosaver.Stop)

	e := newServer(testConfig(), zerolog.Nop(), serverDeps{
		store:     store,
		drafts:    svc,
		autosaver: autosaver,
		hub:       websocket.NewHub(zerolog.Nop()),
		checks:    []healthCheck{storeCheck(store)},
	})
	return store, e
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestNewServer_Routes(t *testing.T) {
	_, e := newTestServer(t)

	routes := map[string]bool{}
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /api/v1/state",
		"POST /api/v1/actions",
		"GET /api/v1/patients",
		"POST /api/v1/import",
		"PUT /api/v1/drafts/:patientId/:role",
		"POST /api/v1/drafts/_sweep",
		"GET /api/v1/reports/visits.xlsx",
		"GET /ws",
		"GET /health",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestNewServer_DispatchAndState(t *testing.T) {
	store, e := newTestServer(t)

	rec := serve(e, http.MethodPost, "/api/v1/actions", `{"type":"TOGGLE_AREA_FILTER","payload":"North"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, []string{"North"}, store.State().Filters.Areas)

	rec = serve(e, http.MethodGet, "/api/v1/patients", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Amal"`)
}

func TestNewServer_DraftRoundTrip(t *testing.T) {
	_, e := newTestServer(t)

	rec := serve(e, http.MethodPut, "/api/v1/drafts/1001/nurse", `{"data":{"bp":"120/80"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(e, http.MethodGet, "/api/v1/drafts/1001/nurse", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "120/80")

	rec = serve(e, http.MethodGet, "/api/v1/drafts/1001/doctor", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewServer_BodyLimit(t *testing.T) {
	_, e := newTestServer(t)

	big := `{"type":"SET_SEARCH","payload":"` + strings.Repeat("x", 2<<20) + `"}`
	rec := serve(e, http.MethodPost, "/api/v1/actions", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestNewServer_CORSPreflight(t *testing.T) {
	_, e := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/actions", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestNewServer_Health(t *testing.T) {
	_, e := newTestServer(t)

	rec := serve(e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestStoreCheck_Loading(t *testing.T) {
	store := coordination.NewStore(coordination.InitialState(), nil, zerolog.Nop())
	assert.Error(t, storeCheck(store).Ping(context.Background()))
}

func TestNewLogger_Level(t *testing.T) {
	logger := newLogger(&config.Config{Env: "production", LogLevel: "warn"})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	logger = newLogger(&config.Config{Env: "production", LogLevel: "loud"})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestOpenDraftBackend_Memory(t *testing.T) {
	backend, err := openDraftBackend(context.Background(), testConfig())
	require.NoError(t, err)
	defer backend.Close()
	assert.Empty(t, backend.Checks)
}

func TestOpenDraftBackend_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.DraftBackend = config.BackendRedis
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	ctx := context.Background()
	backend, err := openDraftBackend(ctx, cfg)
	require.NoError(t, err)
	defer backend.Close()

	require.Len(t, backend.Checks, 1)
	assert.NoError(t, backend.Checks[0].Ping(ctx))

	svc := draft.NewService(backend.Repo)
	_, err = svc.Save(ctx, draft.Key{PatientID: "1001", Role: roster.RoleNurse}, json.RawMessage(`{}`), false)
	require.NoError(t, err)
	assert.Len(t, mr.Keys(), 2)
}

func TestOpenDraftBackend_RedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.DraftBackend = config.BackendRedis
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	_, err := openDraftBackend(context.Background(), cfg)
	assert.Error(t, err)
}

func TestExportCmd_WritesSnapshot(t *testing.T) {
	dir := setupEnv(t)

	out, err := runCmd(t, "export")
	require.NoError(t, err)

	path := filepath.Join(dir, "homecare-2026-05-20.json")
	assert.Contains(t, out, "homecare-2026-05-20.json")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	snap, err := coordination.DecodeSnapshot(raw)
	require.NoError(t, err)
	assert.Len(t, snap.Patients, 2)
	assert.Len(t, snap.Teams, 1)
}

func TestExportCmd_Stdout(t *testing.T) {
	setupEnv(t)

	out, err := runCmd(t, "export", "--out", "-")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)), "expected JSON on stdout")
}

func TestReportCmd_FromSnapshot(t *testing.T) {
	dir := setupEnv(t)
	_, err := runCmd(t, "export", "--out", "snap.json")
	require.NoError(t, err)

	out, err := runCmd(t, "report", "critical", "--state", "snap.json", "--out", "critical.xlsx")
	require.NoError(t, err)
	assert.Contains(t, out, "critical.xlsx")

	f, err := excelize.OpenFile(filepath.Join(dir, "critical.xlsx"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Critical Cases")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1001", rows[1][1])
}

func TestReportCmd_VisitsDefaultName(t *testing.T) {
	dir := setupEnv(t)

	_, err := runCmd(t, "report", "visits")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "visits-2026-05-20.xlsx"))
	assert.NoError(t, err)
}

func TestReportCmd_InvalidSnapshot(t *testing.T) {
	dir := setupEnv(t)
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"patients":[]}`), 0o600))

	_, err := runCmd(t, "report", "critical", "--state", bad)
	assert.ErrorIs(t, err, coordination.ErrInvalidSnapshot)
}

func TestDraftsSweepCmd(t *testing.T) {
	setupEnv(t)

	out, err := runCmd(t, "drafts", "sweep", "--max-age", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 draft(s) older than 1h0m0s.")
}

func TestMigrateCmd_RequiresDatabaseURL(t *testing.T) {
	setupEnv(t)
	t.Setenv("DATABASE_URL", "")

	_, err := runCmd(t, "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestShutdown_FlushesAutosavesScheduledDuringDrain(t *testing.T) {
	svc := draft.NewService(draft.NewMemoryRepo())
	autosaver := draft.NewAutosaver(svc, time.Hour, zerolog.Nop())
	key := draft.Key{PatientID: "1001", Role: roster.RoleDoctor}

	entered := make(chan struct{})
	release := make(chan struct{})
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.PUT("/slow", func(c echo.Context) error {
		close(entered)
		<-release
		scheduled, err := autosaver.Touch(c.Request().Context(), key, json.RawMessage(`{"text":"late"}`), false)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusAccepted, map[string]bool{"scheduled": scheduled})
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	e.Listener = ln
	go e.Start("")

	respCh := make(chan *http.Response, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodPut, "http://"+ln.Addr().String()+"/slow", nil)
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			respCh <- resp
		}
		close(respCh)
	}()
	<-entered

	done := make(chan error, 1)
	go func() { done <- shutdown(context.Background(), e, autosaver, zerolog.Nop()) }()
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, <-done)
	resp := <-respCh
	require.NotNil(t, resp)
	defer resp.Body.Close()
	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body["scheduled"])

	d, err := svc.Get(context.Background(), key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"late"}`, string(d.Data))
	assert.Equal(t, 0, autosaver.Pending())
}
