package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"chemviz-dashboard/internal/bootstrap"
	"chemviz-dashboard/internal/config"
	"chemviz-dashboard/internal/dashboard"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const datasetJSON = `{
	"id": 5, "name": "plant.csv", "uploaded_at": "2024-03-05T14:07:00Z",
	"total_records": 2, "avg_flowrate": 15, "avg_pressure": 4.5, "avg_temperature": 95,
	"type_distribution": {"Pump": 1, "Valve": 1},
	"records": [
		{"id": 1, "equipment_name": "Pump-1", "equipment_type": "Pump", "flowrate": 10, "pressure": 4, "temperature": 90},
		{"id": 2, "equipment_name": "Valve-1", "equipment_type": "Valve", "flowrate": 20, "pressure": 5, "temperature": 100}
	]
}`

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login/":
			w.Write([]byte(`{"token":"backend-token","username":"alice"}`))
		case "/api/history/":
			w.Write([]byte(`[{"id":5,"name":"plant.csv","uploaded_at":"2024-03-05T14:07:00Z","total_records":2,"type_distribution":{"Pump":1,"Valve":1}}]`))
		case "/api/dataset/5/":
			w.Write([]byte(datasetJSON))
		case "/api/dataset/5/report/":
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", `attachment; filename="report_5.pdf"`)
			w.Write([]byte("%PDF-1.4"))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Not found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) (*Server, *bootstrap.Container) {
	t.Helper()
	backend := fakeBackend(t)
	dir := t.TempDir()

	cfg := &config.Config{
		App: config.AppConfig{
			Port:               "0",
			Environment:        "test",
			LogFilePath:        filepath.Join(dir, "chemviz.log"),
			CorsAllowedOrigins: "*",
			DashboardSecret:    "test-secret",
		},
		API:     config.APIConfig{BaseURL: backend.URL + "/api", TimeoutSeconds: 5},
		Session: config.SessionConfig{Store: config.SessionStoreMemory},
		Report:  config.ReportConfig{DownloadDir: dir},
	}

	container := bootstrap.NewContainer(cfg)
	t.Cleanup(container.Close)
	return New(cfg, container), container
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func call(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(body, &env))
	}
	return resp, env
}

func authed(method, target, token string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func login(t *testing.T, app *fiber.App) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"alice","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, env := call(t, app, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)

	var sess struct {
		Username    string `json:"username"`
		ViewerToken string `json:"viewer_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sess))
	assert.Equal(t, "alice", sess.Username)
	require.NotEmpty(t, sess.ViewerToken)
	return sess.ViewerToken
}

func TestRoutesWaitForSessionRestore(t *testing.T) {
	srv, container := newTestServer(t)
	app := srv.GetApp()

	resp, _ := call(t, app, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, env := call(t, app, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"loading":true`)

	require.NoError(t, container.Sessions.Restore(context.Background()))

	resp, _ = call(t, app, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginValidation(t *testing.T) {
	srv, container := newTestServer(t)
	require.NoError(t, container.Sessions.Restore(context.Background()))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"","password":""}`))
	req.Header.Set("Content-Type", "application/json")

	resp, env := call(t, srv.GetApp(), req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Message, "required")
}

func TestDashboardFlow(t *testing.T) {
	srv, container := newTestServer(t)
	app := srv.GetApp()
	require.NoError(t, container.Sessions.Restore(context.Background()))
	token := login(t, app)

	resp, env := call(t, app, authed(http.MethodPost, "/api/dashboard/refresh", token, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	assert.Contains(t, string(env.Data), `"name":"plant.csv"`)

	resp, env = call(t, app, authed(http.MethodPost, "/api/dashboard/sort/flowrate", token, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "flowrate", string(container.Dashboard.State().Sort.Key))

	resp, _ = call(t, app, authed(http.MethodPost, "/api/dashboard/sort/density", token, nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = call(t, app, authed(http.MethodGet, "/api/charts/type-distribution.svg", token, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get(fiber.HeaderContentType))

	resp, _ = call(t, app, authed(http.MethodGet, "/api/charts/metrics-by-type.svg?metric=pressure", token, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = call(t, app, authed(http.MethodGet, "/api/charts/pie.svg", token, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadRejectsNonCSV(t *testing.T) {
	srv, container := newTestServer(t)
	app := srv.GetApp()
	require.NoError(t, container.Sessions.Restore(context.Background()))
	token := login(t, app)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "data.txt")
	require.NoError(t, err)
	part.Write([]byte("a,b\n1,2\n"))
	require.NoError(t, mw.Close())

	req := authed(http.MethodPost, "/api/dashboard/upload", token, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, env := call(t, app, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, dashboard.MsgCSVOnly, env.Message)
}

func TestHistoryReportAndLogout(t *testing.T) {
	srv, container := newTestServer(t)
	app := srv.GetApp()
	require.NoError(t, container.Sessions.Restore(context.Background()))
	token := login(t, app)

	resp, env := call(t, app, authed(http.MethodGet, "/api/history", token, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"records":2`)

	resp, _ = call(t, app, authed(http.MethodGet, "/api/history/5/report", token, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "report_5.pdf")

	resp, env = call(t, app, authed(http.MethodDelete, "/api/history/9", token, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Failed to delete dataset. Not found", env.Message)

	resp, _ = call(t, app, authed(http.MethodPost, "/api/auth/logout", token, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = call(t, app, authed(http.MethodGet, "/api/history", token, nil))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Session ended", env.Message)
}
