package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timepoint/backend/internal/logging"
	"timepoint/backend/internal/pipeline"
	"timepoint/backend/internal/provider"
	"timepoint/backend/internal/repository"
	"timepoint/backend/internal/services"
	"timepoint/backend/pkg/models"
)

func newTestServer() (*echo.Echo, *provider.Router) {
	logger := logging.NewLogger()
	router := provider.NewRouter(logger, provider.WithBackoff(time.Millisecond, time.Millisecond))
	router.Register(provider.NewCanned("canned", nil), 0, 1, 0)
	orch := pipeline.NewOrchestrator(router, logger, 2, 0)
	svc := services.NewSceneService(orch, repository.NewInMemorySceneStore(), logger)

	e := echo.New()
	NewHandler(svc, router, logger).RegisterRoutes(e)
	return e, router
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	e, _ := newTestServer()
	rec := doJSON(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "timepoint", status.Service)
}

func TestHandleGenerate(t *testing.T) {
	e, _ := newTestServer()

	rec := doJSON(e, http.MethodPost, "/api/v1/timepoints", `{"query": "the signing of the Declaration of Independence"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Scene)
	assert.Equal(t, models.SceneStatusCompleted, resp.Scene.Status)
	assert.Equal(t, pipeline.StatusCompleted, resp.RunState)
	assert.Equal(t, 100, resp.Progress)
	assert.Empty(t, resp.Error)

	t.Run("round-trips through GET", func(t *testing.T) {
		rec := doJSON(e, http.MethodGet, "/api/v1/timepoints/"+resp.Scene.ID, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var scene models.Scene
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scene))
		assert.Equal(t, resp.Scene.ID, scene.ID)
		assert.Equal(t, 1776, scene.Point.Year)
	})
}

func TestHandleGenerateEmptyQuery(t *testing.T) {
	e, _ := newTestServer()
	rec := doJSON(e, http.MethodPost, "/api/v1/timepoints", `{"query": ""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var p ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, http.StatusUnprocessableEntity, p.Status)
}

func TestHandleGetNotFound(t *testing.T) {
	e, _ := newTestServer()
	rec := doJSON(e, http.MethodGet, "/api/v1/timepoints/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var p ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "Not Found", p.Title)
	assert.Equal(t, "/api/v1/timepoints/does-not-exist", p.Instance)
}

func TestHandleNavigateAndSequence(t *testing.T) {
	e, _ := newTestServer()

	rec := doJSON(e, http.MethodPost, "/api/v1/timepoints", `{"query": "the signing of the Declaration of Independence"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var root GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &root))

	rec = doJSON(e, http.MethodPost, "/api/v1/timepoints/"+root.Scene.ID+"/navigate",
		`{"unit": "day", "count": 1, "direction": "forward"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var next GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
	require.NotNil(t, next.Scene.ParentID)
	assert.Equal(t, root.Scene.ID, *next.Scene.ParentID)

	t.Run("bad unit is a 400", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/timepoints/"+root.Scene.ID+"/navigate",
			`{"unit": "fortnight", "count": 1, "direction": "forward"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("out of range count is a 422", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/timepoints/"+root.Scene.ID+"/navigate",
			`{"unit": "day", "count": 9000, "direction": "forward"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("sequence walks forward by default", func(t *testing.T) {
		rec := doJSON(e, http.MethodGet, "/api/v1/timepoints/"+root.Scene.ID+"/sequence", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var seq services.Sequence
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &seq))
		require.Len(t, seq.Scenes, 1)
		assert.Equal(t, next.Scene.ID, seq.Scenes[0].ID)
	})

	t.Run("sequence walks backward on request", func(t *testing.T) {
		rec := doJSON(e, http.MethodGet, "/api/v1/timepoints/"+next.Scene.ID+"/sequence?direction=backward&limit=5", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var seq services.Sequence
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &seq))
		require.Len(t, seq.Scenes, 1)
		assert.Equal(t, root.Scene.ID, seq.Scenes[0].ID)
	})

	t.Run("bad direction is a 400", func(t *testing.T) {
		rec := doJSON(e, http.MethodGet, "/api/v1/timepoints/"+root.Scene.ID+"/sequence?direction=sideways", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleStream(t *testing.T) {
	e, _ := newTestServer()

	rec := doJSON(e, http.MethodGet, "/api/v1/timepoints/stream?query=caesar+crosses+the+rubicon", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/event-stream")

	body := rec.Body.String()
	assert.Contains(t, body, "event: step")
	assert.Contains(t, body, `"step":"judge"`)
	assert.Contains(t, body, "event: done")
	assert.Contains(t, body, `"result_id"`)
}

func TestHandleStreamMissingQuery(t *testing.T) {
	e, _ := newTestServer()
	rec := doJSON(e, http.MethodGet, "/api/v1/timepoints/stream", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleModels(t *testing.T) {
	e, _ := newTestServer()
	rec := doJSON(e, http.MethodGet, "/api/v1/models", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []ModelInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "canned", out[0].ID)
	assert.True(t, out[0].Available)
	assert.Contains(t, out[0].Capabilities, "structured")
}
