package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokamak-network/trh-pipeline/pkg/api/dtos"
	"github.com/tokamak-network/trh-pipeline/pkg/api/servers"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/repositories"
	domainServices "github.com/tokamak-network/trh-pipeline/pkg/domain/services"
	"github.com/tokamak-network/trh-pipeline/pkg/infrastructure/memory"
	"github.com/tokamak-network/trh-pipeline/pkg/metrics"
	"github.com/tokamak-network/trh-pipeline/pkg/services"
	"github.com/tokamak-network/trh-pipeline/pkg/stages"
	"github.com/tokamak-network/trh-pipeline/pkg/taskmanager"
)

type pingFailingRepo struct {
	*memory.DeploymentRepository
}

func (pingFailingRepo) Ping(context.Context) error {
	return errors.New("connection refused")
}

func newTestServer(t *testing.T, repo repositories.DeploymentRepository, build stages.Stage) *servers.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tm := taskmanager.NewTaskManager(0)
	t.Cleanup(tm.Stop)
	m := metrics.New(prometheus.NewRegistry())
	urls := domainServices.NewURLGeneratorWithSource(domainServices.FixedSuffix("abc123"))
	executor := services.NewDeploymentExecutor(repo, urls, "trh-apps.dev", build, stages.Succeed(stages.NameDeploy), m)
	svc := services.NewDeploymentService(repo, executor, tm, "thanos-cloud", m)

	server := servers.NewServer(svc, m, "memory")
	SetupRoutes(server)
	return server
}

func doRequest(server *servers.Server, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// statusOf is safe to call from require.Eventually, which polls on another goroutine.
func statusOf(server *servers.Server, id string) string {
	w := doRequest(server, http.MethodGet, "/api/v1/deployments/"+id, nil, nil)
	var body struct {
		Status string `json:"status"`
	}
	if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &body) != nil {
		return ""
	}
	return body.Status
}

func TestDeploymentRoutes(t *testing.T) {
	server := newTestServer(t, memory.NewDeploymentRepository(), stages.Succeed(stages.NameBuild))

	t.Run("CreateReturns201Pending", func(t *testing.T) {
		w := doRequest(server, http.MethodPost, "/api/v1/deployments",
			[]byte(`{"projectId":"proj-1","config":{"framework":"next"}}`),
			map[string]string{"X-User-Id": "user-9"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		body := decode[map[string]any](t, w)
		assert.Equal(t, "pending", body["status"])
		assert.Equal(t, "proj-1", body["projectId"])
		assert.Equal(t, "production", body["environment"])
		assert.Equal(t, "user-9", body["userId"])
		assert.Equal(t, []any{"Deployment initiated"}, body["logs"])
		assert.NotContains(t, body, "url")
		assert.NotContains(t, body, "error")
		assert.NotContains(t, body, "deployedAt")

		id := body["id"].(string)
		require.Eventually(t, func() bool {
			return statusOf(server, id) == "success"
		}, 2*time.Second, 5*time.Millisecond)

		w = doRequest(server, http.MethodGet, "/api/v1/deployments/"+id, nil, nil)
		final := decode[map[string]any](t, w)
		assert.Equal(t, "https://proj-1-abc123.trh-apps.dev", final["url"])
		assert.Contains(t, final, "deployedAt")
		assert.Len(t, final["logs"], 4)

		w = doRequest(server, http.MethodGet, "/api/v1/deployments/"+id+"/status", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, entities.DeploymentStatusSuccess, decode[dtos.DeploymentStatusResponse](t, w).Status)
	})

	t.Run("CreateRejectsInvalidInput", func(t *testing.T) {
		for _, body := range []string{``, `{}`, `{"projectId":""}`, `{"projectId":"p","environment":"qa"}`, `{"projectId":`} {
			w := doRequest(server, http.MethodPost, "/api/v1/deployments", []byte(body), nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
			assert.NotEmpty(t, decode[dtos.ErrorResponse](t, w).Error)
		}
	})

	t.Run("ListFiltersByProjectNewestFirst", func(t *testing.T) {
		var ids []string
		for i := 0; i < 3; i++ {
			w := doRequest(server, http.MethodPost, "/api/v1/deployments", []byte(`{"projectId":"proj-list"}`), nil)
			require.Equal(t, http.StatusCreated, w.Code)
			ids = append(ids, decode[map[string]any](t, w)["id"].(string))
			time.Sleep(2 * time.Millisecond)
		}

		w := doRequest(server, http.MethodGet, "/api/v1/deployments?projectId=proj-list", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		list := decode[dtos.DeploymentListResponse](t, w)
		require.Len(t, list.Deployments, 3)
		assert.Equal(t, ids[2], list.Deployments[0].ID)
		assert.Equal(t, ids[0], list.Deployments[2].ID)

		w = doRequest(server, http.MethodGet, "/api/v1/deployments?projectId=proj-list&limit=1", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[dtos.DeploymentListResponse](t, w).Deployments, 1)

		w = doRequest(server, http.MethodGet, "/api/v1/deployments?limit=abc", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = doRequest(server, http.MethodGet, "/api/v1/deployments?projectId=nobody", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"deployments":[]}`, w.Body.String())
	})

	t.Run("UnknownIDIs404", func(t *testing.T) {
		for _, req := range []struct{ method, path string }{
			{http.MethodGet, "/api/v1/deployments/nonexistent"},
			{http.MethodGet, "/api/v1/deployments/nonexistent/status"},
			{http.MethodDelete, "/api/v1/deployments/nonexistent"},
		} {
			w := doRequest(server, req.method, req.path, nil, nil)
			assert.Equal(t, http.StatusNotFound, w.Code, req.path)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		w := doRequest(server, http.MethodPost, "/api/v1/deployments", []byte(`{"projectId":"proj-del"}`), nil)
		require.Equal(t, http.StatusCreated, w.Code)
		id := decode[map[string]any](t, w)["id"].(string)

		w = doRequest(server, http.MethodDelete, "/api/v1/deployments/"+id, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"OK"}`, w.Body.String())

		w = doRequest(server, http.MethodGet, "/api/v1/deployments/"+id, nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestStageFailureIsRecordedNotReturned(t *testing.T) {
	server := newTestServer(t, memory.NewDeploymentRepository(), stages.Fail(stages.NameBuild, errors.New("compile error")))

	w := doRequest(server, http.MethodPost, "/api/v1/deployments", []byte(`{"projectId":"proj-f"}`), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]any](t, w)["id"].(string)

	require.Eventually(t, func() bool {
		return statusOf(server, id) == "failed"
	}, 2*time.Second, 5*time.Millisecond)
	w = doRequest(server, http.MethodGet, "/api/v1/deployments/"+id, nil, nil)
	final := decode[map[string]any](t, w)
	assert.Equal(t, "compile error", final["error"])
	assert.NotContains(t, final, "url")
	assert.Equal(t, []any{"Deployment initiated", "Build started", "Deployment failed: compile error"}, final["logs"])
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, memory.NewDeploymentRepository(), stages.Succeed(stages.NameBuild))
	w := doRequest(server, http.MethodGet, "/api/v1/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dtos.HealthResponse{Status: "ok", Store: "memory"}, decode[dtos.HealthResponse](t, w))

	down := newTestServer(t, pingFailingRepo{memory.NewDeploymentRepository()}, stages.Succeed(stages.NameBuild))
	w = doRequest(down, http.MethodGet, "/api/v1/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, memory.NewDeploymentRepository(), stages.Succeed(stages.NameBuild))
	w := doRequest(server, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
