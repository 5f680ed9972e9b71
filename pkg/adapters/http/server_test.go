package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/persona"
	"github.com/aretw0/persona/internal/testutils"
	httpadapter "github.com/aretw0/persona/pkg/adapters/http"
	"github.com/aretw0/persona/pkg/adapters/memory"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/observability"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, opts ...httpadapter.Option) *httptest.Server {
	t.Helper()
	loader := memory.NewLoader(map[ports.TemplateKind]map[string]string{
		ports.KindRole:   {"guide": testutils.GuideRole},
		ports.KindAgent:  {"mia": testutils.GuideAgent},
		ports.KindTarget: {"visitor": testutils.GuideTarget},
	})
	engine, err := persona.New("", persona.WithLoader(loader))
	require.NoError(t, err)

	handler, err := httpadapter.NewHandler(engine, opts...)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func create(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/engagements", `{"agent":"mia","role":"guide","target":"visitor"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out map[string]string
	decode(t, resp, &out)
	require.NotEmpty(t, out["engagement_id"])
	return out["engagement_id"]
}

func TestHealthAndSpec(t *testing.T) {
	srv := newServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/openapi.json", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc map[string]any
	decode(t, resp, &doc)
	assert.Equal(t, "3.0.3", doc["openapi"])

	resp = do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "metrics are opt-in")
}

func TestEngagementLifecycle(t *testing.T) {
	srv := newServer(t)
	id := create(t, srv)

	resp := do(t, http.MethodGet, srv.URL+"/engagements", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list map[string][]string
	decode(t, resp, &list)
	assert.Equal(t, []string{id}, list["engagements"])

	resp = do(t, http.MethodGet, srv.URL+"/engagements/"+id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap domain.Snapshot
	decode(t, resp, &snap)
	assert.Equal(t, "collect", snap.CurrentState)

	resp = do(t, http.MethodPost, srv.URL+"/engagements/"+id+"/interact", `{"input":"here is my info"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out httpadapter.InteractResponse
	decode(t, resp, &out)
	assert.True(t, out.Response.Success)
	assert.Equal(t, "recommend", out.Response.State)
	require.NotNil(t, out.Diff)
	require.NotNil(t, out.Diff.CurrentState)
	assert.Equal(t, "recommend", *out.Diff.CurrentState)

	resp = do(t, http.MethodDelete, srv.URL+"/engagements/"+id, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/engagements/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestValidation(t *testing.T) {
	srv := newServer(t)
	id := create(t, srv)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"missing role", "/engagements", `{"agent":"mia"}`},
		{"malformed json", "/engagements", `{"agent":`},
		{"missing input", "/engagements/" + id + "/interact", `{}`},
		{"blank input", "/engagements/" + id + "/interact", `{"input":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, srv.URL+tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var out map[string]string
			decode(t, resp, &out)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestNotFound(t *testing.T) {
	srv := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/engagements", `{"agent":"mia","role":"nope"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/engagements/missing/interact", `{"input":"hi"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/roles/nope/graph", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoleGraph(t *testing.T) {
	srv := newServer(t)
	id := create(t, srv)

	resp := do(t, http.MethodGet, srv.URL+"/roles/guide/graph?engagement="+id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "graph TD\n"))
	assert.Contains(t, string(body), "class collect current")
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.NewMetrics(reg)
	srv := newServer(t, httpadapter.WithMetrics(reg))

	resp := do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSubscribeEvents(t *testing.T) {
	srv := newServer(t)
	id := create(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/engagements/"+id+"/events?watch=state", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)

	lines := bufio.NewScanner(stream.Body)
	readData := func() string {
		for lines.Scan() {
			if line := lines.Text(); strings.HasPrefix(line, "data: ") {
				return strings.TrimPrefix(line, "data: ")
			}
		}
		return ""
	}
	require.Equal(t, "connected", readData())

	resp := do(t, http.MethodPost, srv.URL+"/engagements/"+id+"/interact", `{"input":"here is my info"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var diff domain.SnapshotDiff
	require.NoError(t, json.Unmarshal([]byte(readData()), &diff))
	assert.Equal(t, id, diff.EngagementID)
	require.NotNil(t, diff.CurrentState)
	assert.Equal(t, "recommend", *diff.CurrentState)
}

func TestSubscribeEvents_UnknownEngagement(t *testing.T) {
	srv := newServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/engagements/missing/events", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
