package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/persona/pkg/adapters/anthropic"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/aretw0/persona/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMessages answers every Messages call with content and records the request body.
func fakeMessages(t *testing.T, content []any, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-3-5-sonnet-20241022",
			"content":       content,
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 1, "output_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newResolver(url string) *anthropic.Resolver {
	return anthropic.New(func(o *anthropic.Options) {
		o.APIKey = "test"
		o.BaseURL = url
	})
}

func request(strategy ports.Strategy) ports.DetectionRequest {
	return ports.DetectionRequest{
		Strategy:  strategy,
		AgentName: "Mia",
		Events:    []ports.EventOption{{Name: "collect_info"}, {Name: "goodbye"}},
		Input:     "I'm in Lisbon",
		History:   []domain.Turn{{Role: domain.SpeakerUser, Content: "hi"}, {Role: domain.SpeakerAssistant, Content: "hello"}},
	}
}

func text(s string) map[string]any {
	return map[string]any{"type": "text", "text": s}
}

func TestResolve_Event(t *testing.T) {
	var body map[string]any
	srv := fakeMessages(t, []any{text("collect_info")}, &body)

	det, err := newResolver(srv.URL).Resolve(context.Background(), request(ports.StrategyEvent))
	require.NoError(t, err)
	assert.Equal(t, "collect_info", det.Event)

	assert.Len(t, body["messages"], 1)
	assert.NotEmpty(t, body["system"])
}

func TestResolve_EventNone(t *testing.T) {
	srv := fakeMessages(t, []any{text("none")}, nil)

	det, err := newResolver(srv.URL).Resolve(context.Background(), request(ports.StrategyEvent))
	require.NoError(t, err)
	assert.True(t, det.Empty())
	assert.Empty(t, det.Reply)
}

func TestResolve_EventFreeText(t *testing.T) {
	srv := fakeMessages(t, []any{text("Lisbon has great seafood.")}, nil)

	det, err := newResolver(srv.URL).Resolve(context.Background(), request(ports.StrategyEvent))
	require.NoError(t, err)
	assert.True(t, det.Empty())
	assert.Equal(t, "Lisbon has great seafood.", det.Reply)
}

func TestResolve_ToolCall(t *testing.T) {
	var body map[string]any
	srv := fakeMessages(t, []any{
		text("Noted."),
		map[string]any{
			"type":  "tool_use",
			"id":    "toolu_1",
			"name":  "collect_info__ask_geo_location",
			"input": map[string]any{"location": "Lisbon"},
		},
	}, &body)

	req := request(ports.StrategyToolCall)
	req.Tools = []schema.ToolDefinition{
		schema.Tool("collect_info__ask_geo_location", "Ask where the user is",
			schema.New(schema.Param{Name: "location", Kind: schema.KindString, Default: ""})),
	}

	det, err := newResolver(srv.URL).Resolve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, det.Invocations, 1)
	assert.Equal(t, "collect_info__ask_geo_location", det.Invocations[0].Action)
	assert.Equal(t, map[string]any{"location": "Lisbon"}, det.Invocations[0].Arguments)
	assert.Equal(t, "Noted.", det.Reply)

	assert.Len(t, body["messages"], 3)
	require.Len(t, body["tools"], 1)
	tool := body["tools"].([]any)[0].(map[string]any)
	assert.Equal(t, "collect_info__ask_geo_location", tool["name"])
	assert.Equal(t, "Ask where the user is", tool["description"])
}

func TestResolve_ToolCallMalformedArguments(t *testing.T) {
	srv := fakeMessages(t, []any{
		map[string]any{
			"type":  "tool_use",
			"id":    "toolu_1",
			"name":  "collect_info__ask_geo_location",
			"input": "{not json",
		},
	}, nil)

	det, err := newResolver(srv.URL).Resolve(context.Background(), request(ports.StrategyToolCall))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect_info__ask_geo_location")
	assert.Empty(t, det.Invocations)
}

func TestResolve_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer srv.Close()

	_, err := newResolver(srv.URL).Resolve(context.Background(), request(ports.StrategyEvent))
	assert.Error(t, err)
}
