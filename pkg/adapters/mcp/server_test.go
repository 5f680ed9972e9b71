package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/aretw0/persona"
	"github.com/aretw0/persona/internal/input"
	"github.com/aretw0/persona/internal/testutils"
	"github.com/aretw0/persona/pkg/adapters/memory"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	loader := memory.NewLoader(map[ports.TemplateKind]map[string]string{
		ports.KindRole:  {"guide": testutils.GuideRole},
		ports.KindAgent: {"mia": testutils.GuideAgent},
	})
	engine, err := persona.New("", persona.WithLoader(loader))
	require.NoError(t, err)
	return NewServer(engine, "test")
}

func TestTools_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	created, err := s.handleCreate(ctx, req, CreateArgs{Agent: "mia", Role: "guide"})
	require.NoError(t, err)
	require.NotEmpty(t, created.EngagementID)

	list, err := s.handleList(ctx, req, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, []string{created.EngagementID}, list.Engagements)

	resp, err := s.handleInteract(ctx, req, InteractArgs{EngagementID: created.EngagementID, Input: "here is my info"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "recommend", resp.State)

	snap, err := s.handleInspect(ctx, req, EngagementArgs{EngagementID: created.EngagementID})
	require.NoError(t, err)
	assert.Equal(t, "recommend", snap.CurrentState)
	assert.Equal(t, domain.StatusCompleted, snap.Statuses["collect"])
}

func TestTools_Errors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	_, err := s.handleCreate(ctx, req, CreateArgs{Agent: "mia", Role: "missing"})
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)

	_, err = s.handleInteract(ctx, req, InteractArgs{EngagementID: "missing", Input: "hi"})
	assert.ErrorIs(t, err, domain.ErrEngagementNotFound)

	_, err = s.handleInteract(ctx, req, InteractArgs{EngagementID: "missing", Input: "  "})
	assert.ErrorIs(t, err, input.ErrEmpty)

	_, err = s.handleInspect(ctx, req, EngagementArgs{EngagementID: "missing"})
	assert.ErrorIs(t, err, domain.ErrEngagementNotFound)
}

func TestReadRoleGraph(t *testing.T) {
	s := newTestServer(t)
	req := mcp.ReadResourceRequest{}
	req.Params.URI = "persona://roles/guide/graph"

	contents, err := s.readRoleGraph(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Contains(t, text.Text, "graph TD")
	assert.Contains(t, text.Text, "collect -- \"collect_info p2\" --> recommend")

	req.Params.URI = "persona://roles/missing/graph"
	_, err = s.readRoleGraph(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

func TestRoleFromURI(t *testing.T) {
	tests := []struct {
		uri string
		id  string
		ok  bool
	}{
		{"persona://roles/guide/graph", "guide", true},
		{"persona://roles//graph", "", false},
		{"persona://roles/a/b/graph", "", false},
		{"persona://agents/guide/graph", "", false},
		{"persona://roles/guide", "", false},
	}
	for _, tt := range tests {
		id, ok := roleFromURI(tt.uri)
		assert.Equal(t, tt.ok, ok, tt.uri)
		assert.Equal(t, tt.id, id, tt.uri)
	}
}

func TestHandleMessage_ListTools(t *testing.T) {
	s := newTestServer(t)

	msg := s.MCPServer().HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`))
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var out struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &out))

	var names []string
	for _, tool := range out.Result.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"create_engagement", "delete_engagement", "inspect_engagement", "interact", "list_engagements"}, names)
}
