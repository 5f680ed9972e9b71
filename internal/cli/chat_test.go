package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/persona"
	"github.com/aretw0/persona/internal/testutils"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *persona.Engine {
	t.Helper()
	dir := t.TempDir()
	testutils.WriteTemplates(t, dir)
	eng, err := persona.New(dir)
	require.NoError(t, err)
	return eng
}

func TestRunChat_StopsAtEndState(t *testing.T) {
	eng := newEngine(t)
	var out bytes.Buffer
	in := strings.NewReader("here is my info\n\ngoodbye\nnever read\n")

	id, err := RunChat(context.Background(), eng, in, &out, ChatOptions{Request: testutils.GuideRequest()})
	require.NoError(t, err)

	snap, err := eng.Inspect(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "farewell", snap.CurrentState)
	assert.Len(t, snap.History, 2, "blank line is skipped")

	text := out.String()
	assert.Contains(t, text, "Mia (Restaurant Guide)")
	assert.Contains(t, text, "`collect_info/ask_geo_location`: completed")
	assert.Contains(t, text, "_state: farewell_")
	assert.NotContains(t, text, "never read")
}

func TestRunChat_Exit(t *testing.T) {
	eng := newEngine(t)
	var out bytes.Buffer

	id, err := RunChat(context.Background(), eng, strings.NewReader("EXIT\nhere is my info\n"), &out, ChatOptions{
		Request: testutils.GuideRequest(),
		Quiet:   true,
	})
	require.NoError(t, err)
	assert.Empty(t, out.String())

	snap, err := eng.Inspect(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "collect", snap.CurrentState)
}

func TestRunChat_JSON(t *testing.T) {
	eng := newEngine(t)
	var out bytes.Buffer
	in := strings.NewReader(`{"input":"here is my info"}` + "\n" + `not json` + "\n")

	_, err := RunChat(context.Background(), eng, in, &out, ChatOptions{
		Request: testutils.GuideRequest(),
		JSON:    true,
	})
	require.NoError(t, err)

	lines := bufio.NewScanner(&out)
	require.True(t, lines.Scan())
	var resp domain.AgentResponse
	require.NoError(t, json.Unmarshal(lines.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "recommend", resp.State)

	require.True(t, lines.Scan())
	var failure map[string]string
	require.NoError(t, json.Unmarshal(lines.Bytes(), &failure))
	assert.Contains(t, failure["error"], "invalid json")
	assert.False(t, lines.Scan())
}

func TestRunChat_UnknownRole(t *testing.T) {
	eng := newEngine(t)
	req := testutils.GuideRequest()
	req.Role = "missing"
	_, err := RunChat(context.Background(), eng, strings.NewReader(""), &bytes.Buffer{}, ChatOptions{Request: req})
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}
