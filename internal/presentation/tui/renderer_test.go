package tui_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aretw0/persona/internal/presentation/tui"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestMarkdown(t *testing.T) {
	resp := domain.AgentResponse{
		Success: false,
		State:   "collect",
		Message: domain.Message{TaskResults: []domain.TaskResult{
			{Event: "collect_info", Action: "ask_geo_location", Response: domain.CompletedTask("True")},
			{Event: "collect_info", Action: "ask_price_range", Response: domain.FailedTask(errors.New("boom"))},
		}},
	}

	md := tui.Markdown(resp)
	assert.Contains(t, md, "- `collect_info/ask_geo_location`: completed")
	assert.Contains(t, md, "- `collect_info/ask_price_range`: **failed** boom")
	assert.Contains(t, md, "_state: collect_")
}

func TestRenderer_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	r := tui.NewRenderer(&buf)

	out := r.Render(domain.AgentResponse{Success: true, State: "greeting", Message: domain.Message{Text: "Hello!"}})
	assert.Equal(t, "Hello!\n\n_state: greeting_\n", out)
	assert.False(t, tui.IsTerminal(&buf))
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "Mia", "Restaurant Guide")
	assert.Contains(t, buf.String(), "Mia (Restaurant Guide)")
	assert.NotContains(t, buf.String(), "\x1b[", "no escape codes outside a terminal")
}
