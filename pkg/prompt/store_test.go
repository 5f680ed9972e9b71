package prompt_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/aretw0/persona/pkg/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		tpl    string
		params map[string]string
		want   string
		err    bool
	}{
		{"plain", "no placeholders", nil, "no placeholders", false},
		{"substitution", "Hi {name}, I am {agent}.", map[string]string{"name": "Ana", "agent": "Mia"}, "Hi Ana, I am Mia.", false},
		{"escaped braces", `{{"event": "{event}"}}`, map[string]string{"event": "greet"}, `{"event": "greet"}`, false},
		{"missing", "Hi {name}", map[string]string{}, "", true},
		{"unclosed", "Hi {name", map[string]string{"name": "x"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := prompt.Render(tt.tpl, tt.params)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_AddGetRemove(t *testing.T) {
	s := prompt.New()
	s.Add("test_template", prompt.Template{
		Prompt:     "Test content: {test_var}",
		Parameters: map[string]prompt.Parameter{"test_var": {Description: "Test variable", Type: "string"}},
	})

	got, err := s.Get("test_template", map[string]string{"test_var": "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Test content: Hello", got)

	params, err := s.Parameters("test_template")
	require.NoError(t, err)
	assert.Equal(t, "Test variable", params["test_var"].Description)

	_, err = s.Get("test_template", nil)
	var missing *prompt.MissingParameterError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "test_var", missing.Name)

	require.NoError(t, s.Remove("test_template"))
	_, err = s.Get("test_template", nil)
	assert.ErrorIs(t, err, prompt.ErrPromptNotFound)
	assert.ErrorIs(t, s.Remove("test_template"), prompt.ErrPromptNotFound)
}

func TestStore_Defaults(t *testing.T) {
	s := prompt.NewDefault()
	assert.Equal(t, []string{prompt.IntentDetection, prompt.ToolCallDetection}, s.Names())

	req := ports.DetectionRequest{
		AgentName:      "Mia",
		Goal:           "Recommend a place to eat",
		FormattedState: "State Name: collect, Description: Learn about the user",
		EventList:      "1. Event: collect_info, Description: The user shared info",
		Input:          "I'm in Lisbon",
		History:        []domain.Turn{{Role: domain.SpeakerUser, Content: "hi"}},
	}
	out, err := s.Build(prompt.IntentDetection, req, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Agent Name: Mia")
	assert.Contains(t, out, "Request from target: I'm in Lisbon")
	assert.Contains(t, out, "1. Event: collect_info")
	assert.Contains(t, out, "user: hi")

	out, err = s.Build(prompt.ToolCallDetection, req, map[string]string{"agent_name": "Zed"})
	require.NoError(t, err)
	assert.Contains(t, out, "You are Zed.")
}

func TestStore_LoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting.yaml"), []byte("prompt: Hello {name}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Mia.yml"), []byte("type: role\nprompt: You are Mia, a concierge.\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	s := prompt.NewDefault()
	require.NoError(t, s.LoadDir(dir))

	got, err := s.Get("greeting", map[string]string{"name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ana", got)

	assert.Equal(t, "You are Mia, a concierge.", s.RolePrompt("Mia"))
	assert.Equal(t, prompt.DefaultRolePrompt, s.RolePrompt("Unknown"))
	assert.NotContains(t, s.Names(), "Mia", "role prompts are kept apart")

	assert.Error(t, s.LoadDir(filepath.Join(dir, "missing")))
}
