package tui

import (
	"io"
	"os"
	"strings"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Renderer formats agent responses for the chat UI.
type Renderer struct {
	markdown *glamour.TermRenderer
}

// NewRenderer returns a renderer. Markdown styling is only applied when w is
// a terminal; otherwise responses are printed as plain text.
func NewRenderer(w io.Writer) *Renderer {
	if !IsTerminal(w) {
		return &Renderer{}
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return &Renderer{}
	}
	return &Renderer{markdown: r}
}

// Render turns a response into display text.
func (r *Renderer) Render(resp domain.AgentResponse) string {
	text := Markdown(resp)
	if r.markdown == nil || text == "" {
		return text
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// Markdown describes a response as markdown: the reply text, one bullet per
// executed action, and the state reached.
func Markdown(resp domain.AgentResponse) string {
	var sb strings.Builder
	if resp.Message.Text != "" {
		sb.WriteString(resp.Message.Text)
		sb.WriteString("\n")
	}
	for _, r := range resp.Message.TaskResults {
		sb.WriteString("- `" + r.Event + "/" + r.Action + "`: ")
		if r.Response.Status == domain.TaskFailed {
			sb.WriteString("**failed** " + r.Response.Err())
		} else {
			sb.WriteString(string(r.Response.Status))
		}
		sb.WriteString("\n")
	}
	if resp.Error != "" {
		sb.WriteString("\n> " + resp.Error + "\n")
	}
	if resp.State != "" {
		sb.WriteString("\n_state: " + resp.State + "_\n")
	}
	return sb.String()
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
