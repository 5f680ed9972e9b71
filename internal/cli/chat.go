package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/persona"
	"github.com/aretw0/persona/internal/input"
	"github.com/aretw0/persona/internal/presentation/tui"
	"github.com/aretw0/persona/pkg/ports"
)

// ChatOptions configure RunChat.
type ChatOptions struct {
	Request ports.CreateRequest
	// JSON reads NDJSON {"input": "..."} lines and writes one response object per line.
	JSON bool
	// Quiet suppresses the banner and prompt.
	Quiet bool
}

type jsonInput struct {
	Input string `json:"input"`
}

// RunChat creates an engagement and feeds it lines from in until EOF, an
// exit command or an end state. It returns the engagement ID.
func RunChat(ctx context.Context, eng *persona.Engine, in io.Reader, out io.Writer, opts ChatOptions) (string, error) {
	id, err := eng.CreateEngagement(ctx, opts.Request)
	if err != nil {
		return "", err
	}
	a, err := eng.Agent(id)
	if err != nil {
		return id, err
	}

	interactive := !opts.JSON && !opts.Quiet
	if interactive {
		tui.PrintBanner(out, a.Profile().Name, a.Role().Name())
	}

	renderer := tui.NewRenderer(out)
	enc := json.NewEncoder(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), input.MaxSize()+1024)

	for {
		if a.InEndState() {
			return id, nil
		}
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			return id, err
		}

		line := scanner.Text()
		if opts.JSON {
			var msg jsonInput
			if err := json.Unmarshal([]byte(line), &msg); err != nil {
				enc.Encode(map[string]string{"error": "invalid json: " + err.Error()})
				continue
			}
			line = msg.Input
		}

		text, err := input.Sanitize(line)
		if errors.Is(err, input.ErrEmpty) {
			continue
		}
		if err != nil {
			if opts.JSON {
				enc.Encode(map[string]string{"error": err.Error()})
			} else {
				fmt.Fprintf(out, "input rejected: %v\n", err)
			}
			continue
		}
		if !opts.JSON {
			switch strings.ToLower(text) {
			case "exit", "quit":
				return id, nil
			}
		}

		resp, err := eng.Interact(ctx, id, text)
		if err != nil {
			return id, err
		}
		if opts.JSON {
			if err := enc.Encode(resp); err != nil {
				return id, err
			}
			continue
		}
		fmt.Fprintln(out, renderer.Render(resp))
	}
	if err := scanner.Err(); err != nil {
		return id, fmt.Errorf("failed to read input: %w", err)
	}
	return id, nil
}
