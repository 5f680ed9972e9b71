// Package anthropic provides a ports.IntentResolver backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/aretw0/persona/internal/detect"
	"github.com/aretw0/persona/internal/logging"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/aretw0/persona/pkg/prompt"
	"github.com/aretw0/persona/pkg/schema"
)

// Options configure the resolver.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
	BaseURL     string
	// FallbackReply is used when the model answers that no event applies.
	FallbackReply string

	Prompts *prompt.Store
	Logger  *slog.Logger
}

// Resolver implements ports.IntentResolver.
type Resolver struct {
	client *anthropic.Client
	opts   Options
}

// New creates a resolver with its own client.
func New(optFns ...func(o *Options)) *Resolver {
	opts := defaults(optFns)
	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)
	return &Resolver{client: &client, opts: opts}
}

// NewFromClient creates a resolver over an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Resolver {
	return &Resolver{client: client, opts: defaults(optFns)}
}

func defaults(optFns []func(o *Options)) Options {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.2,
		MaxTokens:   1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Prompts == nil {
		opts.Prompts = prompt.NewDefault()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return opts
}

// Resolve implements ports.IntentResolver.
func (r *Resolver) Resolve(ctx context.Context, req ports.DetectionRequest) (ports.Detection, error) {
	if req.Strategy == ports.StrategyToolCall {
		return r.resolveTools(ctx, req)
	}
	return r.resolveEvent(ctx, req)
}

func (r *Resolver) resolveEvent(ctx context.Context, req ports.DetectionRequest) (ports.Detection, error) {
	system, user, err := detect.EventPrompt(r.opts.Prompts, req)
	if err != nil {
		return ports.Detection{}, err
	}
	text, _, err := r.send(ctx, system, []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
	}, nil)
	if err != nil {
		return ports.Detection{}, err
	}

	if event, ok := detect.MatchEvent(text, req.Events); ok {
		r.opts.Logger.Debug("event detected", "state", req.StateName, "event", event)
		return ports.Detection{Event: event}, nil
	}
	if detect.IsNone(text) {
		return ports.Detection{Reply: r.opts.FallbackReply}, nil
	}
	return ports.Detection{Reply: text}, nil
}

func (r *Resolver) resolveTools(ctx context.Context, req ports.DetectionRequest) (ports.Detection, error) {
	system, err := detect.ToolPrompt(r.opts.Prompts, req)
	if err != nil {
		return ports.Detection{}, err
	}
	var messages []anthropic.MessageParam
	for _, turn := range req.History {
		block := anthropic.NewTextBlock(turn.Content)
		if turn.Role == domain.SpeakerAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Input)))

	text, calls, err := r.send(ctx, system, messages, buildTools(req.Tools))
	if err != nil {
		return ports.Detection{}, err
	}
	return ports.Detection{Reply: text, Invocations: calls}, nil
}

// send runs one Messages call and splits the answer into text and tool uses.
func (r *Resolver) send(
	ctx context.Context,
	system string,
	messages []anthropic.MessageParam,
	tools []anthropic.ToolUnionParam,
) (string, []ports.Invocation, error) {
	params := anthropic.MessageNewParams{
		Model:       r.opts.Model,
		Messages:    messages,
		MaxTokens:   r.opts.MaxTokens,
		Temperature: anthropic.Float(r.opts.Temperature),
		System:      []anthropic.TextBlockParam{{Text: system}},
	}
	if len(tools) > 0 {
		params.Tools = tools
	}

	resp, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return "", nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder
	var calls []ports.Invocation
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "tool_use":
			use := block.AsToolUse()
			args, err := detect.Arguments(string(use.Input))
			if err != nil {
				return "", nil, fmt.Errorf("tool %s: %w", use.Name, err)
			}
			calls = append(calls, ports.Invocation{Action: use.Name, Arguments: args})
		}
	}
	return text.String(), calls, nil
}

func buildTools(defs []schema.ToolDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(defs))
	for i, def := range defs {
		input := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if props, ok := def.Function.Parameters["properties"]; ok {
			input.Properties = props
		}
		if required, ok := def.Function.Parameters["required"].([]string); ok {
			input.Required = required
		}
		tools[i] = anthropic.ToolUnionParamOfTool(input, def.Function.Name)
		if def.Function.Description != "" {
			tools[i].OfTool.Description = anthropic.String(def.Function.Description)
		}
	}
	return tools
}
