// Package openai provides a ports.IntentResolver backed by the OpenAI Chat
// Completions API. The event strategy asks the model for an event name; the
// tool-call strategy offers the authorized actions as functions.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/persona/internal/detect"
	"github.com/aretw0/persona/internal/logging"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/aretw0/persona/pkg/prompt"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Options configure the resolver.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	// APIKey and BaseURL override the OPENAI_API_KEY / OPENAI_BASE_URL environment.
	APIKey  string
	BaseURL string
	// FallbackReply is used when the model answers that no event applies.
	FallbackReply string

	Prompts *prompt.Store
	Logger  *slog.Logger
}

// Resolver implements ports.IntentResolver.
type Resolver struct {
	client *openai.Client
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
	client := openai.NewClient(clientOpts...)
	return &Resolver{client: &client, opts: opts}
}

// NewFromClient creates a resolver over an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Resolver {
	return &Resolver{client: client, opts: defaults(optFns)}
}

func defaults(optFns []func(o *Options)) Options {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.2,
		MaxCompletionTokens: 1024,
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
	msg, err := r.complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
		openai.UserMessage(user),
	}, nil)
	if err != nil {
		return ports.Detection{}, err
	}

	if event, ok := detect.MatchEvent(msg.Content, req.Events); ok {
		r.opts.Logger.Debug("event detected", "state", req.StateName, "event", event)
		return ports.Detection{Event: event}, nil
	}
	if detect.IsNone(msg.Content) {
		return ports.Detection{Reply: r.opts.FallbackReply}, nil
	}
	r.opts.Logger.Debug("model answer names no offered event", "state", req.StateName, "answer", msg.Content)
	return ports.Detection{Reply: msg.Content}, nil
}

func (r *Resolver) resolveTools(ctx context.Context, req ports.DetectionRequest) (ports.Detection, error) {
	system, err := detect.ToolPrompt(r.opts.Prompts, req)
	if err != nil {
		return ports.Detection{}, err
	}
	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(system)}
	for _, turn := range req.History {
		if turn.Role == domain.SpeakerAssistant {
			messages = append(messages, openai.AssistantMessage(turn.Content))
		} else {
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(req.Input))

	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Function.Name,
				Description: openai.String(tdef.Function.Description),
				Parameters:  tdef.Function.Parameters,
			},
		}
	}

	msg, err := r.complete(ctx, messages, tools)
	if err != nil {
		return ports.Detection{}, err
	}

	det := ports.Detection{Reply: msg.Content}
	for _, tc := range msg.ToolCalls {
		args, err := detect.Arguments(tc.Function.Arguments)
		if err != nil {
			return ports.Detection{}, fmt.Errorf("tool %s: %w", tc.Function.Name, err)
		}
		det.Invocations = append(det.Invocations, ports.Invocation{Action: tc.Function.Name, Arguments: args})
	}
	return det, nil
}

func (r *Resolver) complete(
	ctx context.Context,
	messages []openai.ChatCompletionMessageParamUnion,
	tools []openai.ChatCompletionToolParam,
) (openai.ChatCompletionMessage, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               r.opts.Model,
		Temperature:         openai.Float(r.opts.Temperature),
		MaxCompletionTokens: openai.Int(r.opts.MaxCompletionTokens),
	}
	if len(tools) > 0 {
		params.Tools = tools
	}
	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, errors.New("no choices returned")
	}
	return resp.Choices[0].Message, nil
}
