// Package ext ships the built-in action extensions of the restaurant guide.
//
// Each extension is a registry scope named after the event that triggers it.
// The handlers do not talk to the user; they report "True" once the agent
// should ask for (or has been given) the piece of information they name, and
// record any detail the model extracted into the target's storage.
package ext

import (
	"context"
	"log/slog"

	"github.com/aretw0/persona/internal/logging"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/registry"
	"github.com/aretw0/persona/pkg/schema"
)

// Scope names.
const (
	CollectInfoScope     = "collect_info"
	DefaultFallbackScope = "default_fallback_event"
)

// Done is the result of every built-in action.
const Done = "True"

// Record is what collect_info actions append to the target storage.
type Record struct {
	Action string         `json:"action"`
	Data   map[string]any `json:"data,omitempty"`
}

// CollectInfo returns the extension that gathers the visitor's preferences.
func CollectInfo(logger *slog.Logger) registry.Extension {
	if logger == nil {
		logger = logging.NewNop()
	}
	ask := func(name, description, what string, params ...schema.Param) registry.Action {
		return registry.Action{
			Name:        name,
			Description: description,
			Params:      schema.New(params...),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				logger.Info("collecting info", "action", name, "asking_for", what)
				if t, ok := domain.TargetFromContext(ctx); ok && hasValues(args) {
					t.AddStorage(Record{Action: name, Data: args})
				}
				return Done, nil
			},
		}
	}
	optional := func(name string, kind schema.Kind, description string) schema.Param {
		return schema.Param{Name: name, Kind: kind, Description: description, Default: ""}
	}

	return registry.Module{
		Name: CollectInfoScope,
		Entries: []registry.Action{
			ask("ask_geo_location", "Ask where the user is", "geographical location",
				optional("location", schema.KindString, "City or neighbourhood the user mentioned")),
			ask("ask_credit_card_type_issuer", "Ask which credit card the user holds", "credit card type and issuer",
				optional("card", schema.KindString, "Card type and issuer the user mentioned")),
			ask("ask_price_range", "Ask how much the user wants to spend", "price range",
				optional("price_range", schema.KindString, "Budget the user mentioned")),
			ask("ask_rating_range", "Ask which ratings the user accepts", "rating range",
				optional("min_rating", schema.KindString, "Lowest rating the user accepts")),
			ask("ask_customize_preferences", "Ask for any other preference", "customized preferences",
				optional("preferences", schema.KindString, "Free-form preferences")),
		},
	}
}

// DefaultFallback returns the extension used when the user drifts off topic.
func DefaultFallback(logger *slog.Logger) registry.Extension {
	if logger == nil {
		logger = logging.NewNop()
	}
	return registry.Module{
		Name: DefaultFallbackScope,
		Entries: []registry.Action{{
			Name:        "gently_ask_for_relevant_information",
			Description: "Steer the user back to the topic",
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				logger.Info("target is asking for information unrelated to the role")
				return Done, nil
			},
		}},
	}
}

// All returns every built-in extension.
func All(logger *slog.Logger) []registry.Extension {
	return []registry.Extension{CollectInfo(logger), DefaultFallback(logger)}
}

func hasValues(args map[string]any) bool {
	for _, v := range args {
		if v != nil && v != "" {
			return true
		}
	}
	return false
}
