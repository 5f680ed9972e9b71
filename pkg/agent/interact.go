package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/aretw0/persona/pkg/registry"
	"github.com/aretw0/persona/pkg/schema"
)

// group holds the invocations detected for one event, in detection order.
type group struct {
	event string
	calls []ports.Invocation
}

// Interact runs one turn of the conversation:
//
//  1. ask the resolver which event the input refers to,
//  2. keep the actions both authorized by the state for that event and
//     registered under the event's scope,
//  3. run them, each in isolation,
//  4. mark the state completed,
//  5. follow the HIGHEST-priority transition conditioned on the event
//     (first listed on ties), or stay,
//  6. build the response.
//
// Interact never fails: errors and panics become a response with Success
// false, and the agent stays where it was. When no event is recognized the
// turn is a no-op apart from the history, and the model reply is echoed.
func (a *Agent) Interact(ctx context.Context, input string) domain.AgentResponse {
	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	started := time.Now()
	state := a.CurrentState()
	a.logger.Debug("turn started", "engagement_id", a.id, "state", state.Name)

	resp, err := a.safeTurn(ctx, state, input)
	if err != nil {
		a.logger.Warn("turn failed", "engagement_id", a.id, "state", state.Name, "err", err)
		resp = domain.Failure(err)
		resp.State = state.Name
	}

	a.logger.Debug("turn completed",
		"engagement_id", a.id,
		"state", resp.State,
		"event", resp.Event,
		"success", resp.Success,
	)
	if hook := a.hooks.OnTurn; hook != nil {
		a.guard(domain.EventTurnCompleted, func() {
			hook(ctx, &domain.TurnEvent{
				EventBase: a.base(domain.EventTurnCompleted),
				State:     resp.State,
				Success:   resp.Success,
				Duration:  time.Since(started),
			})
		})
	}
	return resp
}

func (a *Agent) safeTurn(ctx context.Context, state domain.State, input string) (resp domain.AgentResponse, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("interaction panicked: %v", p)
		}
	}()
	return a.turn(ctx, state, input)
}

func (a *Agent) turn(ctx context.Context, state domain.State, input string) (domain.AgentResponse, error) {
	if a.resolver == nil {
		a.record(input, "")
		return domain.AgentResponse{}, &domain.DetectionError{Err: errors.New("no intent resolver configured")}
	}

	det, err := a.resolver.Resolve(ctx, a.request(state, input))
	a.record(input, det.Reply)
	if err != nil {
		return domain.AgentResponse{}, &domain.DetectionError{Err: err}
	}

	groups := a.group(state, det)
	if len(groups) == 0 {
		return domain.AgentResponse{
			Message: domain.Message{Text: det.Reply},
			Success: true,
			State:   state.Name,
		}, nil
	}

	event := groups[0].event
	if hook := a.hooks.OnEventDetected; hook != nil {
		a.guard(domain.EventDetected, func() {
			hook(ctx, &domain.DetectionEvent{
				EventBase: a.base(domain.EventDetected),
				State:     state.Name,
				Event:     event,
				Strategy:  string(a.strategy),
			})
		})
	}

	results := a.execute(domain.ContextWithTarget(ctx, a.target), state, groups)
	next := a.complete(ctx, state, event)
	return respond(det, event, next, results), nil
}

func (a *Agent) request(state domain.State, input string) ports.DetectionRequest {
	req := ports.DetectionRequest{
		Strategy:         a.strategy,
		AgentName:        a.profile.Name,
		AgentDescription: a.profile.Description,
		Goal:             a.profile.Goal,
		StateName:        state.Name,
		StateDescription: state.Description,
		FormattedState:   state.FormattedState(),
		EventList:        state.FormattedEventList(),
		Input:            input,
		History:          a.History(),
	}
	for _, name := range state.EventNames() {
		req.Events = append(req.Events, ports.EventOption{Name: name, Description: state.Events[name].Description})
	}
	if a.strategy == ports.StrategyToolCall {
		req.Tools = a.tools(state)
	}
	return req
}

// tools offers one tool per action that is both authorized and registered.
func (a *Agent) tools(state domain.State) []schema.ToolDefinition {
	var defs []schema.ToolDefinition
	for _, name := range state.EventNames() {
		ev := state.Events[name]
		for _, declared := range ev.Actions {
			action, ok := a.registry.Lookup(name, declared.Name)
			if !ok {
				continue
			}
			description := action.Description
			if description == "" {
				description = declared.Description
			}
			if description == "" {
				description = ev.Description
			}
			defs = append(defs, schema.Tool(ports.ToolName(name, declared.Name), description, action.Params))
		}
	}
	return defs
}

// group normalizes both detection shapes into event groups.
// Events the current state does not recognize are dropped.
func (a *Agent) group(state domain.State, det ports.Detection) []group {
	if len(det.Invocations) == 0 {
		if det.Event == "" {
			return nil
		}
		ev, ok := state.Event(det.Event)
		if !ok {
			a.logger.Debug("ignoring unknown event", "engagement_id", a.id, "state", state.Name, "event", det.Event)
			return nil
		}
		g := group{event: ev.Name}
		for _, act := range ev.Actions {
			g.calls = append(g.calls, ports.Invocation{Event: ev.Name, Action: act.Name})
		}
		return []group{g}
	}

	var groups []group
	index := make(map[string]int)
	for _, inv := range det.Invocations {
		if inv.Event == "" {
			if event, action, ok := ports.SplitToolName(inv.Action); ok {
				inv.Event, inv.Action = event, action
			}
		}
		if _, ok := state.Event(inv.Event); !ok {
			a.logger.Debug("ignoring invocation for unknown event",
				"engagement_id", a.id,
				"state", state.Name,
				"event", inv.Event,
				"action", inv.Action,
			)
			continue
		}
		i, seen := index[inv.Event]
		if !seen {
			i = len(groups)
			index[inv.Event] = i
			groups = append(groups, group{event: inv.Event})
		}
		groups[i].calls = append(groups[i].calls, inv)
	}
	return groups
}

// execute runs the calls that pass the two-sided authorization check.
// Anything else is left out of the results without being reported.
func (a *Agent) execute(ctx context.Context, state domain.State, groups []group) []domain.TaskResult {
	var results []domain.TaskResult
	for _, g := range groups {
		ev, _ := state.Event(g.event)
		for _, call := range g.calls {
			if !ev.Authorizes(call.Action) {
				a.logger.Debug("action not authorized", "engagement_id", a.id, "state", state.Name, "scope", g.event, "action", call.Action)
				continue
			}
			action, ok := a.registry.Lookup(g.event, call.Action)
			if !ok {
				a.logger.Debug("action not registered", "engagement_id", a.id, "scope", g.event, "action", call.Action)
				continue
			}
			results = append(results, domain.TaskResult{
				Event:    g.event,
				Action:   action.Name,
				Response: a.run(ctx, g.event, action, call.Arguments),
			})
		}
	}
	return results
}

func (a *Agent) run(ctx context.Context, scope string, action registry.Action, args map[string]any) domain.TaskResponse {
	a.emitAction(ctx, domain.EventActionCall, scope, action.Name, args, nil, false)

	out, err := action.Call(ctx, args)
	var res domain.TaskResponse
	if err != nil {
		err = &domain.ActionExecutionError{Scope: scope, Action: action.Name, Err: err}
		a.logger.Warn("action failed", "engagement_id", a.id, "scope", scope, "action", action.Name, "err", err)
		res = domain.FailedTask(err)
		a.emitAction(ctx, domain.EventActionReturn, scope, action.Name, args, err.Error(), true)
	} else {
		res = domain.CompletedTask(out)
		a.emitAction(ctx, domain.EventActionReturn, scope, action.Name, args, out, false)
	}

	a.mu.Lock()
	a.actions[actionKey{scope, action.Name}] = res.Status
	a.mu.Unlock()
	return res
}

func (a *Agent) emitAction(ctx context.Context, t domain.EventType, scope, name string, in, out any, isErr bool) {
	hook := a.hooks.OnActionCall
	if t == domain.EventActionReturn {
		hook = a.hooks.OnActionReturn
	}
	if hook == nil {
		return
	}
	a.guard(t, func() {
		hook(ctx, &domain.ActionEvent{
			EventBase: a.base(t),
			Scope:     scope,
			Action:    name,
			Input:     in,
			Output:    out,
			IsError:   isErr,
		})
	})
}

// complete records the state as completed and follows the event's transition.
// It returns the state the agent ends the turn in.
func (a *Agent) complete(ctx context.Context, state domain.State, event string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.statuses[state.Name] = domain.StatusCompleted
	if t, ok := selectTransition(state, event); ok && t.To != state.Name {
		a.move(ctx, state, t.To)
	}
	return a.current
}

// selectTransition picks the highest-priority transition conditioned on event.
func selectTransition(s domain.State, event string) (domain.Transition, bool) {
	var best *domain.Transition
	for i := range s.Transitions {
		t := &s.Transitions[i]
		if !t.Matches(event) {
			continue
		}
		if best == nil || t.Priority > best.Priority {
			best = t
		}
	}
	if best == nil {
		return domain.Transition{}, false
	}
	return *best, true
}

func respond(det ports.Detection, event, state string, results []domain.TaskResult) domain.AgentResponse {
	resp := domain.AgentResponse{
		Success: true,
		Event:   event,
		State:   state,
	}
	for _, r := range results {
		resp.TaskResponses = append(resp.TaskResponses, r.Response)
		if r.Response.Status == domain.TaskFailed {
			resp.Success = false
		}
	}
	if len(results) > 0 {
		resp.Message.TaskResults = results
	} else {
		resp.Message.Text = det.Reply
	}
	return resp
}

// record appends the user input and the model reply, in that order.
func (a *Agent) record(input, reply string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, domain.Turn{Role: domain.SpeakerUser, Content: input})
	if reply != "" {
		a.history = append(a.history, domain.Turn{Role: domain.SpeakerAssistant, Content: reply})
	}
}
