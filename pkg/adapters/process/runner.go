// Package process runs allow-listed external commands as registry actions.
//
// Arguments reach the command as PERSONA_ARG_<NAME> environment variables,
// never as flags. Standard output is the action result, decoded as JSON when
// it looks like a JSON object or array.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/persona/pkg/registry"
	"github.com/aretw0/persona/pkg/schema"
)

// DefaultGracePeriod is how long a cancelled command may take to exit after
// an interrupt before it is killed.
const DefaultGracePeriod = 5 * time.Second

// Runner executes local processes.
type Runner struct {
	baseDir string
	grace   time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) { r.baseDir = dir }
}

// WithGracePeriod overrides DefaultGracePeriod.
func WithGracePeriod(d time.Duration) RunnerOption {
	return func(r *Runner) { r.grace = d }
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{grace: DefaultGracePeriod}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one configured action with args.
func (r *Runner) Run(ctx context.Context, action ActionConfig, args map[string]any) (any, error) {
	cmd := exec.CommandContext(ctx, action.Command, action.Args...)
	cmd.Dir = r.baseDir
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = r.grace

	env := cmd.Environ()
	for k, v := range action.Environment {
		env = append(env, k+"="+v)
	}
	cmd.Env = append(env, argsEnv(args)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", err, ctxErr)
		}
		return nil, fmt.Errorf("execution failed: %w. Stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return decodeOutput(stdout.String()), nil
}

// argsEnv serializes args as sorted PERSONA_ARG_ variables.
func argsEnv(args map[string]any) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		var val string
		switch v := args[k].(type) {
		case nil:
		case string:
			val = v
		case int, int64, float64, bool, json.Number:
			val = fmt.Sprintf("%v", v)
		default:
			if b, err := json.Marshal(v); err == nil {
				val = string(b)
			} else {
				val = fmt.Sprintf("%v", v)
			}
		}
		env = append(env, "PERSONA_ARG_"+strings.ToUpper(k)+"="+val)
	}
	return env
}

func decodeOutput(output string) any {
	trimmed := strings.TrimSpace(output)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return trimmed
}

// Extensions groups actions by scope into registry extensions run by r.
func (r *Runner) Extensions(actions []ActionConfig) []registry.Extension {
	byScope := make(map[string]*registry.Module)
	var order []string
	for _, a := range actions {
		m, ok := byScope[a.Scope]
		if !ok {
			m = &registry.Module{Name: a.Scope}
			byScope[a.Scope] = m
			order = append(order, a.Scope)
		}
		m.Entries = append(m.Entries, r.action(a))
	}

	exts := make([]registry.Extension, 0, len(order))
	for _, scope := range order {
		exts = append(exts, *byScope[scope])
	}
	return exts
}

func (r *Runner) action(a ActionConfig) registry.Action {
	action := registry.Action{
		Name:        a.Name,
		Description: a.Description,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return r.Run(ctx, a, args)
		},
	}
	if len(a.Params) > 0 {
		action.Params = schema.New(a.Params...)
	}
	return action
}
