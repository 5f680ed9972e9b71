package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/persona/internal/cli"
	"github.com/aretw0/persona/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "persona",
	Short: "Persona runs state-machine driven conversational agents",
	Long: `Persona binds an agent profile to a role (a finite state machine of
conversation states) and drives it turn by turn, using a language model or
keyword matching to recognize events in what the user says.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		loaded.ApplyEnv()
		applyFlags(cmd, loaded)
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		l, err := cli.NewLogger(loaded.Log)
		if err != nil {
			return err
		}
		cfg, logger = loaded, l
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to the configuration file (default ./persona.yaml)")
	flags.String("dir", "", "Directory containing role_template, agent_template and target_template")
	flags.String("provider", "", "Intent resolver: keyword, openai or anthropic")
	flags.String("strategy", "", "Detection strategy: event or tool_call")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
}

// applyFlags overrides cfg with the flags set on the command line.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	set := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	set("dir", &c.Templates.Dir)
	set("provider", &c.LLM.Provider)
	set("strategy", &c.LLM.Strategy)
	set("log-level", &c.Log.Level)
	c.ResolveAPIKey()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// buildRuntime wires the engine from the loaded configuration.
func buildRuntime(ctx context.Context) (*cli.Runtime, error) {
	return cli.Build(ctx, cfg, logger)
}
