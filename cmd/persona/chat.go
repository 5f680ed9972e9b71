package main

import (
	"fmt"
	"os"

	"github.com/aretw0/persona/internal/cli"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to an agent in the terminal",
	Long: `Creates an engagement for the given agent, role and target templates and
reads user input line by line until the role reaches an end state, the input
ends, or "exit" is typed.`,
	Example: `  persona chat --agent mia --role restaurant_guide --target visitor
  echo '{"input":"I am in Lisbon"}' | persona chat --agent mia --role restaurant_guide --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		agentID, _ := cmd.Flags().GetString("agent")
		roleID, _ := cmd.Flags().GetString("role")
		targetID, _ := cmd.Flags().GetString("target")
		jsonMode, _ := cmd.Flags().GetBool("json")
		quiet, _ := cmd.Flags().GetBool("quiet")

		ctx, stop := signalContext()
		defer stop()

		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		id, err := cli.RunChat(ctx, rt.Engine, os.Stdin, os.Stdout, cli.ChatOptions{
			Request: ports.CreateRequest{Agent: agentID, Role: roleID, Target: targetID},
			JSON:    jsonMode,
			Quiet:   quiet,
		})
		if err != nil {
			return err
		}
		if !jsonMode && !quiet {
			fmt.Fprintf(os.Stderr, "engagement %s ended\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("agent", "", "Agent template id")
	chatCmd.Flags().String("role", "", "Role template id")
	chatCmd.Flags().String("target", "", "Target template id (optional)")
	chatCmd.Flags().Bool("json", false, "Read NDJSON input and write JSON responses")
	chatCmd.Flags().BoolP("quiet", "q", false, "Hide the banner and prompt")
	_ = chatCmd.MarkFlagRequired("agent")
	_ = chatCmd.MarkFlagRequired("role")
}
