package main

import (
	"context"
	"fmt"

	"github.com/aretw0/persona/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <role>",
	Short: "Export a role as a Mermaid diagram",
	Long:  `Loads a role template and prints a Mermaid flowchart (graph TD) of its states and transitions.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		role, err := rt.Engine.Role(ctx, args[0])
		if err != nil {
			return fmt.Errorf("error loading role: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(role, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
