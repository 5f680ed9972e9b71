package main

import (
	"context"
	"fmt"

	"github.com/aretw0/persona/internal/validator"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [role...]",
	Short: "Check role templates for consistency",
	Long: `Loads every role template (or the ones named) and reports undefined
transition targets, unreachable states, missing start or end states, and
actions that are not registered for their event.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		ids := args
		if len(ids) == 0 {
			ids, err = rt.Engine.Templates(ctx, ports.KindRole)
			if err != nil {
				return err
			}
		}

		failed := 0
		for _, id := range ids {
			role, err := rt.Engine.Role(ctx, id)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", id, err)
				failed++
				continue
			}
			issues := validator.Lint(role, rt.Engine.Registry())
			for _, issue := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, issue)
				if issue.Severity == validator.SeverityError {
					failed++
				}
			}
		}
		if failed > 0 {
			return fmt.Errorf("validation failed: %d error(s) in %d role(s)", failed, len(ids))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d role(s) valid ✅\n", len(ids))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
