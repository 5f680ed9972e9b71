package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/persona/internal/cli"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/spf13/cobra"
)

var engagementCmd = &cobra.Command{
	Use:     "engagement",
	Aliases: []string{"eng"},
	Short:   "Manage stored transcripts",
	Long:    `List, show, and remove the engagement transcripts kept by the file or redis backend.`,
}

var engagementLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored engagements",
	RunE: func(cmd *cobra.Command, args []string) error {
		sink, closeSink, err := openSink(cmd)
		if err != nil {
			return err
		}
		defer closeSink()

		ids, err := sink.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing engagements: %w", err)
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No stored engagements found.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), "- "+id)
		}
		return nil
	},
}

var engagementShowCmd = &cobra.Command{
	Use:   "show <engagement-id>",
	Short: "Print the transcript of an engagement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sink, closeSink, err := openSink(cmd)
		if err != nil {
			return err
		}
		defer closeSink()

		turns, err := sink.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading engagement '%s': %w", args[0], err)
		}
		data, err := json.MarshalIndent(turns, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var engagementRmCmd = &cobra.Command{
	Use:   "rm <engagement-id>...",
	Short: "Remove one or more transcripts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sink, closeSink, err := openSink(cmd)
		if err != nil {
			return err
		}
		defer closeSink()

		var errs []error
		for _, id := range args {
			if err := sink.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed engagement '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(engagementCmd)
	engagementCmd.AddCommand(engagementLsCmd)
	engagementCmd.AddCommand(engagementShowCmd)
	engagementCmd.AddCommand(engagementRmCmd)
}

func openSink(cmd *cobra.Command) (ports.TranscriptSink, func() error, error) {
	sink, _, closer, err := cli.OpenTranscript(cmd.Context(), cfg.Transcript)
	if err != nil {
		return nil, nil, err
	}
	if sink == nil {
		return nil, nil, fmt.Errorf("transcript backend %q keeps nothing to manage: use file or redis", cfg.Transcript.Backend)
	}
	if closer == nil {
		closer = func() error { return nil }
	}
	return sink, closer, nil
}
