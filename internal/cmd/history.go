package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/Digital-Shane/episode-renamer/internal/log"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded rename sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summaries, err := log.GetSessionSummaries()
			if err != nil {
				return fmt.Errorf("failed to read log sessions: %w", err)
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No rename sessions recorded.")
				return nil
			}
			if limit > 0 && len(summaries) > limit {
				summaries = summaries[:limit]
			}

			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				meta := s.Session.Metadata
				command := ""
				if len(meta.CommandArgs) > 0 {
					command = meta.CommandArgs[0]
				}
				rows = append(rows, []string{
					shortID(meta.SessionID),
					s.RelativeTime,
					command,
					meta.Show,
					meta.Root,
					strconv.Itoa(meta.SuccessfulOps),
					strconv.Itoa(meta.FailedOps),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "When", "Command", "Show", "Directory", "OK", "Failed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of sessions to list (0 for all)")
	return historyCmd
}

func newUndoCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "undo [session-id]",
		Short: "Reverse a recorded rename session",
		Long: `Move the files of a rename session back to their original names.

Without an argument the most recent session is undone. A session ID prefix
as printed by 'history' selects an older one. Files whose original name is
taken again are left alone.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			log.Initialize(cfg.EnableLogging, 0)

			var (
				session *log.LogSession
				file    string
			)
			if len(args) == 1 {
				session, file, err = log.FindSession(args[0])
			} else {
				session, file, err = log.FindLatestSession()
			}
			if err != nil {
				if errors.Is(err, log.ErrNoSessions) && len(args) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No rename sessions recorded.")
					return nil
				}
				return err
			}

			if err := log.StartSession("undo", []string{session.Metadata.SessionID}); err != nil {
				return fmt.Errorf("failed to start log session: %w", err)
			}
			log.Annotate(session.Metadata.Root, session.Metadata.Show)
			ok, failed, errs := log.UndoSession(session)
			if err := log.EndSession(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to save log session: %v\n", err)
			}

			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %v\n", e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Undid session %s: %d restored, %d failed\n", shortID(session.Metadata.SessionID), ok, failed)

			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be restored", failed, ok+failed)
			}
			if err := os.Remove(file); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to remove session file: %v\n", err)
			}
			return nil
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
