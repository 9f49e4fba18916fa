package main

import (
	"fmt"
	"log/slog"

	"officepulse/domain"
	"officepulse/infrastructure/storage"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"
)

func newHistoryCmd(config *Config) *cobra.Command {
	limit := domain.DefaultHistoryCapacity
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the archived chat window straight from the Badger files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if config.BadgerFilepath == "" {
				return fmt.Errorf("no archive: set BADGER_FILEPATH or --db")
			}
			// BypassLockGuard lets the viewer read while the server holds the lock.
			db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
				WithReadOnly(true).
				WithBypassLockGuard(true).
				WithLoggingLevel(badger.WARNING))
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			repo := storage.NewHistoryRepository(db, logs.GetLoggerFromLevel(slog.LevelWarn))
			msgs, err := repo.Recent(config.Scope, limit)
			if err != nil {
				return err
			}
			table := newTable(cmd.OutOrStdout(), []string{"Time", "Author", "Lang", "Message"})
			for _, m := range msgs {
				table.Append([]string{clock(m.Timestamp), m.AuthorDisplay, m.Lang, m.Text})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&config.BadgerFilepath, "db", config.BadgerFilepath, "badger directory of the server")
	cmd.Flags().StringVar(&config.Scope, "scope", config.Scope, "history scope")
	cmd.Flags().IntVar(&limit, "limit", limit, "number of messages")
	return cmd
}
