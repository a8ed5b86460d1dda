package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MannPATIRA/pascal-ai/internal/session"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored sessions",
	}
	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsShowCmd())
	return cmd
}

func sessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "list",
		Short:        "List sessions, most recently updated first",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			items, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, item := range items {
				fmt.Printf("%s\t%s\t%s\t%d turns\n", item.ID, item.UpdatedAt, item.LastStatus, item.TurnCount)
			}
			return nil
		},
	}
}

func sessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "show <session-id>",
		Short:        "Show one session's turns and last reply state",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			sess, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("session: %s\nlast_status: %s\n", sess.ID, sess.LastStatus)
			if len(sess.LastActions) > 0 {
				raw, err := json.MarshalIndent(sess.LastActions, "", "  ")
				if err != nil {
					return err
				}
				fmt.Printf("last_actions:\n%s\n", raw)
			}
			for i, turn := range sess.Turns {
				fmt.Printf("[%d] %s: %s\n", i+1, turn.Role, turn.Content)
			}
			return nil
		},
	}
}

func openStore() (*session.Store, func(), error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, func() {}, err
	}
	cfg, err := loadConfig(workDir)
	if err != nil {
		return nil, func() {}, err
	}
	storeDB, closeFn, err := openDB(cfg)
	if err != nil {
		return nil, func() {}, err
	}
	return session.NewStore(storeDB), closeFn, nil
}
