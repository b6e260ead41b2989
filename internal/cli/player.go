package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newPlayerCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Local player identity",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "id",
		Short: "Show the player ID used for requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			s.out.PrintValue("player_id", s.cfg.PlayerID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <id>",
		Short: "Save a player ID for future requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return fmt.Errorf("player id must not be empty")
			}
			if err := s.cfg.SavePlayerID(id); err != nil {
				return fmt.Errorf("failed to save player id: %w", err)
			}
			s.out.PrintValue("player_id", id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Generate and save a fresh player ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			id := uuid.NewString()
			if err := s.cfg.SavePlayerID(id); err != nil {
				return fmt.Errorf("failed to save player id: %w", err)
			}
			s.out.PrintValue("player_id", id)
			return nil
		},
	})

	return cmd
}
