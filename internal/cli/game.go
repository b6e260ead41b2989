package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/topten/internal/api/request"
	"github.com/mcoot/topten/internal/api/response"
)

func newGameCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameStartCmd(s))
	cmd.AddCommand(newGameAnswerCmd(s))
	cmd.AddCommand(newGameTimeoutCmd(s))
	cmd.AddCommand(newGameEligibilityCmd(s))
	cmd.AddCommand(newGameEndCmd(s))

	return cmd
}

func newGameStartCmd(s *session) *cobra.Command {
	var req request.StartGameRequest

	cmd := &cobra.Command{
		Use:   "start <code>",
		Short: "Start the game (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.RoomState
			if err := s.client.Post(cmd.Context(), roomPath(args[0], "start"), req, &result); err != nil {
				return err
			}
			s.out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&req.TurnTimeLimit, "turn-limit", 0, "Seconds per turn (default: server default)")

	return cmd
}

func newGameAnswerCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "answer <code> <guess...>",
		Short: "Submit a guess on your turn",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.SubmitAnswerRequest{Text: strings.Join(args[1:], " ")}

			var result response.SubmitResult
			if err := s.client.Post(cmd.Context(), roomPath(args[0], "answers"), req, &result); err != nil {
				return err
			}
			s.out.Print(result)
			return nil
		},
	}
}

func newGameTimeoutCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "timeout <code>",
		Short: "Skip the current player once their time has run out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.RoomState
			if err := s.client.Post(cmd.Context(), roomPath(args[0], "timeout"), nil, &result); err != nil {
				return err
			}
			s.out.Print(result)
			return nil
		},
	}
}

func newGameEligibilityCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "can-submit <code>",
		Short: "Check whether you may submit right now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Eligibility
			if err := s.client.Get(cmd.Context(), roomPath(args[0], "eligibility"), &result); err != nil {
				return err
			}
			s.out.Print(result)
			return nil
		},
	}
}

func newGameEndCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "end <code>",
		Short: "End the game early (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.RoomState
			if err := s.client.Post(cmd.Context(), roomPath(args[0], "end"), nil, &result); err != nil {
				return err
			}
			s.out.Print(result)
			return nil
		},
	}
}
