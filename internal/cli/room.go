package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/topten/internal/api/request"
	"github.com/mcoot/topten/internal/api/response"
)

func newRoomCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room management commands",
	}

	cmd.AddCommand(newRoomCreateCmd(s))
	cmd.AddCommand(newRoomGetCmd(s))
	cmd.AddCommand(newRoomJoinCmd(s))
	cmd.AddCommand(newRoomLeaveCmd(s))
	cmd.AddCommand(newRoomCloseCmd(s))
	cmd.AddCommand(newRoomReconnectCmd(s))

	return cmd
}

func newRoomCreateCmd(s *session) *cobra.Command {
	var req request.CreateRoomRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room and become its host",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.RoomState
			if err := s.client.Post(cmd.Context(), "/api/v1/rooms", req, &result); err != nil {
				return err
			}
			s.out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.CategoryID, "category", "", "Question category (required)")
	cmd.Flags().StringVar(&req.DisplayName, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func newRoomGetCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Get room details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.RoomState
			if err := s.client.Get(cmd.Context(), roomPath(args[0]), &result); err != nil {
				return err
			}
			s.out.Print(result)
			return nil
		},
	}
}

func newRoomJoinCmd(s *session) *cobra.Command {
	var req request.JoinRoomRequest

	cmd := &cobra.Command{
		Use:   "join <code>",
		Short: "Join a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.RoomState
			if err := s.client.Post(cmd.Context(), roomPath(args[0], "join"), req, &result); err != nil {
				return err
			}
			s.out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.DisplayName, "name", "", "Display name")

	return cmd
}

func newRoomLeaveCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "leave <code>",
		Short: "Leave a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.client.Post(cmd.Context(), roomPath(args[0], "leave"), nil, nil); err != nil {
				return err
			}
			s.out.PrintMessage(fmt.Sprintf("Left room %s", args[0]))
			return nil
		},
	}
}

func newRoomCloseCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "close <code>",
		Short: "Close the room (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.RoomState
			if err := s.client.Delete(cmd.Context(), roomPath(args[0]), &result); err != nil {
				return err
			}
			s.out.Print(result)
			return nil
		},
	}
}

func newRoomReconnectCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "reconnect <code>",
		Short: "Mark yourself connected again after dropping out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.RoomState
			if err := s.client.Post(cmd.Context(), roomPath(args[0], "reconnect"), nil, &result); err != nil {
				return err
			}
			s.out.Print(result)
			return nil
		},
	}
}
