package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/topten/internal/api/response"
)

func newWatchCmd(s *session) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "watch <code>",
		Short: "Stream a room's state live",
		Long: `Connect to the room's websocket stream and print every committed state.

Watching counts as being connected: closing the stream starts the grace
period after which a member is removed from the room.

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return s.watch(ctx, args[0], limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Disconnect after this many messages (0 streams until interrupted)")

	return cmd
}

func (s *session) watch(ctx context.Context, code string, limit int) error {
	header := http.Header{}
	header.Set("X-Player-ID", s.cfg.PlayerID)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.client.StreamURL(code), header)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed: HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Unblock the read loop on interrupt
	stopped := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopped()

	if s.cfg.Verbose {
		s.out.PrintMessage(fmt.Sprintf("Connected to room %s", code))
	}

	for received := 0; limit == 0 || received < limit; received++ {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		var msg response.StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("bad stream message: %w", err)
		}
		s.out.Print(msg)

		if msg.Type == response.StreamDeleted {
			return nil
		}
	}

	err = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("close stream: %w", err)
	}
	return nil
}
