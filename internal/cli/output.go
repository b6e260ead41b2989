package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mcoot/topten/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

// PrintValue outputs a single named value
func (o *Output) PrintValue(name, value string) {
	if o.format == "json" {
		o.printJSON(map[string]string{name: value})
	} else {
		fmt.Fprintln(o.w, value)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.RoomState:
		o.printRoom(v.Room)
		if v.Room.Status == "playing" {
			fmt.Fprintf(o.w, "Time left: %s\n", (time.Duration(v.TimeRemainingMs) * time.Millisecond).Round(time.Second))
			if v.CanSubmit {
				fmt.Fprintln(o.w, "It is your turn")
			} else if v.Reason != "" {
				fmt.Fprintf(o.w, "Cannot submit: %s\n", v.Reason)
			}
		}
	case response.SubmitResult:
		o.printSubmitResult(v)
	case response.Eligibility:
		if v.Allowed {
			fmt.Fprintln(o.w, "You may submit")
		} else {
			fmt.Fprintf(o.w, "Cannot submit: %s\n", v.Reason)
		}
	case response.StreamMessage:
		if v.Type == response.StreamDeleted || v.Room == nil {
			fmt.Fprintln(o.w, "Room deleted")
			return
		}
		fmt.Fprintf(o.w, "--- %s ---\n", v.Room.LastActivity.Local().Format("15:04:05"))
		o.printRoom(*v.Room)
	case response.Health:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
		fmt.Fprintf(o.w, "Storage: %s\n", v.Storage)
		fmt.Fprintf(o.w, "Categories: %s\n", strings.Join(v.Categories, ", "))
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printRoom(r response.Room) {
	fmt.Fprintf(o.w, "Room: %s\n", r.Code)
	fmt.Fprintf(o.w, "Status: %s\n", r.Status)
	if r.CategoryID != "" {
		fmt.Fprintf(o.w, "Category: %s\n", r.CategoryID)
	}

	fmt.Fprintf(o.w, "Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		var tags []string
		if p.IsHost {
			tags = append(tags, "host")
		}
		if !p.IsConnected {
			tags = append(tags, "away")
		}
		if p.Restricted {
			tags = append(tags, "restricted")
		}
		if p.ID == r.CurrentPlayerID {
			tags = append(tags, "turn")
		}
		suffix := ""
		if len(tags) > 0 {
			suffix = " [" + strings.Join(tags, ", ") + "]"
		}
		fmt.Fprintf(o.w, "  - %s (%s) %d pts%s\n", p.DisplayName, p.ID, r.Scores[p.ID], suffix)
	}

	if r.Question == nil {
		return
	}
	fmt.Fprintf(o.w, "\nQuestion %d of %d: %s\n", r.Cursor.QuestionIndex+1, r.QuestionCount, r.Question.Text)
	for rank := 1; rank <= r.Question.AnswerCount && rank <= len(r.Board); rank++ {
		slot := r.Board[rank-1]
		if slot == nil {
			fmt.Fprintf(o.w, "  %2d. ...\n", rank)
			continue
		}
		fmt.Fprintf(o.w, "  %2d. %s (%s, %d pts)\n", rank, slot.Text, slot.OwnerPlayerID, slot.Points)
	}
}

func (o *Output) printSubmitResult(r response.SubmitResult) {
	switch {
	case r.Matched:
		fmt.Fprintf(o.w, "Correct! Rank %d for %d points\n", r.Rank, r.Points)
	case r.AlreadyRevealed:
		fmt.Fprintf(o.w, "Already on the board at rank %d, no points\n", r.Rank)
	default:
		fmt.Fprintln(o.w, "Not on the board")
	}
	if r.QuestionComplete {
		fmt.Fprintln(o.w, "Question complete!")
	}
	if r.GameFinished {
		fmt.Fprintln(o.w, "Game over!")
	}
	if r.Room != nil {
		fmt.Fprintln(o.w)
		o.printRoom(*r.Room)
	}
}
