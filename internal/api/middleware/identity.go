package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/topten/internal/api/apierr"
	"github.com/mcoot/topten/internal/model"
)

type contextKey string

const playerIDContextKey contextKey = "player_id"

// PlayerIDHeader carries the caller's opaque player ID
const PlayerIDHeader = "X-Player-ID"

// maxPlayerIDLength bounds IDs issued by the identity provider
const maxPlayerIDLength = 128

// Identity requires every request to name its player. Websocket clients cannot
// set headers, so the player_id query parameter is accepted as well.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := extractPlayerID(r)
			if id == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}
			if len(id) > maxPlayerIDLength {
				apierr.WriteError(w, apierr.NewInvalidRequestError("player ID is too long"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPlayerID(r.Context(), id)))
		})
	}
}

func extractPlayerID(r *http.Request) model.PlayerID {
	if id := strings.TrimSpace(r.Header.Get(PlayerIDHeader)); id != "" {
		return model.PlayerID(id)
	}
	return model.PlayerID(strings.TrimSpace(r.URL.Query().Get("player_id")))
}

// WithPlayerID returns a context carrying the caller's player ID
func WithPlayerID(ctx context.Context, id model.PlayerID) context.Context {
	return context.WithValue(ctx, playerIDContextKey, id)
}

// GetPlayerID returns the caller's player ID from the request context
func GetPlayerID(ctx context.Context) model.PlayerID {
	id, _ := ctx.Value(playerIDContextKey).(model.PlayerID)
	return id
}

// MustGetPlayerID returns the caller's player ID or panics
func MustGetPlayerID(ctx context.Context) model.PlayerID {
	id := GetPlayerID(ctx)
	if id == "" {
		panic("no player ID in context - identity middleware not applied?")
	}
	return id
}
