package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/topten/internal/api"
	"github.com/mcoot/topten/internal/api/apierr"
	"github.com/mcoot/topten/internal/api/response"
	"github.com/mcoot/topten/internal/cli"
	"github.com/mcoot/topten/internal/factory"
	"github.com/mcoot/topten/internal/testutil"
)

// cliRunner runs the CLI in-process against a live test server
type cliRunner struct {
	serverURL  string
	playerFile string
}

func (r *cliRunner) run(t *testing.T, player string, args ...string) (string, error) {
	t.Helper()

	fullArgs := []string{
		"--server", r.serverURL,
		"--player-file", r.playerFile,
		"--output", "json",
	}
	if player != "" {
		fullArgs = append(fullArgs, "--player", player)
	}

	var out bytes.Buffer
	cmd := cli.NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(fullArgs, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func runJSON[T any](t *testing.T, r *cliRunner, player string, args ...string) T {
	t.Helper()
	out, err := r.run(t, player, args...)
	require.NoError(t, err, "topten %s", strings.Join(args, " "))

	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var reqErr *cli.RequestError
	require.True(t, errors.As(err, &reqErr), "expected an API error, got %v", err)
	assert.Equal(t, code, reqErr.Code)
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// startTestServer serves the production wiring with the bundled question pack
func startTestServer(t *testing.T) *cliRunner {
	t.Helper()

	app, err := factory.New(factory.Config{
		QuestionsPath: filepath.Join(findProjectRoot(t), "data", "questions.yaml"),
		Logger:        testutil.NopLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(app.Close)

	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		Supervisor:  app.Supervisor,
		Questions:   app.Questions,
		Hubs:        app.Hubs,
		StorageType: app.StorageType,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &cliRunner{
		serverURL:  server.URL,
		playerFile: filepath.Join(t.TempDir(), "player"),
	}
}

func TestHealth(t *testing.T) {
	r := startTestServer(t)

	health := runJSON[response.Health](t, r, "alice", "health")
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "memory", health.Storage)
	assert.Equal(t, []string{"animals", "food"}, health.Categories)
}

func TestHealthTextOutput(t *testing.T) {
	r := startTestServer(t)

	out, err := r.run(t, "alice", "--output", "text", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: ok")
	assert.Contains(t, out, "Categories: animals, food")
}

func TestPlayerIdentity(t *testing.T) {
	r := startTestServer(t)

	first := runJSON[map[string]string](t, r, "", "player", "id")
	require.NotEmpty(t, first["player_id"])

	// The generated identity is reused on later runs
	second := runJSON[map[string]string](t, r, "", "player", "id")
	assert.Equal(t, first["player_id"], second["player_id"])

	runJSON[map[string]string](t, r, "", "player", "set", "zed")
	third := runJSON[map[string]string](t, r, "", "player", "id")
	assert.Equal(t, "zed", third["player_id"])

	// The environment fills flags that were not given
	t.Setenv("TOPTEN_PLAYER", "dave")
	fromEnv := runJSON[map[string]string](t, r, "", "player", "id")
	assert.Equal(t, "dave", fromEnv["player_id"])
}

func TestFullGameViaCLI(t *testing.T) {
	r := startTestServer(t)

	created := runJSON[response.RoomState](t, r, "alice", "room", "create", "--category", "food", "--name", "Alice")
	code := created.Room.Code
	require.Len(t, code, 6)
	assert.Equal(t, "alice", created.Room.HostID)
	assert.Equal(t, 3, created.Room.QuestionCount)

	joined := runJSON[response.RoomState](t, r, "bob", "room", "join", strings.ToLower(code), "--name", "Bob")
	assert.Len(t, joined.Room.Players, 2)

	// A spectator sees the current state on connect
	snapshot := runJSON[response.StreamMessage](t, r, "carol", "watch", code, "--limit", "1")
	assert.Equal(t, response.StreamRoom, snapshot.Type)
	require.NotNil(t, snapshot.Room)
	assert.Equal(t, "lobby", snapshot.Room.Status)

	_, err := r.run(t, "bob", "game", "start", code)
	requireCode(t, err, apierr.CodeNotHost)

	started := runJSON[response.RoomState](t, r, "alice", "game", "start", code, "--turn-limit", "30")
	assert.Equal(t, "playing", started.Room.Status)
	assert.Equal(t, []string{"alice", "bob"}, started.Room.TurnOrder)
	assert.Equal(t, 30, started.Room.TurnTimeLimit)
	require.NotNil(t, started.Room.Question)
	assert.Equal(t, "Name a popular takeaway food", started.Room.Question.Text)

	_, err = r.run(t, "bob", "game", "answer", code, "pizza")
	requireCode(t, err, apierr.CodeNotYourTurn)

	hit := runJSON[response.SubmitResult](t, r, "alice", "game", "answer", code, "Pizza", "Pie")
	assert.True(t, hit.Matched)
	assert.Equal(t, 1, hit.Rank)
	assert.Equal(t, 100, hit.Points)

	repeat := runJSON[response.SubmitResult](t, r, "bob", "game", "answer", code, "pizza")
	assert.True(t, repeat.AlreadyRevealed)
	assert.Zero(t, repeat.Points)

	eligibility := runJSON[response.Eligibility](t, r, "alice", "game", "can-submit", code)
	assert.True(t, eligibility.Allowed)

	_, err = r.run(t, "alice", "game", "timeout", code)
	requireCode(t, err, apierr.CodeTurnNotExpired)

	ended := runJSON[response.RoomState](t, r, "alice", "game", "end", code)
	assert.Equal(t, "finished", ended.Room.Status)
	assert.Equal(t, 100, ended.Room.Scores["alice"])
	assert.Equal(t, 0, ended.Room.Scores["bob"])

	closed := runJSON[response.RoomState](t, r, "alice", "room", "close", code)
	assert.Equal(t, "closed", closed.Room.Status)

	out, err := r.run(t, "bob", "room", "leave", code)
	require.NoError(t, err)
	assert.Contains(t, out, "Left room")
}

func TestUnknownRoom(t *testing.T) {
	r := startTestServer(t)

	_, err := r.run(t, "alice", "room", "get", "NOPE00")
	requireCode(t, err, apierr.CodeRoomNotFound)

	_, err = r.run(t, "alice", "watch", "NOPE00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}
