package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/topten/internal/dependencies/clock"
	"github.com/mcoot/topten/internal/events"
	"github.com/mcoot/topten/internal/model"
	"github.com/mcoot/topten/internal/services/room"
	"github.com/mcoot/topten/internal/storage"
)

// errNoChange aborts a transaction that has nothing to write
var errNoChange = errors.New("no change")

// Config holds supervisor settings
type Config struct {
	// MaxAttempts bounds tries of an operation that hits write conflicts
	MaxAttempts int
	// RetryBackoff is multiplied by the attempt number between conflict retries
	RetryBackoff time.Duration
	// ReconnectAttempts bounds retries while the store is unreachable
	ReconnectAttempts int
	// ReconnectBackoff doubles after every failed reconnect
	ReconnectBackoff time.Duration
	// RemovalGrace is how long a disconnected player keeps their seat
	RemovalGrace time.Duration
	// RateWindow and RateThreshold bound player actions per window
	RateWindow    time.Duration
	RateThreshold int
	// CleanupDelay is how long an empty room survives without activity
	CleanupDelay time.Duration
}

// DefaultConfig returns the default supervisor configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		RetryBackoff:      time.Second,
		ReconnectAttempts: 5,
		ReconnectBackoff:  500 * time.Millisecond,
		RemovalGrace:      5 * time.Minute,
		RateWindow:        time.Minute,
		RateThreshold:     30,
		CleanupDelay:      10 * time.Minute,
	}
}

// policy tunes how run treats failures for one operation
type policy struct {
	// retryConflicts is false for operations whose read must not be replayed
	retryConflicts bool
	// repair checks the room before the operation and fixes it if corrupt
	repair bool
}

var (
	mutation    = policy{retryConflicts: true, repair: true}
	creation    = policy{retryConflicts: true}
	turnTimeout = policy{repair: true}
)

// Supervisor wraps the room state machine with retries, host failover,
// disconnect handling, abuse limiting, repair, and cleanup. It is the single
// place where transient store failures are absorbed.
type Supervisor struct {
	rooms     *room.Controller
	store     storage.Store
	time      room.TimeSource
	clock     clock.Clock
	scheduler *Scheduler
	limiter   *RateLimiter
	publisher events.Publisher
	cfg       Config
	logger    *slog.Logger
}

// New creates a Supervisor
func New(
	rooms *room.Controller,
	store storage.Store,
	timeSource room.TimeSource,
	clk clock.Clock,
	scheduler *Scheduler,
	publisher events.Publisher,
	cfg Config,
	logger *slog.Logger,
) *Supervisor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Supervisor{
		rooms:     rooms,
		store:     store,
		time:      timeSource,
		clock:     clk,
		scheduler: scheduler,
		limiter:   NewRateLimiter(clk, cfg.RateWindow, cfg.RateThreshold),
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "supervisor")),
	}
}

// Scheduler returns the scheduler holding removal tasks
func (s *Supervisor) Scheduler() *Scheduler {
	return s.scheduler
}

// run executes fn under the retry policy and classifies the final error
func (s *Supervisor) run(ctx context.Context, op string, code model.RoomCode, p policy, fn func() (*model.Room, error)) Result {
	var res Result
	checked := !p.repair || code == ""

	step := func() (*model.Room, error) {
		if !checked {
			repaired, err := s.repairIfCorrupt(ctx, code)
			if err != nil && !errors.Is(err, model.ErrRoomNotFound) {
				return nil, err
			}
			checked = true
			res.Repaired = repaired
		}
		return fn()
	}

	conflicts, reconnects := 0, 0
	for {
		res.Attempts++
		committed, err := step()
		if err == nil {
			res.Room = committed
			return s.finish(op, code, res, nil)
		}

		switch model.KindOf(err) {
		case model.KindConflict:
			conflicts++
			if !p.retryConflicts {
				res.Outcome = OutcomeStale
				res.Err = err
				return res
			}
			if conflicts >= s.cfg.MaxAttempts {
				return s.finish(op, code, res, err)
			}
			s.logger.Debug("write conflict, retrying",
				slog.String("op", op),
				slog.String("room_code", string(code)),
				slog.Int("attempt", conflicts),
			)
			if werr := s.wait(ctx, s.cfg.RetryBackoff*time.Duration(conflicts)); werr != nil {
				return s.finish(op, code, res, werr)
			}

		case model.KindConnectivity:
			reconnects++
			if reconnects > s.cfg.ReconnectAttempts {
				return s.finish(op, code, res, err)
			}
			backoff := s.cfg.ReconnectBackoff << (reconnects - 1)
			s.logger.Warn("store unreachable, reconnecting",
				slog.String("op", op),
				slog.String("room_code", string(code)),
				slog.Int("attempt", reconnects),
				slog.Duration("backoff", backoff),
				slog.String("error", err.Error()),
			)
			if werr := s.wait(ctx, backoff); werr != nil {
				return s.finish(op, code, res, werr)
			}

		case model.KindCorruption:
			if res.Repaired || code == "" {
				return s.finish(op, code, res, err)
			}
			checked = true
			repaired, rerr := s.repairIfCorrupt(ctx, code)
			if rerr != nil || !repaired {
				return s.finish(op, code, res, err)
			}
			res.Repaired = true

		default:
			return s.finish(op, code, res, err)
		}
	}
}

// finish fills in the outcome for a final error and logs anything unexpected
func (s *Supervisor) finish(op string, code model.RoomCode, res Result, err error) Result {
	res.Err = err
	if err == nil {
		res.Outcome = OutcomeSuccess
		return res
	}

	switch model.KindOf(err) {
	case model.KindPrecondition:
		res.Outcome = preconditionOutcome(err)
		return res
	case model.KindConflict:
		res.Outcome = OutcomeRetryLater
	case model.KindConnectivity:
		res.Outcome = OutcomeUnavailable
	default:
		res.Outcome = OutcomeFailed
	}

	s.logger.Error("supervised operation failed",
		slog.String("op", op),
		slog.String("room_code", string(code)),
		slog.String("outcome", res.Outcome.String()),
		slog.Int("attempts", res.Attempts),
		slog.String("error", err.Error()),
	)
	return res
}

func (s *Supervisor) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}

// admit applies the rate limiter to a player action. The first action over the
// threshold flags the player on the room and notifies the host.
func (s *Supervisor) admit(ctx context.Context, code model.RoomCode, playerID model.PlayerID) *Result {
	d := s.limiter.Record(code, playerID)
	if d.Allowed {
		return nil
	}

	res := &Result{Outcome: OutcomeRateLimited, Err: model.ErrRateLimited}
	if !d.Flagged {
		return res
	}

	until := s.time.AuthoritativeNow(ctx).Add(d.ResetAt.Sub(s.clock.Now()))
	var hostID model.PlayerID
	flagged := s.run(ctx, "flag_player", code, mutation, func() (*model.Room, error) {
		return s.store.Transact(ctx, code, func(r *model.Room) (*model.Room, error) {
			p := r.GetPlayer(playerID)
			if p == nil {
				return nil, model.ErrNotInRoom
			}
			p.Restricted = true
			p.RestrictedUntil = until
			hostID = r.HostID
			return r, nil
		})
	})

	s.logger.Warn("player flagged for excessive actions",
		slog.String("room_code", string(code)),
		slog.String("player_id", string(playerID)),
		slog.Int("action_count", d.Count),
		slog.String("persisted", flagged.Outcome.String()),
	)
	if flagged.OK() {
		s.publish(ctx, model.EventPlayerFlagged, code, playerID, model.PlayerFlaggedPayload{
			HostID:       hostID,
			ActionCount:  d.Count,
			RestrictedTo: until,
		})
	}
	return res
}

// Room operations

// CreateRoom creates a room with host as its first player
func (s *Supervisor) CreateRoom(ctx context.Context, host model.Player, categoryID string) Result {
	return s.run(ctx, "create_room", "", creation, func() (*model.Room, error) {
		return s.rooms.CreateRoom(ctx, host, categoryID)
	})
}

// JoinRoom adds a player to a room
func (s *Supervisor) JoinRoom(ctx context.Context, code model.RoomCode, player model.Player) Result {
	return s.run(ctx, "join_room", code, mutation, func() (*model.Room, error) {
		return s.rooms.JoinRoom(ctx, code, player)
	})
}

// LeaveRoom removes a player immediately and drops any pending removal task
func (s *Supervisor) LeaveRoom(ctx context.Context, code model.RoomCode, playerID model.PlayerID) Result {
	res := s.run(ctx, "leave_room", code, mutation, func() (*model.Room, error) {
		return s.rooms.LeaveRoom(ctx, code, playerID)
	})
	if res.OK() {
		s.scheduler.Cancel(RemovalTaskID(code, playerID))
		if res.Room == nil {
			s.scheduler.CancelRoom(code)
			s.limiter.Forget(code)
		}
	}
	return res
}

// GetRoom reads a room, repairing it first if it is corrupt
func (s *Supervisor) GetRoom(ctx context.Context, code model.RoomCode) Result {
	return s.run(ctx, "get_room", code, mutation, func() (*model.Room, error) {
		return s.store.Read(ctx, code)
	})
}

// StartGame starts the game on behalf of the host
func (s *Supervisor) StartGame(ctx context.Context, code model.RoomCode, hostID model.PlayerID, turnLimitSec int) Result {
	if limited := s.admit(ctx, code, hostID); limited != nil {
		return *limited
	}
	return s.run(ctx, "start_game", code, mutation, func() (*model.Room, error) {
		return s.rooms.StartGame(ctx, code, hostID, turnLimitSec)
	})
}

// SubmitAnswer submits a guess for the current player
func (s *Supervisor) SubmitAnswer(ctx context.Context, code model.RoomCode, playerID model.PlayerID, text string) Result {
	if limited := s.admit(ctx, code, playerID); limited != nil {
		return *limited
	}

	var submit *room.SubmitResult
	res := s.run(ctx, "submit_answer", code, mutation, func() (*model.Room, error) {
		result, err := s.rooms.SubmitAnswer(ctx, code, playerID, text)
		submit = result
		if result == nil {
			return nil, err
		}
		return result.Room, err
	})
	res.Submit = submit
	if res.Room == nil && submit != nil {
		res.Room = submit.Room
	}
	return res
}

// AdvanceTurnOnTimeout advances a timed-out turn. Losing a race is reported
// as OutcomeStale and never retried.
func (s *Supervisor) AdvanceTurnOnTimeout(ctx context.Context, code model.RoomCode, callerID model.PlayerID) Result {
	if limited := s.admit(ctx, code, callerID); limited != nil {
		return *limited
	}
	return s.run(ctx, "advance_turn", code, turnTimeout, func() (*model.Room, error) {
		return s.rooms.AdvanceTurnOnTimeout(ctx, code, callerID)
	})
}

// EndGame finishes the game on behalf of the host
func (s *Supervisor) EndGame(ctx context.Context, code model.RoomCode, hostID model.PlayerID) Result {
	return s.run(ctx, "end_game", code, mutation, func() (*model.Room, error) {
		return s.rooms.EndGame(ctx, code, hostID)
	})
}

// CloseRoom closes the room on behalf of the host and drops its pending tasks
func (s *Supervisor) CloseRoom(ctx context.Context, code model.RoomCode, hostID model.PlayerID) Result {
	res := s.run(ctx, "close_room", code, mutation, func() (*model.Room, error) {
		return s.rooms.CloseRoom(ctx, code, hostID)
	})
	if res.OK() {
		s.scheduler.CancelRoom(code)
	}
	return res
}

// IsAllowedToSubmit reports whether a player may submit, and why not
func (s *Supervisor) IsAllowedToSubmit(playerID model.PlayerID, r *model.Room) (bool, string) {
	if r != nil && s.limiter.Restricted(r.Code, playerID) {
		return false, model.ErrRateLimited.Error()
	}
	return s.rooms.IsAllowedToSubmit(playerID, r)
}

// TimeRemaining returns how long the room's current turn has left
func (s *Supervisor) TimeRemaining(ctx context.Context, r *model.Room) time.Duration {
	return s.rooms.TimeRemaining(ctx, r)
}

// Presence

// HandleDisconnect marks a player disconnected, hands the host role on if
// needed, and schedules the player's removal after the grace period
func (s *Supervisor) HandleDisconnect(ctx context.Context, code model.RoomCode, playerID model.PlayerID) Result {
	var migration hostMigration
	var alreadyDisconnected bool

	res := s.run(ctx, "handle_disconnect", code, mutation, func() (*model.Room, error) {
		now := s.time.AuthoritativeNow(ctx)
		return s.store.Transact(ctx, code, func(r *model.Room) (*model.Room, error) {
			migration = hostMigration{}
			p := r.GetPlayer(playerID)
			if p == nil {
				return nil, model.ErrNotInRoom
			}
			alreadyDisconnected = !p.IsConnected
			p.IsConnected = false
			p.LastSeen = now
			if r.IsHost(playerID) {
				migration = migrateHost(r, now)
			}
			return r, nil
		})
	})
	if !res.OK() {
		return res
	}

	taskID := RemovalTaskID(code, playerID)
	if !alreadyDisconnected || !s.scheduler.Pending(taskID) {
		s.scheduler.Schedule(taskID, s.cfg.RemovalGrace, func() {
			s.RemoveIfDisconnected(context.Background(), code, playerID)
		})
	}

	if !alreadyDisconnected {
		s.logger.Info("player disconnected",
			slog.String("room_code", string(code)),
			slog.String("player_id", string(playerID)),
			slog.Duration("grace", s.cfg.RemovalGrace),
		)
		s.publish(ctx, model.EventPlayerDisconnected, code, playerID, nil)
	}
	s.announceMigration(ctx, code, playerID, migration, res.Room)
	return res
}

// HandleReconnect cancels a pending removal and marks the player connected
func (s *Supervisor) HandleReconnect(ctx context.Context, code model.RoomCode, playerID model.PlayerID) Result {
	cancelled := s.scheduler.Cancel(RemovalTaskID(code, playerID))

	var claimedHost bool
	res := s.run(ctx, "handle_reconnect", code, mutation, func() (*model.Room, error) {
		now := s.time.AuthoritativeNow(ctx)
		return s.store.Transact(ctx, code, func(r *model.Room) (*model.Room, error) {
			claimedHost = false
			p := r.GetPlayer(playerID)
			if p == nil {
				return nil, model.ErrNotInRoom
			}
			p.IsConnected = true
			p.LastSeen = now
			r.LastActivity = now
			// A room left without a host is claimed by whoever comes back first
			if r.HostID == "" && !r.IsOver() {
				room.SetHost(r, playerID)
				claimedHost = true
			}
			return r, nil
		})
	})
	if !res.OK() {
		return res
	}

	s.logger.Info("player reconnected",
		slog.String("room_code", string(code)),
		slog.String("player_id", string(playerID)),
		slog.Bool("removal_cancelled", cancelled),
	)
	s.publish(ctx, model.EventPlayerReconnected, code, playerID, nil)
	if claimedHost {
		s.publish(ctx, model.EventHostChanged, code, playerID, model.HostChangedPayload{NewHostID: playerID})
	}
	return res
}

// RemoveIfDisconnected purges a player who has not come back. It is what the
// removal task runs and is a no-op for players who reconnected or already left.
func (s *Supervisor) RemoveIfDisconnected(ctx context.Context, code model.RoomCode, playerID model.PlayerID) Result {
	var migration hostMigration
	var removed bool

	res := s.run(ctx, "remove_player", code, mutation, func() (*model.Room, error) {
		now := s.time.AuthoritativeNow(ctx)
		committed, err := s.store.Transact(ctx, code, func(r *model.Room) (*model.Room, error) {
			migration, removed = hostMigration{}, false
			p := r.GetPlayer(playerID)
			if p == nil || p.IsConnected {
				return nil, errNoChange
			}
			wasHost := r.IsHost(playerID)
			room.RemovePlayer(r, playerID, now)
			removed = true
			if len(r.Players) == 0 {
				return nil, nil
			}
			if wasHost {
				migration = migrateHost(r, now)
			}
			return r, nil
		})
		if errors.Is(err, errNoChange) {
			return s.store.Read(ctx, code)
		}
		return committed, err
	})
	if errors.Is(res.Err, model.ErrRoomNotFound) {
		return Result{Outcome: OutcomeSuccess, Attempts: res.Attempts}
	}
	if !res.OK() || !removed {
		return res
	}

	s.logger.Info("removed disconnected player",
		slog.String("room_code", string(code)),
		slog.String("player_id", string(playerID)),
		slog.Bool("room_deleted", res.Room == nil),
	)
	s.publish(ctx, model.EventPlayerRemoved, code, playerID, nil)
	if res.Room == nil {
		s.roomDeleted(ctx, code)
		return res
	}
	s.announceMigration(ctx, code, playerID, migration, res.Room)
	return res
}

// Host migration

type hostMigration struct {
	newHost  model.PlayerID
	finished bool
}

// migrateHost hands the host role to the longest-connected player. A game in
// progress ends when nobody is left to host it.
func migrateHost(r *model.Room, now time.Time) hostMigration {
	if id, ok := room.ElectHost(r); ok {
		room.SetHost(r, id)
		r.LastActivity = now
		return hostMigration{newHost: id}
	}
	if r.IsOver() {
		return hostMigration{}
	}
	if r.Status == model.StatusLobby {
		// A lobby waits for someone to come back and claim it
		if r.GetPlayer(r.HostID) == nil {
			r.HostID = ""
		}
		return hostMigration{}
	}
	room.FinishGame(r, now)
	return hostMigration{finished: true}
}

// MigrateHost replaces a host who is gone or disconnected
func (s *Supervisor) MigrateHost(ctx context.Context, code model.RoomCode) Result {
	res, _ := s.migrateHostIf(ctx, code, false)
	return res
}

// migrateHostIf runs a host migration. With requireSuccessor set, a room with
// no connected player to take over is left alone instead of being finished.
func (s *Supervisor) migrateHostIf(ctx context.Context, code model.RoomCode, requireSuccessor bool) (Result, bool) {
	var migration hostMigration
	var oldHost model.PlayerID

	res := s.run(ctx, "migrate_host", code, mutation, func() (*model.Room, error) {
		now := s.time.AuthoritativeNow(ctx)
		committed, err := s.store.Transact(ctx, code, func(r *model.Room) (*model.Room, error) {
			migration = hostMigration{}
			oldHost = r.HostID
			if host := r.GetPlayer(r.HostID); host != nil && host.IsConnected {
				return nil, errNoChange
			}
			if _, ok := room.ElectHost(r); requireSuccessor && (!ok || r.IsOver()) {
				return nil, errNoChange
			}
			migration = migrateHost(r, now)
			return r, nil
		})
		if errors.Is(err, errNoChange) {
			return s.store.Read(ctx, code)
		}
		return committed, err
	})
	if res.OK() {
		s.announceMigration(ctx, code, oldHost, migration, res.Room)
	}
	return res, res.OK() && migration.newHost != ""
}

func (s *Supervisor) announceMigration(ctx context.Context, code model.RoomCode, oldHost model.PlayerID, m hostMigration, r *model.Room) {
	switch {
	case m.newHost != "":
		s.logger.Info("host migrated",
			slog.String("room_code", string(code)),
			slog.String("old_host_id", string(oldHost)),
			slog.String("new_host_id", string(m.newHost)),
		)
		s.publish(ctx, model.EventHostChanged, code, m.newHost, model.HostChangedPayload{
			OldHostID: oldHost,
			NewHostID: m.newHost,
		})
	case m.finished && r != nil:
		s.logger.Info("no host candidates, game ended",
			slog.String("room_code", string(code)),
		)
		s.publish(ctx, model.EventGameEnded, code, oldHost, model.GameEndedPayload{
			Status: r.Status,
			Scores: r.Scores,
			Reason: "host left with no replacement",
		})
	}
}

// Repair and cleanup

// RepairRoom fills defaults into a room that is missing required fields and
// writes it back. A healthy room is left untouched.
func (s *Supervisor) RepairRoom(ctx context.Context, code model.RoomCode) Result {
	var res Result
	res.Attempts = 1
	repaired, err := s.repairIfCorrupt(ctx, code)
	res.Repaired = repaired
	if err != nil {
		return s.finish("repair_room", code, res, err)
	}
	r, err := s.store.Read(ctx, code)
	res.Room = r
	return s.finish("repair_room", code, res, err)
}

func (s *Supervisor) repairIfCorrupt(ctx context.Context, code model.RoomCode) (bool, error) {
	snapshot, err := s.store.Read(ctx, code)
	if err != nil {
		return false, err
	}
	if !snapshot.IsCorrupt() {
		return false, nil
	}

	now := s.time.AuthoritativeNow(ctx)
	var fields []string
	for attempt := 1; ; attempt++ {
		_, err = s.store.Transact(ctx, code, func(r *model.Room) (*model.Room, error) {
			fields = Repair(r, now)
			if len(fields) == 0 {
				return nil, errNoChange
			}
			return r, nil
		})
		if errors.Is(err, errNoChange) {
			return false, nil
		}
		if model.KindOf(err) != model.KindConflict || attempt >= s.cfg.MaxAttempts {
			break
		}
	}
	if err != nil {
		return false, fmt.Errorf("repair room: %w", err)
	}

	s.logger.Warn("repaired corrupt room",
		slog.String("room_code", string(code)),
		slog.Any("fields", fields),
	)
	s.publish(ctx, model.EventRoomRepaired, code, "", model.RoomRepairedPayload{Fields: fields})
	return true, nil
}

// SweepReport summarises one cleanup pass
type SweepReport struct {
	Scanned  int
	Deleted  []model.RoomCode
	Repaired []model.RoomCode
	Migrated []model.RoomCode
}

// Sweep repairs corrupt rooms, hands the host role on where the host is gone
// without a disconnect event, and deletes rooms that have had no connected
// players for longer than the cleanup delay
func (s *Supervisor) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	codes, err := s.store.ListRoomCodes(ctx)
	if err != nil {
		return report, err
	}

	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		repaired, err := s.repairIfCorrupt(ctx, code)
		if err != nil {
			if !errors.Is(err, model.ErrRoomNotFound) {
				s.logger.Warn("sweep could not check room",
					slog.String("room_code", string(code)),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		if repaired {
			report.Repaired = append(report.Repaired, code)
		}
		if _, migrated := s.migrateHostIf(ctx, code, true); migrated {
			report.Migrated = append(report.Migrated, code)
		}

		now := s.time.AuthoritativeNow(ctx)
		_, err = s.store.Transact(ctx, code, func(r *model.Room) (*model.Room, error) {
			if r.ConnectedPlayers() > 0 || now.Sub(r.LastActivity) <= s.cfg.CleanupDelay {
				return nil, errNoChange
			}
			return nil, nil
		})
		switch {
		case err == nil:
			report.Deleted = append(report.Deleted, code)
			s.logger.Info("deleted orphaned room", slog.String("room_code", string(code)))
			s.roomDeleted(ctx, code)
		case errors.Is(err, errNoChange), errors.Is(err, model.ErrRoomNotFound):
		default:
			// A conflict means someone touched the room, so it is not orphaned this pass
			s.logger.Debug("sweep skipped room",
				slog.String("room_code", string(code)),
				slog.String("error", err.Error()),
			)
		}
	}

	return report, nil
}

// SweepEvery runs Sweep on an interval until ctx is cancelled
func (s *Supervisor) SweepEvery(ctx context.Context, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(interval):
			report, err := s.Sweep(ctx)
			if err != nil && ctx.Err() == nil {
				s.logger.Error("sweep failed", slog.String("error", err.Error()))
				continue
			}
			if len(report.Deleted) > 0 || len(report.Repaired) > 0 {
				s.logger.Info("sweep complete",
					slog.Int("scanned", report.Scanned),
					slog.Int("deleted", len(report.Deleted)),
					slog.Int("repaired", len(report.Repaired)),
				)
			}
		}
	}
}

func (s *Supervisor) roomDeleted(ctx context.Context, code model.RoomCode) {
	s.scheduler.CancelRoom(code)
	s.limiter.Forget(code)
	s.publish(ctx, model.EventRoomDeleted, code, "", nil)
}

func (s *Supervisor) publish(ctx context.Context, eventType model.EventType, code model.RoomCode, playerID model.PlayerID, payload any) {
	event := events.New(s.clock, eventType, code, playerID, payload)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			slog.String("event_type", string(eventType)),
			slog.String("room_code", string(code)),
			slog.String("error", err.Error()),
		)
	}
}
