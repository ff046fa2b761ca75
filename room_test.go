package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// mockBroadcaster captures outbound frames for assertions. Room broadcasts
// happen under the room lock, so no extra synchronization is needed here.
type mockBroadcaster struct {
	raw    [][]byte
	binary [][]byte
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	data, _ := json.Marshal(msg)
	m.raw = append(m.raw, data)
}

func (m *mockBroadcaster) SendRaw(data []byte)    { m.raw = append(m.raw, data) }
func (m *mockBroadcaster) SendBinary(data []byte) { m.binary = append(m.binary, data) }

func (m *mockBroadcaster) reset() {
	m.raw = nil
	m.binary = nil
}

// events decodes the type tag of every captured text frame, in order.
func (m *mockBroadcaster) events() []string {
	out := make([]string, 0, len(m.raw))
	for _, data := range m.raw {
		var env InEnvelope
		if err := json.Unmarshal(data, &env); err == nil {
			out = append(out, env.T)
		}
	}
	return out
}

func (m *mockBroadcaster) count(event string) int {
	n := 0
	for _, t := range m.events() {
		if t == event {
			n++
		}
	}
	return n
}

// runUntilPlaying drives the countdown to completion and returns the
// advanced clock. A five second countdown needs just over 300 ticks.
func runUntilPlaying(t *testing.T, r *Room, now time.Time) time.Time {
	t.Helper()
	for i := 0; i < 400; i++ {
		r.Advance(TickDelta, now)
		now = now.Add(TickDuration)
		if r.Status() == PhasePlaying {
			return now
		}
	}
	t.Fatalf("room never left countdown, status %s", r.Status())
	return now
}

func newTestRoom(settings RoomSettings, members ...string) (*Room, map[string]*mockBroadcaster) {
	r := NewRoom("room-1", settings, nil)
	mocks := make(map[string]*mockBroadcaster, len(members))
	for _, id := range members {
		m := &mockBroadcaster{}
		mocks[id] = m
		r.Join(id, "user-"+id, m)
	}
	return r, mocks
}

func TestRoomStartsWaiting(t *testing.T) {
	r, _ := newTestRoom(DefaultSettings(), "a")
	if r.Status() != PhaseWaiting {
		t.Errorf("new room should be waiting, got %s", r.Status())
	}
	// Waiting rooms ignore ticks
	r.Advance(TickDelta, time.Now())
	if r.Status() != PhaseWaiting {
		t.Error("tick should not advance a waiting room")
	}
}

func TestJoinAnnouncesToOthers(t *testing.T) {
	r, mocks := newTestRoom(DefaultSettings(), "a")
	r.Join("b", "user-b", &mockBroadcaster{})
	if mocks["a"].count(MsgPlayerJoined) != 1 {
		t.Error("existing member should hear about the new joiner")
	}
}

func TestCountdownToPlaying(t *testing.T) {
	r, mocks := newTestRoom(DefaultSettings(), "a", "b")
	now := time.Unix(1000, 0)
	r.StartGame(DefaultSettings())

	if r.Status() != PhaseCountdown {
		t.Fatalf("expected countdown, got %s", r.Status())
	}
	if mocks["a"].count(MsgGameCountdown) != 1 {
		t.Error("countdown start should be broadcast")
	}

	runUntilPlaying(t, r, now)

	if r.PlayerCount() != 2 {
		t.Fatalf("expected 2 materialized players, got %d", r.PlayerCount())
	}
	// Join order decides spawn slots: first joiner gets the first position
	if r.players["a"].Position != (Position{X: 200, Y: 300}) {
		t.Errorf("player a spawned at %v", r.players["a"].Position)
	}
	if r.players["b"].Position != (Position{X: 600, Y: 300}) {
		t.Errorf("player b spawned at %v", r.players["b"].Position)
	}
	for id, p := range r.players {
		if p.Health != PlayerMaxHealth || !p.Active {
			t.Errorf("player %s should start at full health and active", id)
		}
	}
	if r.players["a"].Color == r.players["b"].Color {
		t.Error("players should get distinct palette colors")
	}

	if mocks["a"].count(MsgGameStarted) != 1 {
		t.Error("playing transition should broadcast game start")
	}
	if mocks["a"].count(MsgGameTime) < 4 {
		t.Errorf("countdown should emit per-second time updates, got %d", mocks["a"].count(MsgGameTime))
	}
	if len(mocks["a"].binary) != 1 {
		t.Errorf("playing transition should send one full sync, got %d binary frames", len(mocks["a"].binary))
	}
}

func TestSyncFrameDecodes(t *testing.T) {
	r, mocks := newTestRoom(DefaultSettings(), "a", "b")
	r.StartGame(DefaultSettings())
	runUntilPlaying(t, r, time.Unix(1000, 0))

	var env struct {
		T string       `msgpack:"t"`
		D RoomSnapshot `msgpack:"d"`
	}
	if err := msgpack.Unmarshal(mocks["a"].binary[0], &env); err != nil {
		t.Fatalf("sync frame should decode: %v", err)
	}
	if env.T != MsgGameSync {
		t.Errorf("expected %s frame, got %s", MsgGameSync, env.T)
	}
	if len(env.D.Players) != 2 {
		t.Errorf("sync should carry 2 players, got %d", len(env.D.Players))
	}
	if env.D.Status != string(PhasePlaying) {
		t.Errorf("sync status should be playing, got %s", env.D.Status)
	}
	if len(env.D.Obstacles) == 0 {
		t.Error("sync should carry the obstacle layout")
	}
}

func TestPeriodicResync(t *testing.T) {
	r, mocks := newTestRoom(DefaultSettings(), "a", "b")
	r.StartGame(DefaultSettings())
	now := runUntilPlaying(t, r, time.Unix(1000, 0))
	mocks["a"].reset()

	// Just over five seconds of playing ticks
	for i := 0; i < 310; i++ {
		r.Advance(TickDelta, now)
		now = now.Add(TickDuration)
	}
	if len(mocks["a"].binary) != 1 {
		t.Errorf("expected exactly one resync in five seconds, got %d", len(mocks["a"].binary))
	}
}

func TestMoveBroadcastsToOthers(t *testing.T) {
	r, mocks := newTestRoom(DefaultSettings(), "a", "b")
	r.StartGame(DefaultSettings())
	runUntilPlaying(t, r, time.Unix(1000, 0))
	r.players["a"].Position = Position{X: 400, Y: 300}
	mocks["a"].reset()
	mocks["b"].reset()

	r.Move("a", Position{X: 1, Y: 0})
	if mocks["b"].count(MsgPlayerMoved) != 1 {
		t.Error("accepted move should reach the other member")
	}
	if mocks["a"].count(MsgPlayerMoved) != 0 {
		t.Error("the mover already knows its own position")
	}
	if r.players["a"].Position != (Position{X: 405, Y: 300}) {
		t.Errorf("player a should be at (405,300), got %v", r.players["a"].Position)
	}

	// Rejected moves change nothing and stay silent
	mocks["b"].reset()
	r.players["a"].Position = Position{X: 400, Y: 42}
	r.Move("a", Position{X: 0, Y: -1})
	if mocks["b"].count(MsgPlayerMoved) != 0 {
		t.Error("rejected move should not be broadcast")
	}
	if r.players["a"].Position != (Position{X: 400, Y: 42}) {
		t.Error("rejected move should not change position")
	}
}

func TestShootCooldown(t *testing.T) {
	r, _ := newTestRoom(DefaultSettings(), "a", "b")
	r.StartGame(DefaultSettings())
	now := runUntilPlaying(t, r, time.Unix(1000, 0))

	r.Shoot("a", Position{X: 400, Y: 300}, 0, now)
	r.Shoot("a", Position{X: 400, Y: 300}, 0, now.Add(100*time.Millisecond))
	if len(r.projectiles) != 1 {
		t.Errorf("second shot inside cooldown should be dropped, got %d projectiles", len(r.projectiles))
	}
	r.Shoot("a", Position{X: 400, Y: 300}, 0, now.Add(ShotCooldown))
	if len(r.projectiles) != 2 {
		t.Errorf("shot after cooldown should spawn, got %d projectiles", len(r.projectiles))
	}
}

func TestHitScoresWithoutElimination(t *testing.T) {
	r, mocks := newTestRoom(DefaultSettings(), "a", "b")
	r.StartGame(DefaultSettings())
	now := runUntilPlaying(t, r, time.Unix(1000, 0))

	// Line up a hit in open space, clear of the default obstacles
	r.players["a"].Position = Position{X: 100, Y: 300}
	r.players["b"].Position = Position{X: 135, Y: 300}
	mocks["b"].reset()

	r.Shoot("a", Position{X: 100, Y: 300}, 0, now)
	for i := 0; i < 3 && mocks["b"].count(MsgPlayerHealth) == 0; i++ {
		r.Advance(TickDelta, now)
		now = now.Add(TickDuration)
	}

	// The hit itself scores; the victim is damaged but still in the fight
	if r.players["a"].Score != 1 {
		t.Errorf("shooter score should be 1 after the hit, got %d", r.players["a"].Score)
	}
	if r.players["b"].Health != PlayerMaxHealth-ProjectileDamage {
		t.Errorf("victim health should be %d, got %d", PlayerMaxHealth-ProjectileDamage, r.players["b"].Health)
	}
	if !r.players["b"].Active {
		t.Error("a single hit should not eliminate the victim")
	}
	if r.Status() != PhasePlaying {
		t.Errorf("game should keep playing below the score limit, got %s", r.Status())
	}
	for _, event := range []string{MsgPlayerScore, MsgPlayerHealth, MsgProjectileRemove} {
		if mocks["b"].count(event) != 1 {
			t.Errorf("expected exactly one %s broadcast, got %d", event, mocks["b"].count(event))
		}
	}
}

func TestHitEndsGameAtScoreLimit(t *testing.T) {
	settings := DefaultSettings()
	settings.ScoreLimit = 1
	r, mocks := newTestRoom(settings, "a", "b")
	var result *MatchResult
	r.onEnd = func(res MatchResult) { result = &res }
	r.StartGame(settings)
	now := runUntilPlaying(t, r, time.Unix(1000, 0))

	r.players["a"].Position = Position{X: 100, Y: 300}
	r.players["b"].Position = Position{X: 135, Y: 300}
	mocks["a"].reset()
	mocks["b"].reset()

	r.Shoot("a", Position{X: 100, Y: 300}, 0, now)
	for i := 0; i < 3 && r.Status() == PhasePlaying; i++ {
		r.Advance(TickDelta, now)
		now = now.Add(TickDuration)
	}

	// One hit on a full-health victim reaches the limit on the same tick
	if r.Status() != PhaseFinished {
		t.Fatalf("score limit hit should finish the game, got %s", r.Status())
	}
	if r.Winner() != "a" {
		t.Errorf("shooter should win, got %q", r.Winner())
	}
	if r.players["a"].Score != 1 {
		t.Errorf("shooter score should be 1, got %d", r.players["a"].Score)
	}
	if mocks["b"].count(MsgGameEnd) != 1 {
		t.Errorf("expected exactly one %s broadcast, got %d", MsgGameEnd, mocks["b"].count(MsgGameEnd))
	}
	if result == nil {
		t.Fatal("game end should invoke the result callback")
	}
	if result.Winner != "a" || len(result.Players) != 2 {
		t.Errorf("unexpected match result: %+v", result)
	}
}

func TestFriendlyFireSelfHitDoesNotScore(t *testing.T) {
	settings := DefaultSettings()
	settings.FriendlyFire = true
	r, mocks := newTestRoom(settings, "a", "b")
	r.StartGame(settings)
	now := runUntilPlaying(t, r, time.Unix(1000, 0))

	// A shot released from the player's own center catches the shooter
	r.players["a"].Position = Position{X: 100, Y: 300}
	mocks["b"].reset()

	r.Shoot("a", Position{X: 100, Y: 300}, 0, now)
	r.Advance(TickDelta, now)

	if r.players["a"].Health != PlayerMaxHealth-ProjectileDamage {
		t.Errorf("self-hit should damage the shooter, health %d", r.players["a"].Health)
	}
	if r.players["a"].Score != 0 {
		t.Errorf("self-hit should not score, got %d", r.players["a"].Score)
	}
	if mocks["b"].count(MsgPlayerScore) != 0 {
		t.Error("self-hit should not broadcast a score update")
	}
	if mocks["b"].count(MsgPlayerHealth) != 1 {
		t.Error("self-hit should broadcast the health update")
	}
}

func TestLastPlayerStandingWins(t *testing.T) {
	r, _ := newTestRoom(DefaultSettings(), "a", "b")
	r.StartGame(DefaultSettings())
	now := runUntilPlaying(t, r, time.Unix(1000, 0))

	r.players["b"].TakeDamage(PlayerMaxHealth)
	r.Advance(TickDelta, now)

	if r.Status() != PhaseFinished {
		t.Fatalf("one player left should finish the game, got %s", r.Status())
	}
	if r.Winner() != "a" {
		t.Errorf("survivor should win, got %q", r.Winner())
	}
}

func TestMutualEliminationIsDraw(t *testing.T) {
	r, _ := newTestRoom(DefaultSettings(), "a", "b")
	r.StartGame(DefaultSettings())
	now := runUntilPlaying(t, r, time.Unix(1000, 0))

	r.players["a"].TakeDamage(PlayerMaxHealth)
	r.players["b"].TakeDamage(PlayerMaxHealth)
	r.Advance(TickDelta, now)

	if r.Status() != PhaseFinished {
		t.Fatalf("zero active players should finish the game, got %s", r.Status())
	}
	if r.Winner() != "" {
		t.Errorf("mutual elimination should have no winner, got %q", r.Winner())
	}
}

func TestSoloPlayerRunsToTimeLimit(t *testing.T) {
	settings := DefaultSettings()
	settings.TimeLimit = 1
	r, _ := newTestRoom(settings, "a")
	r.StartGame(settings)
	now := runUntilPlaying(t, r, time.Unix(1000, 0))

	// One active player in a one-player room is not a last-man-standing win
	r.Advance(TickDelta, now)
	if r.Status() != PhasePlaying {
		t.Fatal("solo room should keep playing until the clock runs out")
	}
	for i := 0; i < 70 && r.Status() == PhasePlaying; i++ {
		r.Advance(TickDelta, now)
		now = now.Add(TickDuration)
	}
	if r.Status() != PhaseFinished {
		t.Fatalf("time expiry should finish the game, got %s", r.Status())
	}
	if r.Winner() != "" {
		t.Errorf("time expiry alone should be a draw, got winner %q", r.Winner())
	}
}

func TestScoreBeatsClockOnSameTick(t *testing.T) {
	settings := DefaultSettings()
	settings.ScoreLimit = 3
	r, _ := newTestRoom(settings, "a", "b")
	r.StartGame(settings)
	now := runUntilPlaying(t, r, time.Unix(1000, 0))

	// Both conditions become true on the same tick; score has precedence
	r.players["b"].Score = 3
	r.timeRemaining = TickDelta / 2
	r.Advance(TickDelta, now)

	if r.Status() != PhaseFinished {
		t.Fatalf("expected finished, got %s", r.Status())
	}
	if r.Winner() != "b" {
		t.Errorf("score limit should decide before time expiry, got winner %q", r.Winner())
	}
}

func TestProjectileExpires(t *testing.T) {
	r, mocks := newTestRoom(DefaultSettings(), "a", "b")
	r.StartGame(DefaultSettings())
	now := runUntilPlaying(t, r, time.Unix(1000, 0))

	r.players["a"].Position = Position{X: 100, Y: 300}
	r.Shoot("a", Position{X: 100, Y: 300}, 0, now)
	mocks["b"].reset()

	r.Advance(TickDelta, now.Add(ProjectileLifetime+time.Millisecond))
	if len(r.projectiles) != 0 {
		t.Errorf("expired projectile should be removed, got %d left", len(r.projectiles))
	}
	if mocks["b"].count(MsgProjectileRemove) != 1 {
		t.Error("expiry should broadcast the removal")
	}
	if mocks["b"].count(MsgProjectileMove) != 0 {
		t.Error("expired projectile should not move first")
	}
}

func TestRestartKeepsPlayers(t *testing.T) {
	r, _ := newTestRoom(DefaultSettings(), "a", "b")
	r.StartGame(DefaultSettings())
	now := runUntilPlaying(t, r, time.Unix(1000, 0))

	r.players["a"].Score = 7
	r.players["b"].TakeDamage(PlayerMaxHealth)
	r.Shoot("a", Position{X: 100, Y: 300}, 0, now)
	r.Advance(TickDelta, now)
	if r.Status() != PhaseFinished {
		t.Fatalf("expected finished, got %s", r.Status())
	}

	r.StartGame(DefaultSettings())
	if r.Status() != PhaseCountdown {
		t.Fatalf("restart should re-enter countdown, got %s", r.Status())
	}
	if r.Winner() != "" {
		t.Error("restart should clear the winner")
	}
	if len(r.projectiles) != 0 {
		t.Error("restart should drop in-flight projectiles")
	}
	// Existing players survive a restart untouched
	if r.PlayerCount() != 2 {
		t.Errorf("restart should keep players, got %d", r.PlayerCount())
	}
	if r.players["a"].Score != 7 {
		t.Error("restart should not reset scores")
	}

	// With players already present, the countdown does not respawn anyone
	pos := r.players["a"].Position
	runUntilPlaying(t, r, now)
	if r.players["a"].Position != pos {
		t.Error("existing players should not be respawned on restart")
	}
}

func TestLeaveRemovesPlayerImmediately(t *testing.T) {
	r, mocks := newTestRoom(DefaultSettings(), "a", "b")
	r.StartGame(DefaultSettings())
	runUntilPlaying(t, r, time.Unix(1000, 0))

	if empty := r.Leave("a"); empty {
		t.Error("room with a member left should not report empty")
	}
	if r.PlayerCount() != 1 {
		t.Errorf("leaver's player should be gone, got %d players", r.PlayerCount())
	}
	if mocks["b"].count(MsgPlayerLeft) != 1 {
		t.Error("leave should be broadcast to remaining members")
	}
	if empty := r.Leave("b"); !empty {
		t.Error("last leave should report the room empty")
	}

	// A stranger leaving an empty room must not claim it for teardown
	if empty := r.Leave("ghost"); empty {
		t.Error("leave by a non-member should never report the room empty")
	}
}

func TestOrphanedProjectileKeepsFlying(t *testing.T) {
	r, _ := newTestRoom(DefaultSettings(), "a", "b")
	r.StartGame(DefaultSettings())
	now := runUntilPlaying(t, r, time.Unix(1000, 0))

	r.players["a"].Position = Position{X: 100, Y: 300}
	r.players["b"].Position = Position{X: 145, Y: 300}
	r.players["b"].Health = ProjectileDamage
	r.Shoot("a", Position{X: 100, Y: 300}, 0, now)
	r.Leave("a")

	for i := 0; i < 4 && r.Status() == PhasePlaying; i++ {
		r.Advance(TickDelta, now)
		now = now.Add(TickDuration)
	}

	// The hit lands, the score goes uncredited, and the empty field ends it
	if r.players["b"].Health != 0 {
		t.Errorf("orphaned projectile should still damage, health %d", r.players["b"].Health)
	}
	if r.Status() != PhaseFinished {
		t.Fatalf("expected finished, got %s", r.Status())
	}
	if r.Winner() != "" {
		t.Errorf("no winner expected when the field is wiped, got %q", r.Winner())
	}
}
