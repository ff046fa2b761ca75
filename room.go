package main

import (
	"encoding/json"
	"log"
	"math"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	CountdownSeconds = 5.0
	SyncInterval     = 5.0 // seconds between full-state resyncs
)

// Phase is the coarse state-machine stage of a room.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhasePaused    Phase = "paused" // reserved, no transition produces it
	PhaseFinished  Phase = "finished"
)

// RoomSettings are supplied by the lobby directory at start-game time.
type RoomSettings struct {
	TimeLimit    float64 `json:"timeLimit" msgpack:"timeLimit"`
	ScoreLimit   int     `json:"scoreLimit" msgpack:"scoreLimit"`
	MapID        string  `json:"mapId" msgpack:"mapId"`
	FriendlyFire bool    `json:"friendlyFire" msgpack:"friendlyFire"`
}

// DefaultSettings mirrors the lobby defaults.
func DefaultSettings() RoomSettings {
	return RoomSettings{TimeLimit: 300, ScoreLimit: 20, MapID: "map1", FriendlyFire: false}
}

// Broadcaster is the outbound side of one room member's connection.
// Implementations must never block the simulation path.
type Broadcaster interface {
	SendJSON(msg interface{})
	SendRaw(data []byte)
	SendBinary(data []byte)
}

// Room owns the authoritative state of one match. All public methods take
// the room lock, so inbound actions and scheduler ticks never observe a
// torn intermediate state.
type Room struct {
	mu sync.Mutex

	id            string
	players       map[string]*Player
	order         []string // player ids in materialization order
	projectiles   map[string]*Projectile
	projOrder     []string
	obstacles     []Obstacle
	status        Phase
	timeRemaining float64
	winner        string
	settings      RoomSettings

	// Connection membership, maintained by the transport adapter. Members
	// exist before players do; players materialize from members when the
	// countdown ends.
	conns     map[string]Broadcaster
	connOrder []string
	names     map[string]string

	syncTimer    float64
	matchElapsed float64
	onEnd        func(MatchResult)
}

// NewRoom creates an idle room in the waiting phase. The simulation driver
// skips waiting rooms; StartGame moves it into countdown.
func NewRoom(id string, settings RoomSettings, onEnd func(MatchResult)) *Room {
	return &Room{
		id:          id,
		players:     make(map[string]*Player),
		projectiles: make(map[string]*Projectile),
		obstacles:   ObstaclesFor(settings.MapID),
		status:      PhaseWaiting,
		settings:    settings,
		conns:       make(map[string]Broadcaster),
		names:       make(map[string]string),
		onEnd:       onEnd,
	}
}

// ID returns the room id.
func (r *Room) ID() string { return r.id }

// Status returns the current phase.
func (r *Room) Status() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Winner returns the winner id, empty when there is none.
func (r *Room) Winner() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.winner
}

// MemberCount returns the number of bound connections.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// PlayerCount returns the number of materialized players.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Join binds a connection to this room.
func (r *Room) Join(connID, username string, conn Broadcaster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[connID]; ok {
		return
	}
	r.conns[connID] = conn
	r.connOrder = append(r.connOrder, connID)
	r.names[connID] = username
	r.broadcastExcept(connID, Envelope{T: MsgPlayerJoined, Data: PlayerJoinedMsg{
		PlayerID: connID,
		Username: username,
	}})
}

// Leave unbinds a connection and removes its player from simulation scope
// immediately. Returns true when the room has no members left and should be
// torn down. In-flight projectiles owned by the leaver keep flying; score
// crediting tolerates the missing owner.
func (r *Room) Leave(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[connID]; !ok {
		return false
	}
	delete(r.conns, connID)
	delete(r.names, connID)
	r.connOrder = removeString(r.connOrder, connID)
	if _, ok := r.players[connID]; ok {
		delete(r.players, connID)
		r.order = removeString(r.order, connID)
	}
	r.broadcast(Envelope{T: MsgPlayerLeft, Data: PlayerLeftMsg{PlayerID: connID}})
	return len(r.conns) == 0
}

// StartGame starts a fresh countdown. On restart the winner is cleared and
// projectiles are dropped; players are left untouched.
func (r *Room) StartGame(settings RoomSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = settings
	r.obstacles = ObstaclesFor(settings.MapID)
	r.status = PhaseCountdown
	r.timeRemaining = CountdownSeconds
	r.winner = ""
	r.projectiles = make(map[string]*Projectile)
	r.projOrder = nil
	r.syncTimer = 0
	r.matchElapsed = 0
	r.broadcast(Envelope{T: MsgGameCountdown, Data: CountdownMsg{TimeRemaining: int(CountdownSeconds)}})
}

// Move applies a movement input for one player. Rejected moves are dropped
// silently; accepted moves are broadcast to the other members.
func (r *Room) Move(connID string, input Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[connID]
	if !ok {
		return
	}
	newPos, ok := ResolvePlayerMove(p, input, r.orderedPlayers(), r.obstacles)
	if !ok {
		return
	}
	p.Position = newPos
	r.broadcastExcept(connID, Envelope{T: MsgPlayerMoved, Data: PlayerMovedMsg{
		PlayerID: connID,
		Position: newPos,
	}})
}

// Rotate sets a player's facing angle.
func (r *Room) Rotate(connID string, rotation float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[connID]
	if !ok {
		return
	}
	p.Rotation = rotation
	r.broadcastExcept(connID, Envelope{T: MsgPlayerRotated, Data: PlayerRotatedMsg{
		PlayerID: connID,
		Rotation: rotation,
	}})
}

// Shoot spawns a projectile for a player, gated by the personal cooldown.
func (r *Room) Shoot(connID string, pos Position, direction float64, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[connID]
	if !ok {
		return
	}
	if !p.CanShoot(now) {
		return
	}
	p.LastShot = now
	pr := NewProjectile(connID, pos, direction, now)
	r.projectiles[pr.ID] = pr
	r.projOrder = append(r.projOrder, pr.ID)
	r.broadcast(Envelope{T: MsgProjectileCreate, Data: pr.ToState()})
}

// Advance runs one simulation tick. dt is the nominal tick period in
// seconds; the clock math assumes ticks fire on schedule and does not
// compensate for scheduler jitter.
func (r *Room) Advance(dt float64, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.status {
	case PhaseCountdown:
		r.advanceCountdown(dt)
	case PhasePlaying:
		r.advancePlaying(dt, now)
	}
}

func (r *Room) advanceCountdown(dt float64) {
	prev := math.Floor(r.timeRemaining)
	r.timeRemaining -= dt

	if r.timeRemaining > 0 {
		if math.Floor(r.timeRemaining) != prev {
			r.broadcast(Envelope{T: MsgGameTime, Data: TimeMsg{TimeRemaining: int(math.Floor(r.timeRemaining))}})
		}
		return
	}

	if len(r.players) == 0 {
		r.materializePlayers()
	}
	r.status = PhasePlaying
	r.timeRemaining = r.settings.TimeLimit
	r.broadcast(Envelope{T: MsgGameStarted})
	r.broadcastSync()
}

func (r *Room) advancePlaying(dt float64, now time.Time) {
	prev := math.Floor(r.timeRemaining)
	r.timeRemaining -= dt
	r.matchElapsed += dt

	r.stepProjectiles(now)
	r.evaluateWin()
	if r.status != PhasePlaying {
		return
	}

	if math.Floor(r.timeRemaining) != prev {
		r.broadcast(Envelope{T: MsgGameTime, Data: TimeMsg{TimeRemaining: int(math.Floor(r.timeRemaining))}})
	}

	// Full-state resync on a fixed cadence, independent of the match clock,
	// to correct drift accumulated from dropped delta messages.
	r.syncTimer += dt
	if r.syncTimer >= SyncInterval {
		r.syncTimer -= SyncInterval
		r.broadcastSync()
	}
}

// materializePlayers creates one player per joined connection, in join
// order, using the spawn planner for positions and colors.
func (r *Room) materializePlayers() {
	positions := SpawnPositions(len(r.connOrder))
	for i, connID := range r.connOrder {
		p := NewPlayer(connID, r.names[connID], positions[i], PlayerColor(i))
		r.players[connID] = p
		r.order = append(r.order, connID)
	}
}

func (r *Room) stepProjectiles(now time.Time) {
	players := r.orderedPlayers()
	for _, id := range append([]string(nil), r.projOrder...) {
		pr, ok := r.projectiles[id]
		if !ok {
			continue
		}
		if pr.Expired(now) {
			r.removeProjectile(id)
			continue
		}
		result := ResolveProjectileStep(pr, players, r.obstacles, r.settings.FriendlyFire)
		if !result.Consumed {
			pr.Position = result.Position
			r.broadcast(Envelope{T: MsgProjectileMove, Data: ProjectileMovedMsg{
				ProjectileID: id,
				Position:     result.Position,
			}})
			continue
		}
		if result.HitPlayerID != "" {
			r.applyHit(pr, result.HitPlayerID)
		}
		r.removeProjectile(id)
	}
}

func (r *Room) applyHit(pr *Projectile, victimID string) {
	victim, ok := r.players[victimID]
	if !ok {
		return
	}
	victim.TakeDamage(pr.Damage)
	// Every landed hit scores. The owner may have left mid-flight, in which
	// case the hit goes uncredited; self-hits under friendly fire damage
	// but never score.
	if owner, ok := r.players[pr.OwnerID]; ok && victimID != pr.OwnerID {
		owner.Score++
		r.broadcast(Envelope{T: MsgPlayerScore, Data: PlayerScoreMsg{
			PlayerID: owner.ID,
			Score:    owner.Score,
		}})
	}
	r.broadcast(Envelope{T: MsgPlayerHealth, Data: PlayerHealthMsg{
		PlayerID: victimID,
		Health:   victim.Health,
	}})
}

func (r *Room) removeProjectile(id string) {
	delete(r.projectiles, id)
	r.projOrder = removeString(r.projOrder, id)
	r.broadcast(Envelope{T: MsgProjectileRemove, Data: ProjectileRemovedMsg{ProjectileID: id}})
}

// evaluateWin checks the win conditions in fixed precedence: score limit,
// last player standing, everyone eliminated, time expired. Several can
// become true on the same tick; the first match decides.
func (r *Room) evaluateWin() {
	for _, id := range r.order {
		if r.players[id].Score >= r.settings.ScoreLimit {
			r.winner = id
			r.endGame()
			return
		}
	}

	var active []string
	for _, id := range r.order {
		if r.players[id].Active {
			active = append(active, id)
		}
	}
	if len(active) == 1 && len(r.players) > 1 {
		r.winner = active[0]
		r.endGame()
		return
	}
	if len(active) == 0 && len(r.players) > 0 {
		r.endGame()
		return
	}

	if r.timeRemaining <= 0 {
		r.endGame()
	}
}

func (r *Room) endGame() {
	r.status = PhaseFinished
	r.broadcast(Envelope{T: MsgGameEnd, Data: GameEndMsg{Winner: r.winner}})
	if r.onEnd != nil {
		r.onEnd(r.matchResult())
	}
}

func (r *Room) matchResult() MatchResult {
	res := MatchResult{
		RoomID:     r.id,
		MapID:      r.settings.MapID,
		Winner:     r.winner,
		Duration:   r.matchElapsed,
		FinishedAt: time.Now().UTC(),
	}
	for _, id := range r.order {
		p := r.players[id]
		res.Players = append(res.Players, PlayerResult{
			PlayerID: p.ID,
			Username: p.Username,
			Score:    p.Score,
			Health:   p.Health,
			Active:   p.Active,
		})
	}
	return res
}

// Snapshot builds the full-state sync payload.
func (r *Room) Snapshot() RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() RoomSnapshot {
	snap := RoomSnapshot{
		RoomID:        r.id,
		Players:       make(map[string]PlayerState, len(r.players)),
		Projectiles:   make(map[string]ProjectileState, len(r.projectiles)),
		Obstacles:     r.obstacles,
		Status:        string(r.status),
		TimeRemaining: r.timeRemaining,
		Winner:        r.winner,
		Settings:      r.settings,
	}
	for id, p := range r.players {
		snap.Players[id] = p.ToState()
	}
	for id, pr := range r.projectiles {
		snap.Projectiles[id] = pr.ToState()
	}
	return snap
}

// orderedPlayers returns players in materialization order, so per-tick
// effects resolve deterministically.
func (r *Room) orderedPlayers() []*Player {
	players := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		players = append(players, r.players[id])
	}
	return players
}

// broadcast marshals once and fans out to every member.
func (r *Room) broadcast(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("room %s: marshal error: %v", r.id, err)
		return
	}
	for _, conn := range r.conns {
		conn.SendRaw(data)
	}
}

// broadcastExcept fans out to every member but one.
func (r *Room) broadcastExcept(skipID string, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("room %s: marshal error: %v", r.id, err)
		return
	}
	for id, conn := range r.conns {
		if id == skipID {
			continue
		}
		conn.SendRaw(data)
	}
}

// broadcastSync sends the full snapshot as a msgpack binary frame. Snapshots
// are the heavyweight message, so they take the compact encoding.
func (r *Room) broadcastSync() {
	data, err := msgpack.Marshal(Envelope{T: MsgGameSync, Data: r.snapshotLocked()})
	if err != nil {
		log.Printf("room %s: msgpack error: %v", r.id, err)
		return
	}
	for _, conn := range r.conns {
		conn.SendBinary(data)
	}
}

func removeString(s []string, v string) []string {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
