package main

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

// PlayerResult is one player's line in a finished match.
type PlayerResult struct {
	PlayerID string `msgpack:"playerId"`
	Username string `msgpack:"username"`
	Score    int    `msgpack:"score"`
	Health   int    `msgpack:"health"`
	Active   bool   `msgpack:"isActive"`
}

// MatchResult is emitted on game-end. The simulation does not persist
// outcomes itself; the recorder below is an optional subscriber.
type MatchResult struct {
	RoomID     string
	MapID      string
	Winner     string
	Duration   float64 // seconds of playing phase
	Players    []PlayerResult
	FinishedAt time.Time
}

// Recorder persists match results to SQLite from a background writer. The
// enqueue path never blocks; when the queue is full the result is dropped
// rather than stalling a room tick.
type Recorder struct {
	conn    *sql.DB
	results chan MatchResult
	stop    chan struct{}
	wg      sync.WaitGroup
}

// OpenRecorder opens (or creates) the results database and starts the
// background writer.
func OpenRecorder(path string) (*Recorder, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			map_id TEXT NOT NULL,
			winner TEXT,
			duration REAL NOT NULL,
			scoreboard BLOB NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`); err != nil {
		conn.Close()
		return nil, err
	}

	r := &Recorder{
		conn:    conn,
		results: make(chan MatchResult, 256),
		stop:    make(chan struct{}),
	}
	r.wg.Add(1)
	go r.writer()
	return r, nil
}

// Record enqueues a result for async persistence (non-blocking).
func (r *Recorder) Record(res MatchResult) {
	select {
	case r.results <- res:
	default:
		log.Printf("recorder: queue full, dropping result for room %s", res.RoomID)
	}
}

// Close drains pending results and closes the database.
func (r *Recorder) Close() {
	close(r.stop)
	r.wg.Wait()
	r.conn.Close()
}

func (r *Recorder) writer() {
	defer r.wg.Done()
	for {
		select {
		case res := <-r.results:
			r.insert(res)
		case <-r.stop:
			for {
				select {
				case res := <-r.results:
					r.insert(res)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) insert(res MatchResult) {
	scoreboard, err := msgpack.Marshal(res.Players)
	if err != nil {
		log.Printf("recorder: marshal error: %v", err)
		return
	}
	_, err = r.conn.Exec(
		`INSERT INTO matches (room_id, map_id, winner, duration, scoreboard, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		res.RoomID, res.MapID, res.Winner, res.Duration, scoreboard, res.FinishedAt,
	)
	if err != nil {
		log.Printf("recorder: insert error: %v", err)
	}
}

// MatchCount returns the number of stored matches.
func (r *Recorder) MatchCount() (int, error) {
	var n int
	err := r.conn.QueryRow("SELECT COUNT(*) FROM matches").Scan(&n)
	return n, err
}
