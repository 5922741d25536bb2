// flightlog.go

// Copyright (C) 2018  Steve Merrony

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package flightlog records a session's telemetry and state changes to SQLite.
package flightlog

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"github.com/SMerrony/ardrone"
)

const ddlNavData = `
CREATE TABLE IF NOT EXISTS navdata (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    received_at INTEGER NOT NULL,          -- Unix milliseconds
    drone_state INTEGER NOT NULL DEFAULT 0,
    sequence    INTEGER NOT NULL DEFAULT 0,
    vision_flag INTEGER NOT NULL DEFAULT 0,
    options     BLOB
);
CREATE INDEX IF NOT EXISTS idx_navdata_received_at ON navdata (received_at);
`

const ddlStates = `
CREATE TABLE IF NOT EXISTS session_states (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    changed_at INTEGER NOT NULL,           -- Unix milliseconds
    from_state TEXT    NOT NULL,
    to_state   TEXT    NOT NULL
);
`

// Log is an open flight log. All methods are safe for concurrent use.
type Log struct {
	db   *sql.DB
	log  *zap.Logger
	path string

	mu        sync.Mutex
	insertNav *sql.Stmt
	insertSt  *sql.Stmt
}

// Open opens (or creates) the flight log at path in WAL mode and applies the schema.
func Open(path string, log *zap.Logger) (*Log, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("flightlog: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("flightlog: ping: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{ddlNavData, ddlStates} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("flightlog: migrate: %w", err)
		}
	}

	l := &Log{db: db, log: log, path: path}
	if l.insertNav, err = db.Prepare(`INSERT INTO navdata (received_at, drone_state, sequence, vision_flag, options) VALUES (?, ?, ?, ?, ?)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("flightlog: prepare: %w", err)
	}
	if l.insertSt, err = db.Prepare(`INSERT INTO session_states (changed_at, from_state, to_state) VALUES (?, ?, ?)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("flightlog: prepare: %w", err)
	}
	log.Info("flightlog: opened", zap.String("path", path))
	return l, nil
}

// Path is the database file.
func (l *Log) Path() string { return l.path }

// RecordNavData stores one telemetry record. Records not produced by the default
// header decoder are stored with their receive time only.
func (l *Log) RecordNavData(nd ardrone.NavData) error {
	var state, seq, vision uint32
	var opts []byte
	if h, ok := nd.Raw.(ardrone.NavDataHeader); ok {
		state, seq, vision, opts = h.DroneState, h.Sequence, h.VisionFlag, h.Options
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.insertNav.Exec(nd.ReceivedAt.UnixMilli(), state, seq, vision, opts); err != nil {
		return fmt.Errorf("flightlog: insert navdata: %w", err)
	}
	return nil
}

// RecordState stores a session state change.
func (l *Log) RecordState(at time.Time, from, to ardrone.SessionState) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.insertSt.Exec(at.UnixMilli(), from.String(), to.String()); err != nil {
		return fmt.Errorf("flightlog: insert state: %w", err)
	}
	return nil
}

// Count returns how many telemetry records and state changes are stored.
func (l *Log) Count() (navData, states int, err error) {
	if err = l.db.QueryRow(`SELECT COUNT(*) FROM navdata`).Scan(&navData); err != nil {
		return 0, 0, fmt.Errorf("flightlog: count navdata: %w", err)
	}
	if err = l.db.QueryRow(`SELECT COUNT(*) FROM session_states`).Scan(&states); err != nil {
		return 0, 0, fmt.Errorf("flightlog: count states: %w", err)
	}
	return navData, states, nil
}

// Close releases the database.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.insertNav.Close()
	l.insertSt.Close()
	return l.db.Close()
}
