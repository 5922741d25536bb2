// ardrone project flightlog_test.go

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

package flightlog

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/SMerrony/ardrone"
)

func TestRecordAndCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.db")
	l, err := Open(path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	records := []ardrone.NavData{
		{ReceivedAt: now, Raw: ardrone.NavDataHeader{DroneState: 0x800, Sequence: 1, VisionFlag: 1, Options: []byte{1, 2}}},
		{ReceivedAt: now.Add(time.Millisecond), Raw: "custom decoder output"},
	}
	for _, nd := range records {
		if err := l.RecordNavData(nd); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.RecordState(now, ardrone.StateBootstrap, ardrone.StateReady); err != nil {
		t.Fatal(err)
	}

	nav, states, err := l.Count()
	if err != nil {
		t.Fatal(err)
	}
	if nav != 2 || states != 1 {
		t.Errorf("navdata %d, states %d", nav, states)
	}

	var seq uint32
	var to string
	if err := l.db.QueryRow(`SELECT sequence FROM navdata ORDER BY id LIMIT 1`).Scan(&seq); err != nil || seq != 1 {
		t.Errorf("sequence %d, err %v", seq, err)
	}
	if err := l.db.QueryRow(`SELECT to_state FROM session_states`).Scan(&to); err != nil || to != "ready" {
		t.Errorf("to_state %q, err %v", to, err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.db")
	l, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.RecordState(time.Now(), ardrone.StateDisconnected, ardrone.StateBootstrap); err != nil {
		t.Fatal(err)
	}
	l.Close()

	l, err = Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if _, states, _ := l.Count(); states != 1 {
		t.Errorf("states %d after reopen", states)
	}
}
