// ardrone project relay_test.go

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

package relay

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/SMerrony/ardrone"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("have %d clients, want %d", h.Clients(), n)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestPublishReachesClients(t *testing.T) {
	h := NewHub(zap.NewNop())
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()
	defer h.Close()

	a, b := dial(t, srv), dial(t, srv)
	defer a.Close()
	defer b.Close()
	waitClients(t, h, 2)

	nd := ardrone.NavData{ReceivedAt: time.Now(), Raw: ardrone.NavDataHeader{DroneState: 3, Sequence: 9}}
	h.Publish(NavDataEvent(nd))

	for _, c := range []*websocket.Conn{a, b} {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev Event
		if err := c.ReadJSON(&ev); err != nil {
			t.Fatal(err)
		}
		if ev.Type != "navdata" || ev.Sequence != 9 || ev.DroneState != 3 {
			t.Errorf("event %+v", ev)
		}
	}
}

func TestClientRemovedOnDisconnect(t *testing.T) {
	h := NewHub(zap.NewNop())
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()
	defer h.Close()

	c := dial(t, srv)
	waitClients(t, h, 1)
	c.Close()
	waitClients(t, h, 0)
	h.Publish(StateEvent(time.Now(), ardrone.StateReady, ardrone.StateWatchdog))
}

func TestStateEvent(t *testing.T) {
	ev := StateEvent(time.Now(), ardrone.StateBootstrap, ardrone.StateReady)
	if ev.Type != "state" || ev.From != "bootstrap" || ev.To != "ready" {
		t.Errorf("event %+v", ev)
	}
}
