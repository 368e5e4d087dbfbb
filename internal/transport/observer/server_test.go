package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelmotion.ai/internal/observerproto"
	"voxelmotion.ai/internal/sim/agent"
	"voxelmotion.ai/internal/sim/geom"
)

type fixedSource struct{}

func (fixedSource) Bootstrap() observerproto.BootstrapResponse {
	return observerproto.BootstrapResponse{RunID: "run-1", TickRateHz: 20, BlockPalette: []string{"AIR", "STONE"}}
}

func TestBootstrap(t *testing.T) {
	s := NewServer(fixedSource{}, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/observer/bootstrap")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var b observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.RunID != "run-1" || b.ProtocolVersion != observerproto.Version || len(b.BlockPalette) != 2 {
		t.Fatalf("bootstrap=%+v", b)
	}
}

func dial(t *testing.T, srv *httptest.Server, sub observerproto.SubscribeMsg) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	sub.Type = observerproto.TypeSubscribe
	sub.ProtocolVersion = observerproto.Version
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return conn
}

func waitSubscribers(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers=%d want=%d", s.Subscribers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTicksReachSubscribers(t *testing.T) {
	s := NewServer(fixedSource{}, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv, observerproto.SubscribeMsg{Path: true})
	defer conn.Close()
	waitSubscribers(t, s, 1)

	view := &agent.PathView{Dest: geom.P(3, 1, 0), Remaining: []geom.Pos{geom.P(1, 1, 0), geom.P(2, 1, 0), geom.P(3, 1, 0)}}
	s.PublishTick(TickFromRecord(agent.TickRecord{Tick: 7, Feet: geom.P(1, 1, 0), Controller: "follow"}, view))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got observerproto.TickMsg
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != observerproto.TypeTick || got.Tick != 7 || got.Agent.Controller != "follow" {
		t.Fatalf("tick=%+v", got)
	}
	if got.Path == nil || len(got.Path.Remaining) != 3 || got.Path.Dest != [3]int{3, 1, 0} {
		t.Fatalf("path=%+v", got.Path)
	}
}

func TestSubscriberSamplesEveryNthTick(t *testing.T) {
	s := NewServer(fixedSource{}, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv, observerproto.SubscribeMsg{Every: 2})
	defer conn.Close()
	waitSubscribers(t, s, 1)

	for i := uint64(1); i <= 4; i++ {
		s.PublishTick(TickFromRecord(agent.TickRecord{Tick: i}, &agent.PathView{}))
	}
	var ticks []uint64
	for len(ticks) < 2 {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got observerproto.TickMsg
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("read: %v", err)
		}
		if got.Path != nil {
			t.Fatalf("path sent to a subscriber that did not ask for it")
		}
		ticks = append(ticks, got.Tick)
	}
	if ticks[0] != 1 || ticks[1] != 3 {
		t.Fatalf("ticks=%v", ticks)
	}
}
