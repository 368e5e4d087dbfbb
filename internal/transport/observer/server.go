// Package observer streams agent state to debug viewers over a loopback websocket.
package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voxelmotion.ai/internal/observerproto"
)

// Source answers bootstrap requests.
type Source interface {
	Bootstrap() observerproto.BootstrapResponse
}

type subscriber struct {
	id    uint64
	every int
	path  bool
	out   chan []byte
	seen  uint64
}

type Server struct {
	src Source
	log *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu   sync.Mutex
	subs map[uint64]*subscriber

	dropped atomic.Uint64
}

func NewServer(src Source, logger *log.Logger) *Server {
	return &Server{
		src: src,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
		subs: map[uint64]*subscriber{},
	}
}

func (s *Server) printf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

// Handler serves the bootstrap document and the websocket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/observer/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/observer/ws", s.WSHandler())
	return mux
}

func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Dropped counts messages discarded for slow subscribers.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

// PublishTick fans a tick out to every subscriber. It never blocks the tick loop.
func (s *Server) PublishTick(msg observerproto.TickMsg) {
	msg.Type = observerproto.TypeTick
	msg.ProtocolVersion = observerproto.Version
	withPath, err := json.Marshal(msg)
	if err != nil {
		return
	}
	var bare []byte
	if msg.Path != nil {
		msg.Path = nil
		bare, _ = json.Marshal(msg)
	} else {
		bare = withPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		sub.seen++
		if sub.every > 1 && (sub.seen-1)%uint64(sub.every) != 0 {
			continue
		}
		b := bare
		if sub.path {
			b = withPath
		}
		s.send(sub, b)
	}
}

func (s *Server) PublishSegment(msg observerproto.SegmentMsg) {
	msg.Type = observerproto.TypeSegment
	msg.ProtocolVersion = observerproto.Version
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		s.send(sub, b)
	}
}

func (s *Server) send(sub *subscriber, b []byte) {
	select {
	case sub.out <- b:
	default:
		s.dropped.Add(1)
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := s.src.Bootstrap()
		resp.ProtocolVersion = observerproto.Version
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		me := &subscriber{id: s.nextID.Add(1), out: make(chan []byte, 256)}
		s.apply(me, sub)
		s.mu.Lock()
		s.subs[me.id] = me
		s.mu.Unlock()
		s.printf("observer: O%d subscribed from %s", me.id, r.RemoteAddr)
		defer func() {
			s.mu.Lock()
			delete(s.subs, me.id)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-me.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: SUBSCRIBE may be re-sent to change settings.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var upd observerproto.SubscribeMsg
			if err := json.Unmarshal(msg, &upd); err != nil || upd.Type != observerproto.TypeSubscribe {
				continue
			}
			s.apply(me, upd)
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) apply(me *subscriber, sub observerproto.SubscribeMsg) {
	every := sub.Every
	if every < 1 {
		every = 1
	}
	if every > 200 {
		every = 200
	}
	s.mu.Lock()
	me.every, me.path = every, sub.Path
	s.mu.Unlock()
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
