package telemetry

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/flipbot/pkg/framework"
)

// WebsocketSink streams status as JSON to websocket clients.
type WebsocketSink struct {
	lock    sync.Mutex
	clients map[*websocket.Conn]chan struct{}
}

// NewWebsocketSink creates a WebsocketSink.
func NewWebsocketSink() *WebsocketSink {
	return &WebsocketSink{clients: make(map[*websocket.Conn]chan struct{})}
}

// Handler returns the websocket endpoint.
func (s *WebsocketSink) Handler() http.Handler {
	return websocket.Handler(s.serve)
}

func (s *WebsocketSink) serve(conn *websocket.Conn) {
	done := make(chan struct{})
	s.lock.Lock()
	s.clients[conn] = done
	s.lock.Unlock()
	glog.V(2).Infof("websocket client %s connected", conn.Request().RemoteAddr)
	// the handler must not return before the client is dropped.
	go func() {
		var msg []byte
		for websocket.Message.Receive(conn, &msg) == nil {
		}
		s.drop(conn)
	}()
	<-done
	glog.V(2).Infof("websocket client %s disconnected", conn.Request().RemoteAddr)
}

func (s *WebsocketSink) drop(conn *websocket.Conn) {
	s.lock.Lock()
	done, ok := s.clients[conn]
	delete(s.clients, conn)
	s.lock.Unlock()
	if ok {
		close(done)
	}
}

// Clients returns the number of connected clients.
func (s *WebsocketSink) Clients() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.clients)
}

// PublishStatus implements Sink. Clients failing to receive are dropped.
func (s *WebsocketSink) PublishStatus(m *Status) error {
	s.lock.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.lock.Unlock()
	for _, conn := range conns {
		if err := websocket.JSON.Send(conn, m); err != nil {
			glog.V(2).Infof("websocket send error: %v", err)
			s.drop(conn)
		}
	}
	return nil
}

// Server serves the websocket sink over HTTP.
type Server struct {
	Addr string
	Sink *WebsocketSink
}

// Name implements fx.Named.
func (s *Server) Name() string {
	return "websocket"
}

// Run implements fx.Runnable.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/status", s.Sink.Handler())
	srv := &http.Server{Handler: mux}
	glog.Infof("websocket telemetry on ws://%s/status", ln.Addr())
	return fx.RunWithContextCloser(ctx, srv, func() error {
		return srv.Serve(ln)
	})
}
