package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/simulagent/pkg/simul"
)

// Server serves pipelines over websocket.
type Server struct {
	newPipeline func() (*simul.Pipeline, error)
	upgrader    websocket.Upgrader
	mux         *http.ServeMux
	logger      *slog.Logger

	// IdleTimeout closes connections that send nothing for this long.
	// Zero disables the timeout.
	IdleTimeout time.Duration
}

// New creates a Server building one pipeline per connection with
// newPipeline. A nil logger uses slog.Default.
func New(newPipeline func() (*simul.Pipeline, error), logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		newPipeline: newPipeline,
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	p, err := s.newPipeline()
	if err != nil {
		s.logger.Error("build pipeline", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	s.logger.Info("session opened", "remote", r.RemoteAddr)
	if err := s.serve(conn, p); err != nil {
		s.logger.Error("session failed", "remote", r.RemoteAddr, "error", err)
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "")
		conn.WriteJSON(Frame{Type: TypeError, Error: err.Error()})
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		return
	}
	s.logger.Info("session closed", "remote", r.RemoteAddr)
}

func (s *Server) serve(conn *websocket.Conn, p *simul.Pipeline) error {
	for {
		if s.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.IdleTimeout))
		}
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return nil
			}
			return fmt.Errorf("server: read frame: %w", err)
		}

		switch f.Type {
		case TypeSegment:
			out, err := p.PushPop(f.Segment())
			if err != nil {
				return err
			}
			if err := conn.WriteJSON(segmentFrame(out)); err != nil {
				return fmt.Errorf("server: write frame: %w", err)
			}
		case TypeReset:
			p.Reset()
			if err := conn.WriteJSON(Frame{Type: TypeReset}); err != nil {
				return fmt.Errorf("server: write frame: %w", err)
			}
		default:
			return fmt.Errorf("server: unknown frame type %q", f.Type)
		}
	}
}
