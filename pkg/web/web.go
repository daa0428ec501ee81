package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"sub_trigger_bot/pkg/config"
	"sub_trigger_bot/pkg/control"
	"sub_trigger_bot/pkg/effect"
	"sub_trigger_bot/pkg/looper"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	DefaultReadTimout = 5 * time.Second
)

// HTTP status and control surface.
type Server struct {
	ctl         control.Controller
	broadcaster *Broadcaster
	server      *http.Server
}

func NewServer(port string, ctl control.Controller, broadcaster *Broadcaster) *Server {
	s := &Server{
		ctl:         ctl,
		broadcaster: broadcaster,
	}

	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           mux,
		ReadHeaderTimeout: DefaultReadTimout,
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "ok")
	})
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/stop", s.handleStop)
	mux.HandleFunc("/events", s.handleEvents)
}

// Blocks serving until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	log.Printf("web listening on %s\n", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start web")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("shutting down web service")

	s.broadcaster.Close()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

// POST /start?effect=anvil
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.ctl.Start(r.Context(), r.URL.Query().Get("effect")); err != nil {
		writeJSON(w, statusOf(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, s.ctl.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.ctl.Stop()
	writeJSON(w, http.StatusAccepted, s.ctl.Status())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v\n", err)
		return
	}

	log.Printf("websocket client connected: %s\n", r.RemoteAddr)
	c := s.broadcaster.AddClient(conn, s.ctl.Status())

	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			log.Printf("websocket client disconnected: %s\n", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, looper.ErrAlreadyRunning), errors.Is(err, looper.ErrStopping):
		return http.StatusConflict
	case errors.Is(err, config.ErrInvalid), errors.Is(err, effect.ErrUnknownVariant):
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response, error %v\n", err)
	}
}
