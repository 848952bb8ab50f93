// Package httpapi is the monitor surface: health, metrics and a
// websocket stream of pipeline progress. It observes the pipeline, it
// never drives it.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// ProgressEvent is one update pushed to websocket subscribers.
type ProgressEvent struct {
	Fraction float64   `json:"fraction"`
	Status   string    `json:"status"`
	Time     time.Time `json:"time"`
}

// StreamSink fans progress updates out to websocket subscribers. It
// satisfies the pipeline's progress sink contract: Progress never
// blocks, a slow subscriber just loses updates.
type StreamSink struct {
	mu   sync.Mutex
	subs map[chan ProgressEvent]struct{}
	last ProgressEvent
}

func NewStreamSink() *StreamSink {
	return &StreamSink{subs: make(map[chan ProgressEvent]struct{})}
}

func (s *StreamSink) Progress(fraction float64, status string) {
	ev := ProgressEvent{Fraction: fraction, Status: status, Time: time.Now().UTC()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = ev
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is behind; drop rather than stall the scan.
		}
	}
}

// subscribe registers a buffered channel primed with the last event.
func (s *StreamSink) subscribe() chan ProgressEvent {
	ch := make(chan ProgressEvent, 16)
	s.mu.Lock()
	if s.last.Status != "" {
		ch <- s.last
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *StreamSink) unsubscribe(ch chan ProgressEvent) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

// Server is the monitor HTTP server.
type Server struct {
	httpServer *http.Server
	sink       *StreamSink
	upgrader   websocket.Upgrader
	version    string
}

// NewServer builds the monitor on the given listen address. The metrics
// handler serves whatever gatherer the telemetry package registered on.
func NewServer(addr string, sink *StreamSink, metricsHandler http.Handler, version string) *Server {
	s := &Server{
		sink:    sink,
		version: version,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws/progress", s.handleProgress)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// DefaultMetricsHandler serves the process-global prometheus registry.
func DefaultMetricsHandler() http.Handler { return promhttp.Handler() }

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("monitor server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// handleProgress upgrades to websocket and relays progress events until
// the client goes away.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := s.sink.subscribe()
	defer s.sink.unsubscribe(ch)

	// Reads are discarded, but the pump notices the close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case ev := <-ch:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
