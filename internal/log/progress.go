package log

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ProgressSink receives fractional progress and a short status string
// from long-running operations. Implementations must never block and
// never fail; the pipeline treats reporting as fire-and-forget.
type ProgressSink interface {
	Progress(fraction float64, status string)
}

// NopSink discards all progress updates; the default in tests.
type NopSink struct{}

func (NopSink) Progress(float64, string) {}

// LogSink writes progress to the structured log, throttled so a tight
// per-ticker loop does not flood the output.
type LogSink struct {
	mu       sync.Mutex
	minGap   time.Duration
	lastEmit time.Time
}

// NewLogSink creates a sink that emits at most one line per 500ms, plus
// always the terminal update.
func NewLogSink() *LogSink {
	return &LogSink{minGap: 500 * time.Millisecond}
}

func (s *LogSink) Progress(fraction float64, status string) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	s.mu.Lock()
	now := time.Now()
	if fraction < 1 && now.Sub(s.lastEmit) < s.minGap {
		s.mu.Unlock()
		return
	}
	s.lastEmit = now
	s.mu.Unlock()

	log.Info().Int("pct", int(fraction*100)).Msg(status)
}

// FuncSink adapts a plain function to the sink interface.
type FuncSink func(fraction float64, status string)

func (f FuncSink) Progress(fraction float64, status string) { f(fraction, status) }
