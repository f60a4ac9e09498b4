// Package scheduler triggers statistics runs on cron schedules, one run at
// a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/aggregate"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/metrics"
)

// Runner executes a run. *aggregate.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, mode aggregate.Mode, report aggregate.Reporter) (*aggregate.Summary, error)
}

type Config struct {
	// Specs maps a mode to a standard five-field cron spec. Empty specs
	// leave the mode unscheduled.
	Specs    map[aggregate.Mode]string
	Runner   Runner
	Logger   *logging.Logger
	Location *time.Location
}

// Status holds the current state for health reporting
type Status struct {
	Healthy      bool      `json:"healthy"`
	LastRun      time.Time `json:"last_run,omitempty"`
	LastSuccess  time.Time `json:"last_success,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	LastMode     string    `json:"last_mode,omitempty"`
	SkippedTicks int64     `json:"skipped_ticks"`
	Running      bool      `json:"running"`
	Progress     float64   `json:"progress"`
	Next         []Next    `json:"next,omitempty"`
}

// Next is the next activation of a scheduled mode.
type Next struct {
	Mode string    `json:"mode"`
	At   time.Time `json:"at"`
}

type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	logger  *logging.Logger
	entries map[aggregate.Mode]cron.EntryID

	// ctx is cancelled when Start returns so active runs stop.
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	running      bool
	progress     float64
	lastRun      time.Time
	lastSuccess  time.Time
	lastError    error
	lastMode     aggregate.Mode
	skippedTicks int64
	healthy      bool
	wg           sync.WaitGroup
}

func New(cfg Config) (*Scheduler, error) {
	if cfg.Runner == nil {
		return nil, errors.New("scheduler requires a runner")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{logger})),
		runner:  cfg.Runner,
		logger:  logger,
		entries: make(map[aggregate.Mode]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
		healthy: true,
	}

	for mode, spec := range cfg.Specs {
		if spec == "" {
			continue
		}
		id, err := s.cron.AddFunc(spec, func() { s.tick(mode) })
		if err != nil {
			cancel()
			return nil, fmt.Errorf("invalid %s schedule %q: %w", mode, spec, err)
		}
		s.entries[mode] = id
	}
	return s, nil
}

// Start runs the cron loop. Blocks until ctx is cancelled, then cancels
// the active run and waits for it to stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler", "Scheduler starting", logging.F("schedules", len(s.entries)))
	s.cron.Start()

	<-ctx.Done()
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler", "Scheduler stopped")
	return nil
}

// TriggerNow starts a run of mode in the background. It returns
// aggregate.ErrBusy when a run is already active.
func (s *Scheduler) TriggerNow(mode aggregate.Mode) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return aggregate.ErrBusy
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.tick(mode)
	}()
	return nil
}

// Wait blocks until triggered runs have finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) IsHealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Healthy:      s.healthy,
		LastRun:      s.lastRun,
		LastSuccess:  s.lastSuccess,
		LastMode:     string(s.lastMode),
		SkippedTicks: s.skippedTicks,
		Running:      s.running,
		Progress:     s.progress,
	}
	if s.lastError != nil {
		status.LastError = s.lastError.Error()
	}
	for mode, id := range s.entries {
		if next := s.cron.Entry(id).Next; !next.IsZero() {
			status.Next = append(status.Next, Next{Mode: string(mode), At: next})
		}
	}
	sort.Slice(status.Next, func(i, j int) bool { return status.Next[i].At.Before(status.Next[j].At) })
	return status
}

func (s *Scheduler) tick(mode aggregate.Mode) {
	s.mu.Lock()
	if s.running {
		s.skippedTicks++
		s.mu.Unlock()
		metrics.SkippedRuns.WithLabelValues(string(mode)).Inc()
		s.logger.Warn("scheduler", "Scheduled run skipped - previous run still running",
			logging.F("mode", string(mode)),
			logging.F("skipped_ticks", s.skippedTicks))
		return
	}
	s.running = true
	s.progress = 0
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	err := s.run(s.ctx, mode)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = time.Now()
	s.lastMode = mode
	if err != nil {
		s.lastError = err
		s.healthy = false
		return
	}
	s.lastSuccess = s.lastRun
	s.lastError = nil
	s.healthy = true
}

func (s *Scheduler) run(ctx context.Context, mode aggregate.Mode) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panic: %v", r)
			s.logger.Error("scheduler", "Panic during run", err, logging.F("mode", string(mode)))
		}
	}()

	_, err = s.runner.Run(ctx, mode, func(p float64) {
		s.mu.Lock()
		s.progress = p
		s.mu.Unlock()
	})
	return err
}

// cronLogger routes cron's own messages to the application log.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron", msg, fields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron", msg, err, fields(keysAndValues)...)
}

func fields(kv []any) []logging.Field {
	out := make([]logging.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logging.F(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
