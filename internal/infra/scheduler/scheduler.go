package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one monitor tick. The context is cancelled on timeout or shutdown.
type Job func(ctx context.Context) error

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	out := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}

// MonitorScheduler owns the periodic monitor ticks. A tick that is still
// running when its next slot comes up is skipped, and a panicking tick is
// recovered and logged.
type MonitorScheduler struct {
	cronEngine *cron.Cron
	logger     *logrus.Entry

	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewMonitorScheduler(logger *logrus.Entry, loc *time.Location) *MonitorScheduler {
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{entry: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &MonitorScheduler{
		cronEngine: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
		entries: make(map[string]cron.EntryID),
	}
}

// Register adds a named job on a cron spec ("@every 1m", "*/5 * * * *").
// Each run gets its own context bounded by timeout.
func (s *MonitorScheduler) Register(name, spec string, timeout time.Duration, job Job) (cron.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return 0, fmt.Errorf("job %q is already registered", name)
	}

	log := s.logger.WithField("job", name)
	id, err := s.cronEngine.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(s.baseCtx, timeout)
		defer cancel()

		started := time.Now()
		if err := job(ctx); err != nil {
			log.WithError(err).Error("Job run failed")
			return
		}
		log.WithField("took", time.Since(started).String()).Debug("Job run finished")
	})
	if err != nil {
		return 0, fmt.Errorf("could not add job %q with spec %q: %w", name, spec, err)
	}
	s.entries[name] = id
	log.WithField("spec", spec).Info("Job registered")
	return id, nil
}

// Next reports when a registered job runs next. ok is false for unknown jobs
// or before Start.
func (s *MonitorScheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	next := s.cronEngine.Entry(id).Next
	return next, !next.IsZero()
}

func (s *MonitorScheduler) Start() {
	s.logger.Info("Starting monitor scheduler...")
	s.cronEngine.Start()
}

// Stop cancels running ticks and waits for them to return.
func (s *MonitorScheduler) Stop() {
	s.logger.Info("Stopping monitor scheduler...")
	s.cancel()
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Monitor scheduler gracefully stopped.")
}
