package persist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mageling/arena/internal/replay"
)

// Store is what the background writer persists finished matches into.
type Store interface {
	SaveMatch(ctx context.Context, m *MatchRecord) (int64, error)
	SaveInputs(ctx context.Context, matchID int64, log *replay.Log) error
}

// Repos joins the two repositories into a Store.
type Repos struct {
	*MatchRepo
	*ReplayRepo
}

func NewRepos(db *DB) Repos {
	return Repos{MatchRepo: NewMatchRepo(db), ReplayRepo: NewReplayRepo(db)}
}

// Job is one finished match waiting to be written.
type Job struct {
	Match  *MatchRecord
	Inputs *replay.Log // optional
}

const writeTimeout = 10 * time.Second

// Writer saves matches off the simulation goroutine. Submit never blocks:
// when the queue is full the match is dropped and logged.
type Writer struct {
	store Store
	jobs  chan Job
	log   *zap.Logger

	mu     sync.Mutex
	closed bool
}

func NewWriter(store Store, queueSize int, log *zap.Logger) *Writer {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Writer{store: store, jobs: make(chan Job, queueSize), log: log}
}

// Submit queues a job. It reports false when the job was dropped.
func (w *Writer) Submit(job Job) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.log.Warn("match writer closed, dropping match", zap.Int("frames", job.Match.Frames))
		return false
	}
	select {
	case w.jobs <- job:
		return true
	default:
		w.log.Warn("match writer queue full, dropping match", zap.Int("frames", job.Match.Frames))
		return false
	}
}

// Close stops accepting jobs. Run returns once the queue is drained.
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
}

// Run writes jobs until Close or ctx is done. Jobs still queued at
// cancellation are written with a fresh deadline so a shutdown does not lose
// a just-finished match.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case job, ok := <-w.jobs:
			if !ok {
				return nil
			}
			w.write(ctx, job)
		case <-ctx.Done():
			w.Close()
			for job := range w.jobs {
				w.write(context.Background(), job)
			}
			return nil
		}
	}
}

func (w *Writer) write(parent context.Context, job Job) {
	ctx, cancel := context.WithTimeout(parent, writeTimeout)
	defer cancel()

	id, err := w.store.SaveMatch(ctx, job.Match)
	if err != nil {
		w.log.Error("save match failed", zap.Error(err))
		return
	}
	if job.Inputs != nil {
		if err := w.store.SaveInputs(ctx, id, job.Inputs); err != nil {
			w.log.Error("save match inputs failed", zap.Int64("match", id), zap.Error(err))
			return
		}
	}
	w.log.Info("match saved",
		zap.Int64("match", id),
		zap.Int("frames", job.Match.Frames),
		zap.Int("rounds", len(job.Match.Rounds)))
}
