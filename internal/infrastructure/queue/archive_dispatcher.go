package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/homeowner/portal/internal/api/metrics"
	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	archiveTimeout = 10 * time.Second
)

// ArchiveDispatcher hands activities to a fixed set of workers that write them
// to the archive. Activities are sharded by user id, so one user's entries
// reach the archive in the order they were recorded.
//
// ArchiveDispatcher satisfies ports.ActivityArchive; Archive never blocks the
// request that recorded the activity.
type ArchiveDispatcher struct {
	workers []chan domain.Activity
	archive ports.ActivityArchive
	log     zerolog.Logger
	wg      sync.WaitGroup
}

var _ ports.ActivityArchive = (*ArchiveDispatcher)(nil)

// NewArchiveDispatcher creates a dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewArchiveDispatcher(numWorkers int, archive ports.ActivityArchive, log zerolog.Logger) *ArchiveDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &ArchiveDispatcher{
		workers: make([]chan domain.Activity, numWorkers),
		archive: archive,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Activity, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled;
// Wait blocks until they have.
func (d *ArchiveDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker started by Start has returned.
func (d *ArchiveDispatcher) Wait() {
	d.wg.Wait()
}

// Archive queues activity for the worker responsible for its user. When that
// worker's buffer is full the activity is dropped and logged.
func (d *ArchiveDispatcher) Archive(_ context.Context, activity domain.Activity) error {
	idx := d.shardIndex(activity.UserID)
	select {
	case d.workers[idx] <- activity:
		metrics.ArchiveQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.ArchiveResultsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().
			Int64("activity_id", activity.ID).
			Str("user_id", activity.UserID).
			Int("worker_id", idx).
			Msg("archive queue full, activity dropped")
	}
	return nil
}

// shardIndex maps a user id deterministically to a worker index.
func (d *ArchiveDispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *ArchiveDispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Activity) {
	defer d.wg.Done()
	depth := metrics.ArchiveQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case activity := <-ch:
			depth.Set(float64(len(ch)))
			d.write(ctx, id, activity)
		}
	}
}

func (d *ArchiveDispatcher) write(ctx context.Context, id int, activity domain.Activity) {
	writeCtx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()

	start := time.Now()
	err := d.archive.Archive(writeCtx, activity)
	metrics.ArchiveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ArchiveResultsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Int64("activity_id", activity.ID).
			Str("user_id", activity.UserID).
			Int("worker_id", id).
			Msg("activity archive failed")
		return
	}
	metrics.ArchiveResultsTotal.WithLabelValues("archived").Inc()
}
