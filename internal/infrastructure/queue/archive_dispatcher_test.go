package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/homeowner/portal/internal/core/domain"
)

type recordingArchive struct {
	mu   sync.Mutex
	seen []domain.Activity
	err  error
}

func (r *recordingArchive) Archive(_ context.Context, a domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, a)
	return r.err
}

func (r *recordingArchive) snapshot() []domain.Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Activity(nil), r.seen...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestArchiveDispatcher_PreservesPerUserOrder(t *testing.T) {
	archive := &recordingArchive{}
	d := NewArchiveDispatcher(3, archive, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	for i := int64(1); i <= 20; i++ {
		user := "user-a"
		if i%2 == 0 {
			user = "user-b"
		}
		_ = d.Archive(ctx, domain.Activity{ID: i, UserID: user, Type: domain.ActivityLogin})
	}

	waitFor(t, func() bool { return len(archive.snapshot()) == 20 })
	cancel()
	d.Wait()

	last := map[string]int64{}
	for _, a := range archive.snapshot() {
		if a.ID <= last[a.UserID] {
			t.Fatalf("activity %d for %s archived after %d", a.ID, a.UserID, last[a.UserID])
		}
		last[a.UserID] = a.ID
	}
}

func TestArchiveDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewArchiveDispatcher(0, &recordingArchive{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
	first := d.shardIndex("user-42")
	for i := 0; i < 10; i++ {
		if got := d.shardIndex("user-42"); got != first {
			t.Fatalf("shard changed from %d to %d", first, got)
		}
	}
}

func TestArchiveDispatcher_DropsWhenFull(t *testing.T) {
	archive := &recordingArchive{}
	d := NewArchiveDispatcher(1, archive, zerolog.Nop())

	// no workers running, so the single buffer fills up
	for i := 0; i < channelBuffer+5; i++ {
		if err := d.Archive(context.Background(), domain.Activity{ID: int64(i), UserID: "u"}); err != nil {
			t.Fatalf("Archive returned %v", err)
		}
	}
	if got := len(d.workers[0]); got != channelBuffer {
		t.Fatalf("expected full buffer of %d, got %d", channelBuffer, got)
	}
}

func TestArchiveDispatcher_FailuresDoNotStopWorker(t *testing.T) {
	archive := &recordingArchive{err: errors.New("mongo down")}
	d := NewArchiveDispatcher(1, archive, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	_ = d.Archive(ctx, domain.Activity{ID: 1, UserID: "u"})
	_ = d.Archive(ctx, domain.Activity{ID: 2, UserID: "u"})
	waitFor(t, func() bool { return len(archive.snapshot()) == 2 })
}
