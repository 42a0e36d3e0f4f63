package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/xtxerr/warden/internal/frames"
	"github.com/xtxerr/warden/internal/schema"
	"github.com/xtxerr/warden/internal/store"
	"github.com/xtxerr/warden/internal/store/memstore"
)

func newTestStore(t *testing.T) *memstore.Store {
	t.Helper()
	s := memstore.New()
	ctx := context.Background()
	for _, name := range []string{schema.TableLinks, schema.TableRxFrames} {
		def, err := schema.Definition(name)
		if err != nil {
			t.Fatalf("definition %s: %v", name, err)
		}
		if err := s.CreateTable(ctx, name, def.Spec()); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	link, _ := schema.Definition(schema.TableLinks)
	rec := store.Record{Tag: link.RecordTag, Values: make([]any, len(link.FieldOrder))}
	rec.Values[0] = "00112233"
	if err := s.Insert(ctx, schema.TableLinks, rec); err != nil {
		t.Fatalf("insert link: %v", err)
	}
	return s
}

func addFrames(t *testing.T, s *memstore.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		rec := store.NewRecord("rxframe",
			nil, "aa:bb", "00112233", 868.1, "SF7BW125",
			-100.0, 5.0, 2, []byte{1}, time.Now())
		if err := s.Insert(context.Background(), schema.TableRxFrames, rec); err != nil {
			t.Fatalf("insert frame: %v", err)
		}
	}
}

func TestJanitor_TrimNow(t *testing.T) {
	s := newTestStore(t)
	addFrames(t, s, 8)

	trimmer := frames.NewTrimmer(s, frames.TrimmerOptions{Limit: 5})
	j := New(trimmer, Options{})

	results, err := j.TrimNow(context.Background())
	if err != nil {
		t.Fatalf("trim now: %v", err)
	}
	if len(results) != 1 || results[0].Evicted != 3 {
		t.Errorf("unexpected results: %+v", results)
	}
	if got := s.Count(schema.TableRxFrames); got != 5 {
		t.Errorf("expected 5 frames, got %d", got)
	}
}

func TestJanitor_RunTrimsOnTick(t *testing.T) {
	s := newTestStore(t)
	addFrames(t, s, 8)

	trimmer := frames.NewTrimmer(s, frames.TrimmerOptions{Limit: 5})
	j := New(trimmer, Options{Interval: 10 * time.Millisecond, Jitter: -1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for s.Count(schema.TableRxFrames) > 5 {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("janitor never trimmed: %d frames remain", s.Count(schema.TableRxFrames))
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on context cancel")
	}
}

func TestJanitor_RunStopsPromptly(t *testing.T) {
	s := newTestStore(t)
	trimmer := frames.NewTrimmer(s, frames.TrimmerOptions{Limit: 5})
	j := New(trimmer, Options{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on context cancel")
	}
}
