package frames

import (
	"context"
	"testing"
	"time"

	"github.com/xtxerr/warden/internal/schema"
)

func TestTrimmer_UnderLimitKeepsAll(t *testing.T) {
	s := newFrameStore(t)
	insertLink(t, s, "00112233", time.Time{})
	for i := 0; i < 10; i++ {
		insertFrame(t, s, "00112233", time.Now())
	}

	trimmer := NewTrimmer(s, TrimmerOptions{Limit: 50})
	results, err := trimmer.TrimAll(context.Background())
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 device result, got %d", len(results))
	}
	if results[0].Evicted != 0 {
		t.Errorf("expected no evictions, got %d", results[0].Evicted)
	}
	if got := s.Count(schema.TableRxFrames); got != 10 {
		t.Errorf("expected 10 frames, got %d", got)
	}
}

func TestTrimmer_EvictsOldestSurplus(t *testing.T) {
	s := newFrameStore(t)
	insertLink(t, s, "00112233", time.Time{})
	for i := 0; i < 60; i++ {
		insertFrame(t, s, "00112233", time.Now())
	}

	trimmer := NewTrimmer(s, TrimmerOptions{Limit: 50})
	results, err := trimmer.TrimAll(context.Background())
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if results[0].Evicted != 10 {
		t.Errorf("expected 10 evicted, got %d", results[0].Evicted)
	}
	if got := s.Count(schema.TableRxFrames); got != 50 {
		t.Errorf("expected 50 frames retained, got %d", got)
	}

	// The survivors are the newest frames: ids 11..60.
	reader := NewReader(s, 50)
	frames, err := reader.GetRxFrames(context.Background(), "00112233")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(frames) != 50 {
		t.Fatalf("expected 50 frames, got %d", len(frames))
	}
	if frames[0].FrameID != 11 {
		t.Errorf("oldest surviving frame: expected id 11, got %d", frames[0].FrameID)
	}
	if frames[len(frames)-1].FrameID != 60 {
		t.Errorf("newest surviving frame: expected id 60, got %d", frames[len(frames)-1].FrameID)
	}
}

func TestTrimmer_Idempotent(t *testing.T) {
	s := newFrameStore(t)
	insertLink(t, s, "00112233", time.Time{})
	for i := 0; i < 55; i++ {
		insertFrame(t, s, "00112233", time.Now())
	}

	trimmer := NewTrimmer(s, TrimmerOptions{Limit: 50})
	if _, err := trimmer.TrimAll(context.Background()); err != nil {
		t.Fatalf("first trim: %v", err)
	}
	results, err := trimmer.TrimAll(context.Background())
	if err != nil {
		t.Fatalf("second trim: %v", err)
	}
	if results[0].Evicted != 0 {
		t.Errorf("second pass evicted %d frames from a converged window", results[0].Evicted)
	}
	if got := s.Count(schema.TableRxFrames); got != 50 {
		t.Errorf("expected 50 frames, got %d", got)
	}
}

func TestTrimmer_PerDeviceWindows(t *testing.T) {
	s := newFrameStore(t)
	insertLink(t, s, "00112233", time.Time{})
	insertLink(t, s, "44556677", time.Time{})
	for i := 0; i < 8; i++ {
		insertFrame(t, s, "00112233", time.Now())
	}
	for i := 0; i < 3; i++ {
		insertFrame(t, s, "44556677", time.Now())
	}

	trimmer := NewTrimmer(s, TrimmerOptions{Limit: 5})
	results, err := trimmer.TrimAll(context.Background())
	if err != nil {
		t.Fatalf("trim: %v", err)
	}

	byDev := make(map[string]TrimResult, len(results))
	for _, r := range results {
		byDev[r.DevAddr] = r
	}
	if byDev["00112233"].Evicted != 3 {
		t.Errorf("device over limit: expected 3 evicted, got %d", byDev["00112233"].Evicted)
	}
	if byDev["44556677"].Evicted != 0 {
		t.Errorf("device under limit: expected 0 evicted, got %d", byDev["44556677"].Evicted)
	}
	if got := s.Count(schema.TableRxFrames); got != 8 {
		t.Errorf("expected 8 frames total, got %d", got)
	}
}

func TestTrimmer_DryRun(t *testing.T) {
	s := newFrameStore(t)
	insertLink(t, s, "00112233", time.Time{})
	for i := 0; i < 7; i++ {
		insertFrame(t, s, "00112233", time.Now())
	}

	trimmer := NewTrimmer(s, TrimmerOptions{Limit: 5})
	results, err := trimmer.DryRun(context.Background())
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if results[0].Evicted != 2 {
		t.Errorf("expected 2 would-be evictions, got %d", results[0].Evicted)
	}
	if got := s.Count(schema.TableRxFrames); got != 7 {
		t.Errorf("dry run deleted frames: %d remain", got)
	}
}

func TestTrimmer_DeviceWithoutFrames(t *testing.T) {
	s := newFrameStore(t)
	insertLink(t, s, "00112233", time.Time{})

	trimmer := NewTrimmer(s, TrimmerOptions{Limit: 5})
	results, err := trimmer.TrimAll(context.Background())
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if len(results) != 1 || results[0].Held != 0 || len(results[0].Errors) != 0 {
		t.Errorf("unexpected result for frameless device: %+v", results)
	}
}

func TestTrimmer_ArchivesBeforeDeleting(t *testing.T) {
	s := newFrameStore(t)
	insertLink(t, s, "00112233", time.Time{})
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		insertFrame(t, s, "00112233", base.Add(time.Duration(i)*time.Minute))
	}

	archiver, err := NewArchiver(t.TempDir(), "snappy")
	if err != nil {
		t.Fatalf("archiver: %v", err)
	}
	trimmer := NewTrimmer(s, TrimmerOptions{Limit: 5, Archive: archiver})
	results, err := trimmer.TrimAll(context.Background())
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if results[0].Evicted != 2 {
		t.Fatalf("expected 2 evicted, got %d", results[0].Evicted)
	}

	path := lastArchiveFile(t, archiver.dir)
	archived, err := ReadArchive(path)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if len(archived) != 2 {
		t.Fatalf("expected 2 archived frames, got %d", len(archived))
	}
	if archived[0].FrameID != 1 || archived[1].FrameID != 2 {
		t.Errorf("archived wrong frames: %d, %d", archived[0].FrameID, archived[1].FrameID)
	}
	if !archived[0].Received.Equal(base) {
		t.Errorf("timestamp not preserved: %v", archived[0].Received)
	}
}

func TestTrimmer_RecordsStats(t *testing.T) {
	s := newFrameStore(t)
	insertLink(t, s, "00112233", time.Time{})
	for i := 0; i < 7; i++ {
		insertFrame(t, s, "00112233", time.Now())
	}

	stats := NewMaintenanceStats()
	trimmer := NewTrimmer(s, TrimmerOptions{Limit: 5, Stats: stats})
	if _, err := trimmer.TrimAll(context.Background()); err != nil {
		t.Fatalf("trim: %v", err)
	}

	snap := stats.Snapshot()
	if snap.Passes != 1 {
		t.Errorf("expected 1 pass, got %d", snap.Passes)
	}
	if snap.Devices != 1 {
		t.Errorf("expected 1 device, got %d", snap.Devices)
	}
	if snap.FramesEvicted != 2 {
		t.Errorf("expected 2 evicted, got %d", snap.FramesEvicted)
	}
	if snap.LatencyP50 <= 0 {
		t.Errorf("expected positive latency quantile, got %v", snap.LatencyP50)
	}
}
