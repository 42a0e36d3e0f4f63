package frames

import (
	"context"
	"fmt"
	"time"

	"github.com/xtxerr/warden/config"
	"github.com/xtxerr/warden/internal/schema"
	"github.com/xtxerr/warden/internal/store"
)

// Trimmer enforces the per-device retention window over the rxframes
// log. A trim pass snapshots each device's frames, and when the count
// exceeds the limit deletes the oldest surplus, one record at a time,
// by full value. Frames inserted after the snapshot are never deletion
// candidates, so concurrent writers can only push the live count above
// the limit until the next pass, never lose data to it.
type Trimmer struct {
	store   store.Client
	limit   int
	archive *Archiver
	stats   *MaintenanceStats
}

// TrimmerOptions configures a Trimmer.
type TrimmerOptions struct {
	// Limit is the retention window size. Defaults to
	// config.DefaultRetainedFrames.
	Limit int

	// Archive, when non-nil, receives evicted frames before they are
	// deleted. An archive failure keeps the device's frames for the
	// next pass rather than deleting unarchived data.
	Archive *Archiver

	// Stats, when non-nil, collects per-device trim metrics.
	Stats *MaintenanceStats
}

// TrimResult reports one device's outcome within a trim pass.
type TrimResult struct {
	DevAddr string
	Held    int
	Evicted int
	Errors  []error
}

// NewTrimmer creates a retention trimmer.
func NewTrimmer(c store.Client, opts TrimmerOptions) *Trimmer {
	limit := opts.Limit
	if limit <= 0 {
		limit = config.DefaultRetainedFrames
	}
	return &Trimmer{
		store:   c,
		limit:   limit,
		archive: opts.Archive,
		stats:   opts.Stats,
	}
}

// Limit returns the retention window size.
func (t *Trimmer) Limit() int {
	return t.limit
}

// TrimAll runs a trim pass over every device that has a links record.
// Per-device failures are logged and recorded in that device's result;
// they do not stop the pass. The returned error covers only the device
// enumeration itself.
func (t *Trimmer) TrimAll(ctx context.Context) ([]TrimResult, error) {
	return t.run(ctx, false)
}

// DryRun reports what TrimAll would evict without deleting anything.
func (t *Trimmer) DryRun(ctx context.Context) ([]TrimResult, error) {
	return t.run(ctx, true)
}

func (t *Trimmer) run(ctx context.Context, dryRun bool) ([]TrimResult, error) {
	keys, err := t.store.Keys(ctx, schema.TableLinks)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	results := make([]TrimResult, 0, len(keys))
	evicted := 0
	for _, key := range keys {
		devAddr := asString(key)
		if devAddr == "" {
			continue
		}
		result := t.trimDevice(ctx, devAddr, dryRun)
		for _, derr := range result.Errors {
			log.Error("trim failed", "devaddr", devAddr, "error", derr)
		}
		evicted += result.Evicted
		results = append(results, result)
	}

	if !dryRun && t.stats != nil {
		t.stats.RecordPass()
	}
	log.Info("trim pass complete",
		"devices", len(results),
		"evicted", evicted,
		"dry_run", dryRun,
	)
	return results, nil
}

// TrimDevice trims a single device's window.
func (t *Trimmer) TrimDevice(ctx context.Context, devAddr string) TrimResult {
	return t.trimDevice(ctx, devAddr, false)
}

func (t *Trimmer) trimDevice(ctx context.Context, devAddr string, dryRun bool) TrimResult {
	start := time.Now()
	result := TrimResult{DevAddr: devAddr}

	recs, order, err := window(t.store, devAddr, func(table string, pos int, value any) ([]store.Record, error) {
		return t.store.ReadIndexed(ctx, table, pos, value)
	})
	if err != nil {
		result.Errors = append(result.Errors, err)
		t.recordDevice(start, 0, true)
		return result
	}

	result.Held = len(recs)
	if len(recs) <= t.limit {
		t.recordDevice(start, 0, false)
		return result
	}

	// Sorted ascending by frame id: the prefix is the oldest surplus.
	expired := recs[:len(recs)-t.limit]

	if dryRun {
		result.Evicted = len(expired)
		return result
	}

	if t.archive != nil {
		decoded := make([]RxFrame, len(expired))
		for i, rec := range expired {
			decoded[i] = decodeRxFrame(order, rec)
		}
		if _, err := t.archive.Archive(devAddr, decoded); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("archive: %w", err))
			t.recordDevice(start, 0, true)
			return result
		}
	}

	for _, rec := range expired {
		if err := t.store.DeleteRecord(ctx, schema.TableRxFrames, rec); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("delete frame %v: %w", rec.Key(), err))
			continue
		}
		result.Evicted++
	}

	result.Held -= result.Evicted
	t.recordDevice(start, result.Evicted, len(result.Errors) > 0)
	return result
}

func (t *Trimmer) recordDevice(start time.Time, evicted int, failed bool) {
	if t.stats == nil {
		return
	}
	t.stats.RecordDevice(time.Since(start), evicted, failed)
}
