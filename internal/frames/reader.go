package frames

import (
	"context"
	"fmt"
	"time"

	"github.com/xtxerr/warden/config"
	"github.com/xtxerr/warden/internal/errors"
	"github.com/xtxerr/warden/internal/schema"
	"github.com/xtxerr/warden/internal/store"
)

// Reader serves the read view over the received-frame log: the retention
// window, further narrowed by the device's last reset time when one is
// recorded. The time filter is purely a read-time view; it never deletes
// anything.
type Reader struct {
	store store.Client
	limit int
}

// NewReader creates a frame reader. The limit mirrors the trimmer's
// retention window; pass 0 for the default.
func NewReader(c store.Client, limit int) *Reader {
	if limit <= 0 {
		limit = config.DefaultRetainedFrames
	}
	return &Reader{store: c, limit: limit}
}

// GetRxFrames returns the device's current frame window, oldest first.
//
// The window is the newest `limit` frames - the same set a trim pass
// would retain, computed here without deleting, so reads are correct
// even between passes. If the device's links record carries a last-reset
// timestamp, frames received before it are filtered out; a missing links
// record or an unset timestamp leaves the window unfiltered.
func (r *Reader) GetRxFrames(ctx context.Context, devAddr string) ([]RxFrame, error) {
	recs, order, err := window(r.store, devAddr, func(table string, pos int, value any) ([]store.Record, error) {
		return r.store.ReadIndexed(ctx, table, pos, value)
	})
	if err != nil {
		return nil, fmt.Errorf("read frames for %s: %w", devAddr, err)
	}
	if len(recs) > r.limit {
		recs = recs[len(recs)-r.limit:]
	}

	frames := make([]RxFrame, len(recs))
	for i, rec := range recs {
		frames[i] = decodeRxFrame(order, rec)
	}

	reset, err := r.lastReset(ctx, devAddr)
	if err != nil {
		return nil, err
	}
	if reset.IsZero() {
		return frames, nil
	}

	filtered := frames[:0]
	for _, f := range frames {
		if !f.Received.Before(reset) {
			filtered = append(filtered, f)
		}
	}
	return filtered, nil
}

// lastReset returns the device's recorded reset time, or the zero time
// when the device has no links record or no reset recorded. Neither is
// an error.
func (r *Reader) lastReset(ctx context.Context, devAddr string) (time.Time, error) {
	link, err := r.store.Lookup(ctx, schema.TableLinks, devAddr)
	if err != nil {
		if errors.IsNotFound(err) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("lookup link %s: %w", devAddr, err)
	}
	def, err := schema.Definition(schema.TableLinks)
	if err != nil {
		return time.Time{}, err
	}
	return asTime(link.Field(def.FieldOrder, schema.FieldLastReset)), nil
}
