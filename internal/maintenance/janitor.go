// Package maintenance schedules the periodic background work warden
// performs against the store - currently the retention trim pass.
package maintenance

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xtxerr/warden/config"
	"github.com/xtxerr/warden/internal/frames"
	"github.com/xtxerr/warden/internal/logging"
)

var log = logging.Component("janitor")

// Janitor runs the trim pass on an interval and on demand. Concurrent
// requests for a pass collapse into a single execution via singleflight;
// a tick that fires while a pass is still running joins it instead of
// starting another.
type Janitor struct {
	trimmer  *frames.Trimmer
	interval time.Duration
	jitter   time.Duration
	group    singleflight.Group
}

// Options configures a Janitor.
type Options struct {
	// Interval between trim passes. Defaults to config.DefaultTrimInterval.
	Interval time.Duration

	// Jitter is the maximum random delay added before each pass.
	// Defaults to config.DefaultTrimJitter; negative disables jitter.
	Jitter time.Duration
}

// New creates a janitor driving the given trimmer.
func New(t *frames.Trimmer, opts Options) *Janitor {
	interval := opts.Interval
	if interval <= 0 {
		interval = config.DefaultTrimInterval
	}
	jitter := opts.Jitter
	if jitter == 0 {
		jitter = config.DefaultTrimJitter
	}
	if jitter < 0 {
		jitter = 0
	}
	return &Janitor{
		trimmer:  t,
		interval: interval,
		jitter:   jitter,
	}
}

// Run blocks, trimming on every tick until the context is canceled.
// Trim failures are logged; the loop keeps going.
func (j *Janitor) Run(ctx context.Context) {
	log.Info("janitor started", "interval", j.interval, "jitter", j.jitter)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("janitor stopped")
			return
		case <-ticker.C:
			if j.jitter > 0 {
				delay := time.Duration(rand.Int63n(int64(j.jitter)))
				select {
				case <-ctx.Done():
					log.Info("janitor stopped")
					return
				case <-time.After(delay):
				}
			}
			if _, err := j.TrimNow(ctx); err != nil {
				log.Error("scheduled trim failed", "error", err)
			}
		}
	}
}

// TrimNow runs a trim pass immediately, coalescing with any pass already
// in flight.
func (j *Janitor) TrimNow(ctx context.Context) ([]frames.TrimResult, error) {
	v, err, shared := j.group.Do("trim", func() (any, error) {
		return j.trimmer.TrimAll(ctx)
	})
	if shared {
		log.Debug("trim request joined in-flight pass")
	}
	if err != nil {
		return nil, err
	}
	return v.([]frames.TrimResult), nil
}
