package frames

import (
	"context"
	"fmt"

	"github.com/xtxerr/warden/internal/schema"
	"github.com/xtxerr/warden/internal/store"
)

// Purger clears a device's transmit history wholesale. Unlike the
// trimmer it applies no count or time policy: every txframes record for
// the device goes, via a single pattern-match delete against the store.
// Invoked on device removal or reset.
type Purger struct {
	store store.Client
}

// NewPurger creates a purger.
func NewPurger(c store.Client) *Purger {
	return &Purger{store: c}
}

// PurgeTxFrames deletes every queued transmit frame for the device and
// returns how many were removed.
func (p *Purger) PurgeTxFrames(ctx context.Context, devAddr string) (int, error) {
	def, err := schema.Definition(schema.TableTxFrames)
	if err != nil {
		return 0, err
	}
	pos := fieldPosition(def.FieldOrder, schema.FieldDevAddr)

	pattern := store.Record{Values: make([]any, pos)}
	pattern.Values[pos-1] = devAddr

	deleted, err := p.store.DeleteMatch(ctx, schema.TableTxFrames, pattern)
	if err != nil {
		return 0, fmt.Errorf("purge txframes for %s: %w", devAddr, err)
	}
	if deleted > 0 {
		log.Info("purged txframes", "devaddr", devAddr, "deleted", deleted)
	}
	return deleted, nil
}
