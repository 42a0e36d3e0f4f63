package frames

import (
	"context"
	"testing"
	"time"

	"github.com/xtxerr/warden/internal/schema"
	"github.com/xtxerr/warden/internal/store"
	"github.com/xtxerr/warden/internal/store/memstore"
)

// newFrameStore creates a memstore with the frame-related tables in
// their declared shape.
func newFrameStore(t *testing.T) *memstore.Store {
	t.Helper()
	s := memstore.New()
	ctx := context.Background()
	for _, name := range []string{schema.TableLinks, schema.TableRxFrames, schema.TableTxFrames} {
		def, err := schema.Definition(name)
		if err != nil {
			t.Fatalf("definition %s: %v", name, err)
		}
		if err := s.CreateTable(ctx, name, def.Spec()); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	return s
}

// insertLink registers a device. lastReset may be the zero time for
// devices that never reset.
func insertLink(t *testing.T, s *memstore.Store, devAddr string, lastReset time.Time) {
	t.Helper()
	def, err := schema.Definition(schema.TableLinks)
	if err != nil {
		t.Fatalf("definition: %v", err)
	}
	rec := store.Record{Tag: def.RecordTag, Values: make([]any, len(def.FieldOrder))}
	rec.Values[0] = devAddr
	if !lastReset.IsZero() {
		for i, f := range def.FieldOrder {
			if f == schema.FieldLastReset {
				rec.Values[i] = lastReset
			}
		}
	}
	if err := s.Insert(context.Background(), schema.TableLinks, rec); err != nil {
		t.Fatalf("insert link: %v", err)
	}
}

// insertFrame appends one received frame; the store assigns the frame id.
func insertFrame(t *testing.T, s *memstore.Store, devAddr string, received time.Time) {
	t.Helper()
	rec := store.NewRecord("rxframe",
		nil,            // frid, store-assigned
		"aa:bb:cc:dd",  // mac
		devAddr,        // devaddr
		868.1,          // freq
		"SF7BW125",     // datarate
		-107.0,         // rssi
		5.5,            // lsnr
		2,              // fport
		[]byte{0x01},   // data
		received,       // datetime
	)
	if err := s.Insert(context.Background(), schema.TableRxFrames, rec); err != nil {
		t.Fatalf("insert frame: %v", err)
	}
}

func insertTxFrame(t *testing.T, s *memstore.Store, devAddr string) {
	t.Helper()
	rec := store.NewRecord("txframe", nil, time.Now(), devAddr, 2, []byte{0x02})
	if err := s.Insert(context.Background(), schema.TableTxFrames, rec); err != nil {
		t.Fatalf("insert txframe: %v", err)
	}
}
