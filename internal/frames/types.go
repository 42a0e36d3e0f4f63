// Package frames maintains the received-frame log: the per-device
// retention window, the read view on top of it, and bulk purging of
// transmit history.
//
// All operations work against the reconciled schema; they assume the
// schema package has already converged the live tables to the catalog.
package frames

import (
	"sort"
	"time"

	"github.com/xtxerr/warden/internal/logging"
	"github.com/xtxerr/warden/internal/schema"
	"github.com/xtxerr/warden/internal/store"
)

var log = logging.Component("frames")

// RxFrame is one received frame as decoded from the rxframes table.
type RxFrame struct {
	FrameID  uint64
	MAC      string
	DevAddr  string
	Freq     float64
	DataRate string
	RSSI     float64
	SNR      float64
	Port     int
	Data     []byte
	Received time.Time
}

// decodeRxFrame decodes a record by field name under the given order.
func decodeRxFrame(order []string, rec store.Record) RxFrame {
	return RxFrame{
		FrameID:  asUint64(rec.Field(order, schema.FieldFrameID)),
		MAC:      asString(rec.Field(order, schema.FieldMAC)),
		DevAddr:  asString(rec.Field(order, schema.FieldDevAddr)),
		Freq:     asFloat64(rec.Field(order, "freq")),
		DataRate: asString(rec.Field(order, "datarate")),
		RSSI:     asFloat64(rec.Field(order, "rssi")),
		SNR:      asFloat64(rec.Field(order, "lsnr")),
		Port:     asInt(rec.Field(order, "fport")),
		Data:     asBytes(rec.Field(order, "data")),
		Received: asTime(rec.Field(order, schema.FieldDateTime)),
	}
}

// window returns every stored frame for the device, sorted ascending by
// frame id. Frame id is store-assigned and monotonic, so this order is
// oldest first.
func window(c store.Client, devAddr string, read readFn) ([]store.Record, []string, error) {
	def, err := schema.Definition(schema.TableRxFrames)
	if err != nil {
		return nil, nil, err
	}
	pos := fieldPosition(def.FieldOrder, schema.FieldDevAddr)
	recs, err := read(schema.TableRxFrames, pos, devAddr)
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(recs, func(i, j int) bool {
		return asUint64(recs[i].Key()) < asUint64(recs[j].Key())
	})
	return recs, def.FieldOrder, nil
}

type readFn func(table string, pos int, value any) ([]store.Record, error)

// fieldPosition returns the 1-based index position of a field.
func fieldPosition(order []string, name string) int {
	for i, f := range order {
		if f == name {
			return 1 + i
		}
	}
	return 0
}
