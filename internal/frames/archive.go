package frames

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

// Archiver writes evicted frames to Parquet files before the trimmer
// deletes them from the store. Each call produces one file per device
// under <dir>/<devaddr>/, named by eviction time and frame id range, so
// archived history can be queried later without ever touching the live
// window.
type Archiver struct {
	dir   string
	codec compress.Codec
}

// archiveRow is an evicted frame in Parquet form.
type archiveRow struct {
	FrameID    uint64  `parquet:"frid"`
	MAC        string  `parquet:"mac"`
	DevAddr    string  `parquet:"devaddr"`
	Freq       float64 `parquet:"freq"`
	DataRate   string  `parquet:"datarate"`
	RSSI       float64 `parquet:"rssi"`
	SNR        float64 `parquet:"lsnr"`
	Port       int32   `parquet:"fport"`
	Data       []byte  `parquet:"data,optional"`
	ReceivedMs int64   `parquet:"received_ms"`
}

// NewArchiver creates an archiver rooted at dir. Compression is one of
// "zstd", "snappy", "lz4", "gzip", "none"; empty selects zstd.
func NewArchiver(dir string, compression string) (*Archiver, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &Archiver{dir: dir, codec: codecFor(compression)}, nil
}

func codecFor(name string) compress.Codec {
	switch name {
	case "snappy":
		return &parquet.Snappy
	case "lz4":
		return &parquet.Lz4Raw
	case "gzip":
		return &parquet.Gzip
	case "none":
		return &parquet.Uncompressed
	default:
		return &parquet.Zstd
	}
}

// Archive writes the frames to a new Parquet file and returns its path.
// Frames must be non-empty and sorted ascending by frame id (the order
// the trimmer evicts in).
func (a *Archiver) Archive(devAddr string, frames []RxFrame) (string, error) {
	if len(frames) == 0 {
		return "", nil
	}

	dir := filepath.Join(a.dir, devAddr)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create device directory: %w", err)
	}

	name := fmt.Sprintf("%s_%d-%d.parquet",
		time.Now().UTC().Format("2006-01-02_15-04-05"),
		frames[0].FrameID,
		frames[len(frames)-1].FrameID,
	)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}

	writer := parquet.NewGenericWriter[archiveRow](f, parquet.Compression(a.codec))

	rows := make([]archiveRow, len(frames))
	for i, fr := range frames {
		rows[i] = archiveRow{
			FrameID:    fr.FrameID,
			MAC:        fr.MAC,
			DevAddr:    fr.DevAddr,
			Freq:       fr.Freq,
			DataRate:   fr.DataRate,
			RSSI:       fr.RSSI,
			SNR:        fr.SNR,
			Port:       int32(fr.Port),
			Data:       fr.Data,
			ReceivedMs: fr.Received.UnixMilli(),
		}
	}

	if _, err := writer.Write(rows); err != nil {
		writer.Close()
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("close writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}

	log.Debug("archived frames", "devaddr", devAddr, "count", len(frames), "path", path)
	return path, nil
}

// ReadArchive reads every frame from an archive file. Used by tests and
// offline tooling.
func ReadArchive(path string) ([]RxFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[archiveRow](f)
	defer reader.Close()

	rows := make([]archiveRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	frames := make([]RxFrame, n)
	for i := 0; i < n; i++ {
		r := rows[i]
		frames[i] = RxFrame{
			FrameID:  r.FrameID,
			MAC:      r.MAC,
			DevAddr:  r.DevAddr,
			Freq:     r.Freq,
			DataRate: r.DataRate,
			RSSI:     r.RSSI,
			SNR:      r.SNR,
			Port:     int(r.Port),
			Data:     r.Data,
			Received: time.UnixMilli(r.ReceivedMs).UTC(),
		}
	}
	return frames, nil
}
