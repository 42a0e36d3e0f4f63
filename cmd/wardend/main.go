// wardend is the record-store schema and retention daemon.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/xtxerr/warden/internal/frames"
	"github.com/xtxerr/warden/internal/loader"
	"github.com/xtxerr/warden/internal/logging"
	"github.com/xtxerr/warden/internal/maintenance"
	"github.com/xtxerr/warden/internal/schema"
	"github.com/xtxerr/warden/internal/store"
	"github.com/xtxerr/warden/internal/store/duckstore"
	"github.com/xtxerr/warden/internal/store/memstore"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// CLI flags
	cfgPath := flag.String("config", "wardend.yaml", "config file path")
	dbPath := flag.String("db", "", "store database path (overrides config)")
	backend := flag.String("backend", "", "store backend: duckdb or memory (overrides config)")
	archiveDir := flag.String("archive", "", "evicted-frame archive directory (overrides config)")
	trimOnce := flag.Bool("trim-once", false, "run a single trim pass and exit")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	log.Printf("wardend %s starting...", Version)

	// Load config
	cfg, err := loader.Load(*cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("No config file found, using defaults")
			cfg = loader.DefaultConfig()
		} else {
			log.Fatalf("Load config: %v", err)
		}
	}

	// CLI overrides
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}
	if *backend != "" {
		cfg.Store.Backend = *backend
	}
	if *archiveDir != "" {
		cfg.Archive.Dir = *archiveDir
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)

	// Admin seed from env when the config carries none
	seed := schema.SeedConfig{
		AdminUser: cfg.Seed.AdminUser,
		AdminPass: cfg.Seed.AdminPass,
	}
	if seed.AdminUser == "" {
		seed.AdminUser = os.Getenv("WARDEN_ADMIN_USER")
		seed.AdminPass = os.Getenv("WARDEN_ADMIN_PASS")
	}

	// =========================================================================
	// Open Record Store
	// =========================================================================

	var client store.Client
	switch cfg.Store.Backend {
	case "memory":
		log.Printf("Opening in-memory store")
		client = memstore.New()
	default:
		log.Printf("Opening DuckDB store: %s", pathOrMemory(cfg.Store.Path))
		ds, err := duckstore.New(duckstore.Config{
			Path:         cfg.Store.Path,
			MaxOpenConns: cfg.Store.MaxOpenConns,
			MaxIdleConns: cfg.Store.MaxIdleConns,
		})
		if err != nil {
			log.Fatalf("Open store: %v", err)
		}
		client = ds
	}

	// =========================================================================
	// Reconcile Schema
	// =========================================================================

	rec, err := schema.New(client, schema.Config{
		Seed:         seed,
		ReadyTimeout: cfg.Store.ReadyTimeout.Duration(),
	})
	if err != nil {
		log.Fatalf("Schema reconciler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rec.EnsureAll(ctx); err != nil {
		log.Fatalf("Ensure tables: %v", err)
	}
	log.Printf("Schema converged: %d tables", len(schema.Catalog()))

	// =========================================================================
	// Retention Trimmer and Janitor
	// =========================================================================

	var archiver *frames.Archiver
	if cfg.Archive.Dir != "" {
		archiver, err = frames.NewArchiver(cfg.Archive.Dir, cfg.Archive.Compression)
		if err != nil {
			log.Fatalf("Archive: %v", err)
		}
		log.Printf("Archiving evicted frames to %s (%s)", cfg.Archive.Dir, cfg.Archive.Compression)
	}

	stats := frames.NewMaintenanceStats()
	trimmer := frames.NewTrimmer(client, frames.TrimmerOptions{
		Limit:   cfg.Retention.RetainedFrames,
		Archive: archiver,
		Stats:   stats,
	})

	if *trimOnce {
		results, err := trimmer.TrimAll(ctx)
		if err != nil {
			log.Fatalf("Trim: %v", err)
		}
		evicted := 0
		for _, r := range results {
			evicted += r.Evicted
		}
		log.Printf("Trimmed %d devices, evicted %d frames", len(results), evicted)
		log.Print(stats.Format())
		client.Close()
		return
	}

	janitor := maintenance.New(trimmer, maintenance.Options{
		Interval: cfg.Retention.TrimInterval.Duration(),
		Jitter:   cfg.Retention.TrimJitter.Duration(),
	})

	// =========================================================================
	// Signal Handling and Graceful Shutdown
	// =========================================================================

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("Shutting down...")
		cancel()
	}()

	// =========================================================================
	// Run
	// =========================================================================

	log.Printf("Retention: %d frames per device, trim every %s",
		cfg.Retention.RetainedFrames, cfg.Retention.TrimInterval.Duration())

	janitor.Run(ctx)

	log.Print(stats.Format())
	if err := client.Close(); err != nil {
		log.Printf("Warning: close store: %v", err)
	}
}

func pathOrMemory(path string) string {
	if path == "" {
		return "(in-memory)"
	}
	return path
}
