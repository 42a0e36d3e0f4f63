package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/xtxerr/warden/config"
	"github.com/xtxerr/warden/internal/logging"
	"github.com/xtxerr/warden/internal/store"
)

var log = logging.Component("schema")

// SeedConfig carries the externally supplied administrative credentials
// used to seed the users table the first time it is created.
type SeedConfig struct {
	AdminUser string
	AdminPass string
}

// Config holds reconciler configuration.
type Config struct {
	// Catalog is the set of declared tables. Defaults to Catalog().
	Catalog []TableDefinition

	// Seed holds the first-creation credentials for the users table.
	Seed SeedConfig

	// ReadyTimeout bounds each readiness wait. Defaults to
	// config.DefaultReadyTimeout.
	ReadyTimeout time.Duration
}

// Reconciler ensures the declared tables exist with the declared shape.
//
// EnsureAll runs once at bootstrap, before anything else serves requests.
// It is idempotent: a second run against an already-converged store
// performs no table, index, or attribute operations.
type Reconciler struct {
	store        store.Client
	catalog      []TableDefinition
	seed         SeedConfig
	readyTimeout time.Duration
	index        *IndexReconciler
}

// New creates a schema reconciler.
func New(c store.Client, cfg Config) (*Reconciler, error) {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = Catalog()
	}
	if err := ValidateCatalog(catalog); err != nil {
		return nil, err
	}
	readyTimeout := cfg.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = config.DefaultReadyTimeout
	}
	return &Reconciler{
		store:        c,
		catalog:      catalog,
		seed:         cfg.Seed,
		readyTimeout: readyTimeout,
		index:        NewIndexReconciler(c),
	}, nil
}

// EnsureAll reconciles every table in the catalog, sequentially and in
// catalog order. The first failure aborts: the system cannot run on a
// partially shaped schema.
func (r *Reconciler) EnsureAll(ctx context.Context) error {
	start := time.Now()
	for _, def := range r.catalog {
		if err := r.EnsureTable(ctx, def); err != nil {
			return fmt.Errorf("ensure table %s: %w", def.Name, err)
		}
	}
	log.Info("schema bootstrap complete",
		"tables", len(r.catalog),
		"duration", time.Since(start),
	)
	return nil
}

// EnsureTable ensures one table exists and matches its declaration.
//
// A missing table is created with the declared shape, waited on until
// ready, then seeded (users only). An existing table is waited on, then
// handed to the index reconciler, which drives the attribute migration.
func (r *Reconciler) EnsureTable(ctx context.Context, def TableDefinition) error {
	exists, err := r.store.Exists(ctx, def.Name)
	if err != nil {
		return err
	}

	if !exists {
		log.Info("creating table",
			"table", def.Name,
			"tier", def.Tier.String(),
			"indexes", def.IndexPositions(),
		)
		if err := r.store.CreateTable(ctx, def.Name, def.Spec()); err != nil {
			return err
		}
		if err := r.waitReady(ctx, def.Name); err != nil {
			return err
		}
		return r.seedTable(ctx, def)
	}

	if err := r.waitReady(ctx, def.Name); err != nil {
		return err
	}
	return r.index.Reconcile(ctx, def)
}

func (r *Reconciler) waitReady(ctx context.Context, table string) error {
	waitCtx, cancel := context.WithTimeout(ctx, r.readyTimeout)
	defer cancel()
	if err := r.store.WaitReady(waitCtx, table); err != nil {
		return fmt.Errorf("wait ready %s: %w", table, err)
	}
	return nil
}

// seedTable applies the one-time post-creation seeding step. Only the
// users table has one: a single administrative record built from the
// supplied credentials. Every other table starts empty.
func (r *Reconciler) seedTable(ctx context.Context, def TableDefinition) error {
	if def.Name != TableUsers {
		return nil
	}
	if r.seed.AdminUser == "" {
		log.Warn("users table created without seed credentials; no admin record")
		return nil
	}
	rec := store.Record{Tag: def.RecordTag, Values: make([]any, len(def.FieldOrder))}
	rec.Values[0] = r.seed.AdminUser
	rec.Values[1] = r.seed.AdminPass
	if err := r.store.Insert(ctx, def.Name, rec); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	log.Info("seeded admin user", "table", def.Name, "user", r.seed.AdminUser)
	return nil
}
