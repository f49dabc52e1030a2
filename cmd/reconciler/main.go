// cmd/reconciler/main.go
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"shelftrack/internal/catalog"
	"shelftrack/internal/circulation"
	"shelftrack/internal/clock"
	"shelftrack/internal/leader"
	"shelftrack/internal/readers"
	"shelftrack/internal/reconcile"
	"shelftrack/internal/scheduler"
	"shelftrack/internal/store"
	"shelftrack/internal/telemetry"
)

// Headless runner: the background passes without the HTTP surface, for
// deployments where the console UI is served elsewhere.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "shelftrack-reconciler", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required: a headless reconciler needs a durable store to share")
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	pg := store.NewPostgres(db, dbURL)
	if err := pg.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate store: %v", err)
	}

	policy := reconcile.DefaultPolicy()
	if tz := os.Getenv("LIBRARY_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			log.Fatalf("Invalid LIBRARY_TIMEZONE %q: %v", tz, err)
		}
		policy.TimeZone = loc
	}

	gate, err := leader.Open(os.Getenv("LEADER_DB_PATH"), leader.DefaultWindow)
	if err != nil {
		log.Fatalf("Failed to open leader gate: %v", err)
	}
	defer gate.Close()

	src := clock.NewSource(pg, nil)
	reconciler := reconcile.NewReconciler(pg, src, policy)
	monitor := readers.NewMonitor(pg, src)
	locator := catalog.NewLocator(pg)
	indexer := circulation.NewIndexer(pg)

	gated := func(task string, run func(context.Context) (int, error)) func(context.Context) error {
		return func(ctx context.Context) error {
			ok, err := gate.TryAcquire(task, time.Now())
			if err != nil || !ok {
				return err
			}
			_, err = run(ctx)
			return err
		}
	}

	log.Println("Reconciler running")
	scheduler.New(
		scheduler.Task{Name: "clock", Every: 10 * time.Second, Run: func(ctx context.Context) error {
			ok, err := gate.TryAcquire("clock", time.Now())
			if err != nil || !ok {
				return err
			}
			return src.Tick(ctx)
		}},
		scheduler.Task{Name: "reconcile", Every: 10 * time.Second, Run: gated("reconcile", reconciler.Run)},
		scheduler.Task{Name: "reader-monitor", Every: 10 * time.Second, Run: gated("reader-monitor", monitor.Run)},
		scheduler.Task{Name: "locator", Every: 10 * time.Second, Run: gated("locator", locator.Run)},
		scheduler.Task{Name: "release-returned", Every: 10 * time.Second, Run: gated("release-returned", locator.ReleaseReturned)},
		scheduler.Task{Name: "latest-history", Every: 10 * time.Second, Run: gated("latest-history", indexer.Run)},
	).Run(ctx)
}
