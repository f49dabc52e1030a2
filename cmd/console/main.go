// cmd/console/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"shelftrack/internal/accounts"
	"shelftrack/internal/borrowers"
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

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "shelftrack-console", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	st, closeStore, err := openStore(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

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

	src := clock.NewSource(st, nil)
	catalogSvc := catalog.NewService(st)
	readerSvc := readers.NewService(st)
	borrowerSvc := borrowers.NewService(st)
	circulationSvc := circulation.NewService(st, src, policy)
	accountSvc := accounts.NewService(st, src)

	reconciler := reconcile.NewReconciler(st, src, policy)
	monitor := readers.NewMonitor(st, src)
	locator := catalog.NewLocator(st)
	indexer := circulation.NewIndexer(st)

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

	sched := scheduler.New(
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
	)
	go sched.Run(ctx)

	catalogHandler := catalog.NewHandler(catalogSvc)
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Route("/api/v1/books", catalogHandler.BookRoutes)
	router.Route("/api/v1/units", catalogHandler.UnitRoutes)
	router.Route("/api/v1/loans", circulation.NewHandler(circulationSvc).Routes)
	router.Route("/api/v1/borrowers", borrowers.NewHandler(borrowerSvc).Routes)
	router.Route("/api/v1/readers", readers.NewHandler(readerSvc).Routes)
	router.Route("/api/v1/accounts", accounts.NewHandler(accountSvc).Routes)

	port := getEnv("PORT", "8080")
	server := &http.Server{Addr: ":" + port, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("Console listening on port %s", port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}
}

// openStore picks the backing store: Postgres when DATABASE_URL is set,
// in-memory otherwise.
func openStore(ctx context.Context, dbURL string) (store.Store, func(), error) {
	if dbURL == "" {
		return store.NewMemory(), func() {}, nil
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, nil, err
	}
	pg := store.NewPostgres(db, dbURL)
	if err := pg.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return pg, func() { db.Close() }, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
