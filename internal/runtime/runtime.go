// Package runtime wires the session store, permission registry, game
// engine and authorization gate into a single constructed context and
// drives the event-processing lifecycle. There are no ambient
// singletons; everything is owned here and injected.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wardenbot/warden/internal/config"
	"github.com/wardenbot/warden/internal/game"
	"github.com/wardenbot/warden/internal/gate"
	"github.com/wardenbot/warden/internal/perm"
	"github.com/wardenbot/warden/internal/store"
	"github.com/wardenbot/warden/internal/telemetry"
)

// Runtime owns every component of the bot core.
type Runtime struct {
	cfg     config.Config
	log     *slog.Logger
	metrics *telemetry.Metrics

	store      *store.Store
	perms      *perm.Registry
	engine     *game.Engine
	gate       *gate.Gate
	sweeper    *game.Sweeper
	dispatcher *Dispatcher

	gateway Gateway
	persist store.Persistence

	cron *cron.Cron
}

// New constructs the runtime context. stats may be nil; gateway and
// persist must not be.
func New(cfg config.Config, log *slog.Logger, metrics *telemetry.Metrics, gateway Gateway, stats game.Statistics, persist store.Persistence) *Runtime {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	if gateway == nil {
		gateway = NopGateway{}
	}

	dispatcher := NewDispatcher()

	sessions := store.New()
	sessions.SetDispatch(dispatcher.Do)

	engine := game.NewEngine(&statsRecorder{log: log, next: stats}, log)
	perms := perm.NewRegistry(cfg.AuditLogSize)

	r := &Runtime{
		cfg:        cfg,
		log:        log,
		metrics:    metrics,
		store:      sessions,
		perms:      perms,
		engine:     engine,
		gate:       gate.New(cfg.OwnerID, cfg.CommandPrefix, engine, perms),
		sweeper:    game.NewSweeper(engine, cfg.InactivityThreshold, dispatcher.Do),
		dispatcher: dispatcher,
		gateway:    gateway,
		persist:    persist,
		cron:       cron.New(),
	}
	return r
}

// Store exposes the session store to transport-side helpers.
func (r *Runtime) Store() *store.Store { return r.store }

// Permissions exposes the permission registry.
func (r *Runtime) Permissions() *perm.Registry { return r.perms }

// Engine exposes the game engine.
func (r *Runtime) Engine() *game.Engine { return r.engine }

// Run loads durable snapshots, schedules the sweeper and mirror jobs,
// serves metrics and blocks until ctx is cancelled, then flushes
// state and shuts down.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.restore(ctx); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}

	if _, err := r.cron.AddFunc(every(r.cfg.SweepInterval), r.sweep); err != nil {
		return fmt.Errorf("schedule sweeper: %w", err)
	}
	if _, err := r.cron.AddFunc(every(r.cfg.MirrorInterval), r.mirror); err != nil {
		return fmt.Errorf("schedule mirror: %w", err)
	}
	r.cron.Start()

	g, ctx := errgroup.WithContext(ctx)

	var metricsSrv *http.Server
	if r.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", r.metrics.Handler())
		metricsSrv = &http.Server{Addr: r.cfg.MetricsAddr, Handler: mux}
		g.Go(func() error {
			r.log.Info("metrics listening", "addr", r.cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		r.shutdown(metricsSrv)
		return nil
	})

	return g.Wait()
}

func (r *Runtime) restore(ctx context.Context) error {
	if err := r.store.LoadFrom(ctx, r.persist); err != nil {
		return err
	}
	if err := r.perms.LoadFrom(ctx, r.persist); err != nil {
		return err
	}
	return r.engine.LoadFrom(ctx, r.persist)
}

func (r *Runtime) sweep() {
	if n := r.sweeper.Sweep(); n > 0 {
		r.metrics.RecordSweep(n)
		r.log.Info("swept inactive games", "count", n)
	}
}

// mirror flushes in-memory state to durable storage. Failures are
// logged and retried on the next tick; memory is never rolled back.
func (r *Runtime) mirror() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for name, fn := range map[string]func(context.Context, store.Persistence) error{
		"sessions":    r.store.Mirror,
		"permissions": r.perms.Mirror,
		"games":       r.engine.Mirror,
	} {
		if err := fn(ctx, r.persist); err != nil {
			r.metrics.RecordMirrorFailure()
			r.log.Error("mirror failed", "namespace", name, "error", err)
		}
	}
}

func (r *Runtime) shutdown(metricsSrv *http.Server) {
	r.cron.Stop()
	r.dispatcher.Close()
	r.mirror()
	if err := r.persist.Close(); err != nil {
		r.log.Error("close persistence", "error", err)
	}
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	r.log.Info("runtime stopped")
}

func every(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}
