// Package app composes the daemon from its parts: config, cache, gateway,
// connectivity, mutation queue, and the sync engine.
package app

import (
	"context"

	"github.com/mvilela/papo/internal/bus"
	"github.com/mvilela/papo/internal/config"
	"github.com/mvilela/papo/internal/connectivity"
	"github.com/mvilela/papo/internal/gateway"
	"github.com/mvilela/papo/internal/lock"
	"github.com/mvilela/papo/internal/logging"
	"github.com/mvilela/papo/internal/queue"
	"github.com/mvilela/papo/internal/session"
	"github.com/mvilela/papo/internal/state"
	"github.com/mvilela/papo/internal/store"
	intsync "github.com/mvilela/papo/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile string
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("app",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideSession,
			provideGateway,
			provideMonitor,
			provideView,
			provideOptimistic,
			provideQueue,
			provideEngine,
			providePoller,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() (*config.Config, error) {
	return config.Load(session.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.Profile), p.Profile)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(session.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore opens and migrates the local cache. A cache that cannot be
// opened degrades the daemon to network-only mode instead of aborting it.
func provideStore(p Params, logger *zap.Logger) *store.DB {
	dbPath := session.CacheDBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		logger.Warn("cache unavailable, running network-only",
			zap.String("path", dbPath), zap.Error(err))
		return nil
	}
	result, err := db.Migrate()
	if err != nil {
		logger.Warn("cache migration failed, running network-only",
			zap.String("path", dbPath), zap.Error(err))
		_ = db.Close()
		return nil
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("cache initialized", zap.String("path", dbPath))
	return db
}

func provideSession(cfg *config.Config) session.Session {
	return session.FromConfig(cfg)
}

func provideGateway(cfg *config.Config, logger *zap.Logger) *gateway.Client {
	return gateway.New(cfg.ServerURL, cfg.Token, logger)
}

func provideMonitor(cfg *config.Config, gw *gateway.Client, b *bus.Bus, logger *zap.Logger) *connectivity.Monitor {
	return connectivity.New(gw, cfg.ProbeInterval(), b, logger)
}

func provideView(b *bus.Bus) *state.View {
	return state.NewView(b)
}

func provideOptimistic(view *state.View, db *store.DB, logger *zap.Logger) *state.Optimistic {
	return state.NewOptimistic(view, db, logger)
}

// provideQueue returns nil in network-only mode: without a durable cache
// there is nowhere to record deferred writes.
func provideQueue(db *store.DB, b *bus.Bus, logger *zap.Logger) *queue.Queue {
	if db == nil {
		return nil
	}
	return queue.New(db, nil, b, logger)
}

func provideEngine(db *store.DB, gw *gateway.Client, monitor *connectivity.Monitor,
	view *state.View, opt *state.Optimistic, q *queue.Queue,
	b *bus.Bus, logger *zap.Logger, sess session.Session) *intsync.Engine {
	engine := intsync.NewEngine(db, gw, monitor, view, opt, q, b, logger, sess)
	if q != nil {
		q.Bind(engine)
	}
	return engine
}

func providePoller(cfg *config.Config, engine *intsync.Engine, logger *zap.Logger) *intsync.Poller {
	return intsync.NewPoller(engine, cfg.PollInterval(), logger)
}

func registerLifecycle(lc fx.Lifecycle, monitor *connectivity.Monitor, q *queue.Queue,
	engine *intsync.Engine, poller *intsync.Poller, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			monitor.Start(context.Background())
			if q != nil {
				q.Start(context.Background())
			}

			// Writes queued before the last shutdown drain first, so the
			// initial refreshes cannot reintroduce records whose deletion
			// is still pending. Then both lists populate in parallel.
			go func() {
				ctx := context.Background()
				if q != nil && !monitor.Offline() {
					if err := q.Drain(ctx); err != nil {
						logger.Error("startup queue drain failed", zap.Error(err))
					}
				}

				done := make(chan struct{}, 2)
				go func() {
					if err := engine.RefreshContacts(ctx); err != nil {
						logger.Warn("initial contact sync failed", zap.Error(err))
					}
					done <- struct{}{}
				}()
				go func() {
					if err := engine.RefreshConversations(ctx); err != nil {
						logger.Warn("initial conversation sync failed", zap.Error(err))
					}
					done <- struct{}{}
				}()
				<-done
				<-done
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			poller.Stop()
			if q != nil {
				q.Stop()
			}
			monitor.Stop()
			if db != nil {
				if err := db.Close(); err != nil {
					logger.Warn("error closing cache", zap.Error(err))
				}
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
