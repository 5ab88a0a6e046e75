package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/msgstore/msgstore/internal/backend"
	"github.com/msgstore/msgstore/internal/cache"
	"github.com/msgstore/msgstore/internal/config"
	"github.com/msgstore/msgstore/internal/core"
	"github.com/msgstore/msgstore/internal/events"
	"github.com/msgstore/msgstore/internal/filestore"
	"github.com/msgstore/msgstore/internal/ingest"
	"github.com/msgstore/msgstore/internal/nodeid"
	"github.com/msgstore/msgstore/internal/stats"
	"github.com/msgstore/msgstore/internal/telemetry"
	transporthttp "github.com/msgstore/msgstore/internal/transport/http"
	"github.com/msgstore/msgstore/pkg/logger"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the message store server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "msgstore.json", "path to the configuration mirror file")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Open(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := logger.NewLogger(logger.Config{Level: "info", Format: "json", Output: "stdout"})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := backend.New(ctx, backend.Options{
		Database:      cfg.Database,
		SQLitePath:    cfg.LevelDBPath,
		RedisAddr:     os.Getenv("MSGSTORE_REDIS_ADDR"),
		RedisPassword: os.Getenv("MSGSTORE_REDIS_PASSWORD"),
		PostgresDSN:   os.Getenv("MSGSTORE_POSTGRES_DSN"),
	}, log)
	if err != nil {
		return fmt.Errorf("opening backend: %w", err)
	}
	defer be.Close()

	var files *filestore.FileStore
	if cfg.FileStorage {
		files, err = filestore.Open(cfg.FileStoragePath, log)
		if err != nil {
			return fmt.Errorf("opening file store: %w", err)
		}
	}

	node := cfg.NodeId
	if cfg.Database == "redis" {
		client := redis.NewClient(&redis.Options{Addr: os.Getenv("MSGSTORE_REDIS_ADDR")})
		lease, err := nodeid.Acquire(ctx, client, 0, log)
		if err != nil {
			log.Warn("falling back to configured nodeId: could not lease a node id", "error", err)
		} else {
			node = lease.Node()
			defer lease.Release(context.Background())
			go func() {
				ticker := time.NewTicker(10 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if err := lease.Renew(ctx); err != nil {
							log.Warn("could not renew node id lease", "error", err)
						}
					}
				}
			}()
		}
	}

	store := core.NewStore(node)
	for _, g := range cfg.Groups {
		store.UpdateGroupDefaults(g.Priority, core.GroupDefaults{MaxByteSize: g.MaxByteSize})
	}
	if cfg.MaxByteSize != nil {
		store.UpdateStoreDefaults(core.StoreDefaults{MaxByteSize: cfg.MaxByteSize})
	}

	bus := events.NewBus(log)
	bus.Start(ctx)
	defer bus.Stop(context.Background())

	readCache, err := cache.New(cache.Config{}, log)
	if err != nil {
		return fmt.Errorf("building read cache: %w", err)
	}

	writer := ingest.NewWriter(store, be, files, stats.New(), notifier{bus: bus, cache: readCache}, log)
	if err := writer.Replay(ctx); err != nil {
		log.Warn("replay encountered errors", "error", err)
	}

	server := transporthttp.NewServer(writer, cfg, bus, readCache, log)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: server.Router(telemetry.Default()),
	}

	go func() {
		log.Info("msgstore listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// notifier fans a single ingest.Notifier call out to the websocket event
// bus and the read cache, so an evicted or deleted message is never
// served stale from cache after it stops existing in the engine.
type notifier struct {
	bus   *events.Bus
	cache *cache.Cache
}

func (n notifier) NotifyInsert(id core.Id) {
	n.bus.NotifyInsert(id)
}

func (n notifier) NotifyEvict(id core.Id) {
	n.bus.NotifyEvict(id)
	n.cache.Invalidate(context.Background(), id)
}

func (n notifier) NotifyDelete(id core.Id) {
	n.bus.NotifyDelete(id)
	n.cache.Invalidate(context.Background(), id)
}
