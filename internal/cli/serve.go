package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kdos/desserts-relay/internal/cache"
	"github.com/kdos/desserts-relay/internal/cleanup"
	"github.com/kdos/desserts-relay/internal/config"
	"github.com/kdos/desserts-relay/internal/docstore"
	"github.com/kdos/desserts-relay/internal/feed"
	"github.com/kdos/desserts-relay/internal/order"
)

// shutdownTimeout bounds graceful HTTP shutdown on exit.
const shutdownTimeout = 5 * time.Second

// NewServeCommand creates the serve command: the long-running terminal
// process. It hosts the realtime feed, the cleanup scheduler and an HTTP
// server that proxies the UI shell and static assets through the offline
// cache.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the terminal process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}
			defer log.Sync()
			return runServe(cfg, log)
		},
	}
}

func runServe(cfg config.Config, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.EnsureIdentity(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	// Realtime feed. Only the receiving terminal chimes; the chime is
	// driven by snapshot arrival, so orders from the other terminal are
	// heard even though this process never sent them.
	feedOpts := []feed.Option{feed.WithLogger(log)}
	if cfg.Role == config.RoleReceiver {
		feedOpts = append(feedOpts, feed.WithChime(func(o order.Order) {
			fmt.Print("\a")
			log.Infow("new order received", "number", o.Number, "service", o.ServiceType)
		}))
	}
	board := feed.New(feedOpts...)
	sub, err := store.Subscribe(ctx, cfg.Collection, "placedAt", docstore.Desc)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	go board.Run(ctx, sub)

	// Daily cleanup.
	sched := cleanup.New(store, cfg.Collection,
		cleanup.WithTriggerTime(cfg.ClearHour, cfg.ClearMinute),
		cleanup.WithInterval(cfg.CleanupInterval),
		cleanup.WithLogger(log),
	)
	go sched.Run(ctx)

	// Offline cache in front of the UI origin. A failed install is not
	// fatal: the terminal may be starting offline and will fill the
	// cache once the origin is reachable.
	mgr, err := cache.NewManager(cfg.CacheVersion, cfg.Upstream, nil,
		cache.WithShellPaths(cfg.ShellPaths),
		cache.WithAssetPrefix(cfg.AssetPrefix),
		cache.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	if err := mgr.Install(ctx); err != nil {
		log.Warnw("shell pre-cache failed, continuing", "error", err)
	}
	mgr.Activate()

	engine := order.NewEngine(store, cfg.Collection, order.WithLogger(log))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: newRouter(cfg, board, engine, mgr, log),
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infow("terminal listening", "addr", cfg.HTTPAddr, "role", cfg.Role)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: shutdown: %w", err)
	}
	log.Infow("terminal stopped")
	return nil
}

// newRouter builds the terminal HTTP surface: a small JSON API over the
// feed and the engine, plus a catch-all proxy that serves the UI shell
// and assets through the cache manager.
func newRouter(cfg config.Config, board *feed.Feed, engine *order.Engine, mgr *cache.Manager, log *zap.SugaredLogger) http.Handler {
	client := &http.Client{Transport: mgr}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/orders", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"active":    board.Active(),
			"completed": board.Completed(),
		})
	})

	r.Post("/api/orders/{id}/advance", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Status order.Status `json:"status"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		err := engine.Advance(req.Context(), chi.URLParam(req, "id"), body.Status)
		switch {
		case order.IsValidationError(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case docstore.IsNotFound(err):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case err != nil:
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		default:
			writeJSON(w, http.StatusNoContent, nil)
		}
	})

	// Everything else is the UI: proxy through the cache manager so the
	// shell and assets keep working offline.
	r.NotFound(proxyHandler(client, cfg.Upstream, log))
	return r
}

func proxyHandler(client *http.Client, upstream string, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		target := upstream + req.URL.RequestURI()
		out, err := http.NewRequestWithContext(req.Context(), req.Method, target, req.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		out.Header = req.Header.Clone()

		res, err := client.Do(out)
		if err != nil {
			log.Warnw("upstream fetch failed", "path", req.URL.Path, "error", err)
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		defer res.Body.Close()

		for k, vs := range res.Header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(res.StatusCode)
		io.Copy(w, res.Body)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if v == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
