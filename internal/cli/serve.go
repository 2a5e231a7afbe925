package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/webgraph/internal/metrics"
	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/observability"
	"github.com/matzehuels/webgraph/pkg/server"
	"github.com/matzehuels/webgraph/pkg/session"
	"github.com/matzehuels/webgraph/pkg/store"
)

const (
	shutdownTimeout = 5 * time.Second
	cleanupInterval = time.Minute
)

// serveCommand creates the serve command that exposes a session over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		opts   sessionOpts
		flags  = config.DefaultServer()
		resume string
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "serve [graph.json]",
		Short: "Serve a graph session over HTTP",
		Long: `Serve a graph session over HTTP.

The graph is loaded into a session and exposed as a JSON API with a
Server-Sent Events stream on /events and Prometheus metrics on /metrics.
POST /save writes the session to the configured store; --resume loads a saved
session instead of a graph file.

With --watch, edits to the --config file are applied to the running session.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && resume == "" {
				return errors.New(errors.ErrCodeInvalidInput, "need a graph file or --resume")
			}
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return c.runServe(cmd, input, resume, opts, flags, watch)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&flags.Addr, "addr", flags.Addr, "listen address")
	cmd.Flags().StringVar(&resume, "resume", "", "resume a saved session by ID")
	cmd.Flags().BoolVar(&watch, "watch", false, "apply config file changes to the running session")
	storeFlags(cmd, &flags)

	return cmd
}

// runServe wires the session, store, metrics and HTTP server and runs them
// until the context is cancelled.
func (c *CLI) runServe(cmd *cobra.Command, input, resume string, opts sessionOpts, flags config.ServerConfig, watch bool) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	var (
		file   config.File
		loader *config.Loader
		err    error
	)
	if opts.configPath != "" {
		if loader, err = config.NewLoader(opts.configPath); err != nil {
			return err
		}
		file = loader.Current()
	} else if file, err = opts.loadFile(); err != nil {
		return err
	}
	sc := mergeServerFlags(cmd, file.Server, flags)

	m := metrics.New(prometheus.DefaultRegisterer)
	observability.SetSessionHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)

	st, err := openStore(ctx, sc)
	if err != nil {
		return fmt.Errorf("open %s store: %w", sc.Store, err)
	}
	defer st.Close()

	sess, cleanup, err := c.loadSession(ctx, st, input, resume, file, opts.noCache)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := sess.Render(ctx); err != nil {
		return fmt.Errorf("render session: %w", err)
	}

	if watch && loader != nil {
		loader.OnChange(func(f config.File) {
			applyConfig(sess, f.Configuration, logger)
		})
		loader.OnError(func(err error) {
			logger.Warn("config reload failed", "path", loader.Path(), "err", err)
		})
		stop, err := loader.Watch()
		if err != nil {
			return err
		}
		defer stop()
	}

	api := server.New(sess, server.WithStore(st, sc.SessionTTL), server.WithLogger(logger))
	defer api.Close()

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", api.Handler())

	httpServer := &http.Server{
		Addr:              sc.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	printSuccess("Serving session %s", StyleHighlight.Render(sess.ID()))
	printDetail("%d nodes · %d edges · %s store", sess.Order(), sess.Size(), sc.Store)
	fmt.Println("  " + StyleLink.Render("http://"+displayAddr(sc.Addr)))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", sc.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			return httpServer.Close()
		}
		return nil
	})
	g.Go(func() error {
		cleanupLoop(gctx, st, logger)
		return nil
	})

	err = g.Wait()
	logger.Info("server stopped")
	return err
}

// loadSession opens the graph file, or resumes a stored session.
func (c *CLI) loadSession(ctx context.Context, st store.Store, input, resume string, file config.File, noCache bool) (*session.Session, func(), error) {
	infoBox := infoBoxOption(file.InfoBox, noCache)
	if resume == "" {
		return c.openSession(input, file.Configuration, noCache, infoBox)
	}
	if err := errors.ValidateSessionID(resume); err != nil {
		return nil, nil, err
	}
	doc, err := st.Get(ctx, resume)
	if err != nil {
		return nil, nil, fmt.Errorf("resume session %s: %w", resume, err)
	}
	sess, err := session.FromDocument(doc, session.WithLogger(c.Logger), infoBox)
	if err != nil {
		return nil, nil, err
	}
	return sess, sess.Destroy, nil
}

// applyConfig carries the display settings of a reloaded configuration into
// a running session. The changes bypass history.
func applyConfig(sess *session.Session, next config.Configuration, logger *log.Logger) {
	cur := sess.Configuration()
	skip := session.SkipHistory()

	if next.RenderJustImportantEdges != cur.RenderJustImportantEdges {
		sess.ToggleJustImportantEdgeRendering(&next.RenderJustImportantEdges, skip)
	}
	if next.HideEdges != sess.Configuration().HideEdges {
		sess.ToggleEdgeRendering(&next.HideEdges, skip)
	}
	if next.DefaultNodeType != cur.DefaultNodeType {
		sess.SetAndApplyDefaultNodeType(next.DefaultNodeType, skip)
	}
	if next.AppMode != cur.AppMode {
		sess.SetAppMode(next.AppMode, skip)
	}
	if next.RenderNodeBackdrop != cur.RenderNodeBackdrop {
		if err := sess.ToggleNodeBackdropRendering(next.ClusterColors, &next.RenderNodeBackdrop); err != nil {
			logger.Warn("apply backdrop settings", "err", err)
		}
	}
	logger.Info("configuration reloaded")
}

// cleanupLoop purges expired sessions until ctx is done.
func cleanupLoop(ctx context.Context, st store.Store, logger *log.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.Cleanup(ctx)
			if err != nil {
				logger.Warn("store cleanup failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

// displayAddr turns a listen address into something a browser can open.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
