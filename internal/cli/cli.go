package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/webgraph/pkg/buildinfo"
	"github.com/matzehuels/webgraph/pkg/cache"
	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/httputil"
	"github.com/matzehuels/webgraph/pkg/session"
	"github.com/matzehuels/webgraph/pkg/store"
	"github.com/matzehuels/webgraph/pkg/store/mongo"
	"github.com/matzehuels/webgraph/pkg/store/redis"
	"github.com/matzehuels/webgraph/pkg/store/sqlite"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "webgraph"

	// Store backends accepted by --store.
	storeMemory = "memory"
	storeFile   = "file"
	storeRedis  = "redis"
	storeMongo  = "mongo"
	storeSQLite = "sqlite"

	// infoBoxTTL is how long fetched info boxes are reused.
	infoBoxTTL = time.Hour
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "webgraph drives interactive graph sessions",
		Long:         `webgraph loads a graph into a session with undoable mutations, layouts and hover highlighting, and exposes it as files, an HTTP API or a terminal explorer.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.sessionCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// versionCommand prints build information.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

// =============================================================================
// Session Factory
// =============================================================================

// sessionOpts are the flags shared by commands that open a session.
type sessionOpts struct {
	configPath string
	noCache    bool
}

func (o *sessionOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.configPath, "config", "c", "", "configuration file (.toml, .yaml)")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable the layout cache")
}

// loadFile reads the configuration file, or returns the defaults.
func (o *sessionOpts) loadFile() (config.File, error) {
	if o.configPath == "" {
		return config.File{Configuration: config.Default(), Server: config.DefaultServer()}, nil
	}
	if err := errors.ValidatePath(o.configPath); err != nil {
		return config.File{}, err
	}
	return config.Load(o.configPath)
}

// openSession loads a graph file and creates an unrendered session for it.
func (c *CLI) openSession(input string, cfg config.Configuration, noCache bool, extra ...session.Option) (*session.Session, func(), error) {
	if err := errors.ValidatePath(input); err != nil {
		return nil, nil, err
	}
	g, err := graph.ReadFile(input)
	if err != nil {
		return nil, nil, fmt.Errorf("load graph %s: %w", input, err)
	}

	lc, err := newCache(noCache)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize cache: %w", err)
	}
	opts := append([]session.Option{
		session.WithLogger(c.Logger),
		session.WithLayoutCache(cache.NewLayoutCache(lc, nil, 0)),
	}, extra...)

	sess, err := session.New(g, cfg, opts...)
	if err != nil {
		lc.Close()
		return nil, nil, err
	}
	cleanup := func() {
		sess.Destroy()
		lc.Close()
	}
	return sess, cleanup, nil
}

// infoBoxOption serves node info boxes from the configured URL templates,
// caching responses next to the layouts.
func infoBoxOption(templates map[string]string, noCache bool) session.Option {
	c, err := newCache(noCache)
	if err != nil {
		c = cache.NewNullCache()
	}
	return session.WithInfoBox(session.InfoBoxConfig{
		Providers: httputil.Providers(templates, httputil.WithCache(c, infoBoxTTL)),
	})
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Store Factory
// =============================================================================

// openStore connects to the backend named in sc.Store.
func openStore(ctx context.Context, sc config.ServerConfig) (store.Store, error) {
	switch sc.Store {
	case "", storeMemory:
		return store.NewMemoryStore(), nil
	case storeFile:
		dir := sc.StoreDir
		if dir == "" {
			d, err := dataDir()
			if err != nil {
				return nil, fmt.Errorf("get data dir: %w", err)
			}
			dir = filepath.Join(d, "sessions")
		}
		return store.NewFileStore(dir)
	case storeRedis:
		return redis.New(ctx, sc.RedisAddr)
	case storeMongo:
		return mongo.New(ctx, sc.MongoURI, sc.MongoDB)
	case storeSQLite:
		path := sc.SQLitePath
		if path == "" {
			d, err := dataDir()
			if err != nil {
				return nil, fmt.Errorf("get data dir: %w", err)
			}
			if err := os.MkdirAll(d, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			path = filepath.Join(d, "sessions.db")
		}
		return sqlite.New(path)
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown store %q (want memory, file, redis, mongo or sqlite)", sc.Store)
}

// storeFlags binds the store selection flags onto sc.
func storeFlags(cmd *cobra.Command, sc *config.ServerConfig) {
	cmd.Flags().StringVar(&sc.Store, "store", sc.Store, "session store: memory, file, redis, mongo, sqlite")
	cmd.Flags().StringVar(&sc.StoreDir, "store-dir", sc.StoreDir, "directory for the file store")
	cmd.Flags().StringVar(&sc.RedisAddr, "redis-addr", sc.RedisAddr, "Redis address for the redis store")
	cmd.Flags().StringVar(&sc.MongoURI, "mongo-uri", sc.MongoURI, "MongoDB URI for the mongo store")
	cmd.Flags().StringVar(&sc.MongoDB, "mongo-db", sc.MongoDB, "MongoDB database for the mongo store")
	cmd.Flags().StringVar(&sc.SQLitePath, "sqlite-path", sc.SQLitePath, "database file for the sqlite store")
	cmd.Flags().DurationVar(&sc.SessionTTL, "session-ttl", sc.SessionTTL, "expiry of saved sessions (0 never expires)")
}

// mergeServerFlags overlays flags the user set explicitly onto the file's
// server settings.
func mergeServerFlags(cmd *cobra.Command, file, flags config.ServerConfig) config.ServerConfig {
	out := file
	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("addr", func() { out.Addr = flags.Addr })
	set("store", func() { out.Store = flags.Store })
	set("store-dir", func() { out.StoreDir = flags.StoreDir })
	set("redis-addr", func() { out.RedisAddr = flags.RedisAddr })
	set("mongo-uri", func() { out.MongoURI = flags.MongoURI })
	set("mongo-db", func() { out.MongoDB = flags.MongoDB })
	set("sqlite-path", func() { out.SQLitePath = flags.SQLitePath })
	set("session-ttl", func() { out.SessionTTL = flags.SessionTTL })
	return out
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/webgraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// dataDir returns the data directory using XDG standard (~/.local/share/webgraph/).
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// =============================================================================
// Output Helpers
// =============================================================================

// outputPath derives an output file name from the input when none is given.
func outputPath(input, output, suffix string) string {
	if output != "" {
		return output
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}

// formatTTL renders an expiry relative to now.
func formatTTL(expires time.Time) string {
	if expires.IsZero() {
		return "never"
	}
	left := time.Until(expires).Round(time.Second)
	if left <= 0 {
		return "expired"
	}
	return "in " + left.String()
}
