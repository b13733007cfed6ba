package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/viant/rescache/config"
	"github.com/viant/rescache/engine"
	"github.com/viant/rescache/internal/httpx"
	"github.com/viant/rescache/ipc"
	"github.com/viant/rescache/kv"
	"github.com/viant/rescache/liveapi"
	"github.com/viant/rescache/router"
	"github.com/viant/rescache/schema"
	"github.com/viant/rescache/session"
	"github.com/viant/rescache/store"
)

// app holds the components every subcommand shares.
type app struct {
	cfg      config.Config
	registry *schema.Registry
	db       *sql.DB
	store    *store.SQLiteStore
	session  *session.Store
}

func NewRootCmd() *cobra.Command {
	a := &app{registry: schema.Default()}
	var (
		dbPath   string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:           "rescache",
		Short:         "Local resource cache and offline search",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.Store.Path = dbPath
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			a.cfg = cfg
			setupLogging(cfg.Log.Level)
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file (env: RESCACHE_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newSchemaCmd(a),
		newSyncCmd(a),
		newSearchCmd(a),
		newDaemonCmd(a),
		newInvalidateCmd(a),
		newLoginCmd(a),
	)
	return rootCmd
}

func setupLogging(levelName string) {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil || levelName == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func (a *app) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := engine.Open(a.cfg.Store.Path)
	if err != nil {
		return err
	}
	st, err := store.NewSQLiteStore(ctx, db, a.registry, store.WithBatchRows(a.cfg.Store.BatchRows))
	if err != nil {
		_ = db.Close()
		return err
	}
	storage, err := kv.New(ctx, kv.Backend(a.cfg.Store.KVBackend), db)
	if err != nil {
		_ = db.Close()
		return err
	}
	a.db, a.store, a.session = db, st, session.New(storage)
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// identity prefers the configured token over the stored session.
func (a *app) identity() session.Identity {
	if a.cfg.API.Token != "" {
		return session.StaticToken(a.cfg.API.Token)
	}
	return a.session
}

func (a *app) liveClient() *liveapi.Client {
	client := httpx.NewRetryClient(a.cfg.API.RetryMax, 0)
	client.HTTPClient.Timeout = a.cfg.API.Timeout
	return liveapi.New(a.cfg.API.URL, a.identity(), liveapi.WithRetryClient(client))
}

func (a *app) router(localFirst bool) (*router.Router, error) {
	locale, err := language.Parse(a.cfg.Router.Locale)
	if err != nil {
		return nil, fmt.Errorf("locale %q: %w", a.cfg.Router.Locale, err)
	}
	opts := []router.Option{
		router.WithLive(a.liveClient()),
		router.WithStore(a.store),
		router.WithIdentity(a.identity()),
		router.WithLocale(locale),
		router.WithFillTimeout(a.cfg.Router.FillTimeout),
	}
	if localFirst {
		opts = append(opts,
			router.WithInvoker(ipc.NewHTTPInvoker(a.cfg.Daemon.URL)),
			router.WithChannel(a.cfg.Daemon.Channel),
			router.WithAllowList(a.cfg.Router.LocalFirstTypes...),
		)
	}
	return router.New(a.registry, opts...)
}

func splitTypes(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, t := range strings.Split(arg, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
