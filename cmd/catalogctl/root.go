package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gamecatalog/internal/cache"
	"gamecatalog/internal/catalog"
	"gamecatalog/internal/static"
	"gamecatalog/pkg/config"
	"gamecatalog/pkg/database"
	"gamecatalog/pkg/logger"
)

type app struct {
	v   *viper.Viper
	cfg *config.Config
	log zerolog.Logger

	db      *sql.DB
	dialect database.Dialect
	redis   *redis.Client
}

func newApp() *app {
	return &app{v: viper.New()}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "catalogctl",
		Short:             "Operate the game catalog store",
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.close() },
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default ./gamecatalog.yaml)")
	flags.String("db-driver", "", "sqlite3 or postgres")
	flags.String("db-dsn", "", "database DSN or sqlite path")
	flags.String("log-level", "", "debug, info, warn, error")
	flags.String("static-seed", "", "seed YAML file instead of the embedded one")

	for key, name := range map[string]string{
		"config":      "config",
		"db_driver":   "db-driver",
		"db_dsn":      "db-dsn",
		"log_level":   "log-level",
		"static_seed": "static-seed",
	} {
		// only flags the user actually set override config and env
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(
		a.migrateCommand(),
		a.importCommand(),
		a.exportCommand(),
		a.staticCommand(),
		a.optionsCommand(),
		a.promoteCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadWith(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.Setup(logger.Config{Level: cfg.LogLevel, Format: "console", Output: cmd.ErrOrStderr()})
	cmd.SetContext(a.log.WithContext(cmd.Context()))
	return nil
}

// openDB opens and migrates the configured store.
func (a *app) openDB(ctx context.Context) error {
	if a.db != nil {
		return nil
	}
	dbCfg := database.DefaultConfig()
	dbCfg.Driver = a.cfg.DBDriver
	dbCfg.DSN = a.cfg.DBDSN

	db, dialect, err := database.Open(ctx, dbCfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(ctx, db, dialect); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	a.db, a.dialect = db, dialect
	return nil
}

func (a *app) service(ctx context.Context) (*catalog.Service, error) {
	if err := a.openDB(ctx); err != nil {
		return nil, err
	}
	seed, err := static.LoadFile(a.cfg.StaticSeed, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	var opts []catalog.Option
	if c := a.optionsCache(ctx); c != nil {
		opts = append(opts, catalog.WithCache(c))
	}
	return catalog.NewService(catalog.NewRepo(a.db, a.dialect), seed, opts...), nil
}

// optionsCache connects to the server's Redis so that imports invalidate the
// cached filter options. Without Redis there is nothing shared to invalidate.
func (a *app) optionsCache(ctx context.Context) catalog.OptionsCache {
	if a.cfg.RedisAddr == "" {
		return nil
	}
	if a.redis == nil {
		rdb, err := cache.NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
		if err != nil {
			a.log.Warn().Err(err).Msg("redis unavailable, filter options cache not invalidated")
			return nil
		}
		a.redis = rdb
	}
	return cache.NewRedis(a.redis, a.cfg.CacheTTL)
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}
