package db

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/video-shoppe/config"
	"github.com/sksmith/video-shoppe/core"
)

const (
	connectRetryWait    = time.Second
	maxConnLifetime     = time.Hour
	maxConnIdleTime     = 30 * time.Minute
	healthCheckPeriod   = time.Minute
	migrationsSource    = "file://db/migrations"
	sessionTimeZone     = "UTC"
	defaultPoolMaxConns = 4
)

// URL is the postgres connection url for cfg, with the credentials escaped.
func URL(cfg config.DbConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User.Value, cfg.Pass.Value),
		Host:     net.JoinHostPort(cfg.Host.Value, cfg.Port.Value),
		Path:     "/" + cfg.Name.Value,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// PoolConfig builds the pool settings for cfg. Sessions always run in UTC.
func PoolConfig(cfg config.DbConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(URL(cfg))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	poolConfig.MaxConns = int32(cfg.Pool.MaxSize.Value)
	if poolConfig.MaxConns < 1 {
		poolConfig.MaxConns = defaultPoolMaxConns
	}
	poolConfig.MinConns = int32(cfg.Pool.MinSize.Value)
	if poolConfig.MinConns > poolConfig.MaxConns {
		poolConfig.MinConns = poolConfig.MaxConns
	}
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.RuntimeParams["timezone"] = sessionTimeZone
	poolConfig.ConnConfig.Logger = logger{}

	return poolConfig, nil
}

// ConnectDb migrates the schema when db.migrate is set and then opens the pool, retrying until the database
// answers or ctx is done.
func ConnectDb(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	log.Info().Str("host", cfg.Db.Host.Value).Str("name", cfg.Db.Name.Value).Msg("connecting to the database...")

	if cfg.Db.Migrate.Value {
		log.Info().Bool("clean", cfg.Db.Clean.Value).Msg("executing migrations")
		if err := RunMigrations(cfg.Db); err != nil {
			log.Warn().Err(err).Msg("error executing migrations")
		}
	}

	poolConfig, err := PoolConfig(cfg.Db)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
		if err == nil {
			return pool, nil
		}
		log.Error().Err(err).Int("attempt", attempt).Msg("failed to create connection pool... retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectRetryWait):
		}
	}
}

type logger struct {
}

func (l logger) Log(ctx context.Context, level pgx.LogLevel, msg string, data map[string]interface{}) {
	var evt *zerolog.Event
	switch level {
	case pgx.LogLevelTrace:
		evt = log.Trace()
	case pgx.LogLevelDebug:
		evt = log.Debug()
	case pgx.LogLevelInfo:
		evt = log.Info()
	case pgx.LogLevelWarn:
		evt = log.Warn()
	case pgx.LogLevelError:
		evt = log.Error()
	case pgx.LogLevelNone:
		evt = log.Info()
	default:
		evt = log.Info()
	}

	for k, v := range data {
		evt.Interface(k, v)
	}

	evt.Msg(msg)
}

// RunMigrations brings the schema up to date. With db.clean set every table is dropped first.
func RunMigrations(cfg config.DbConfig) error {
	m, err := migrate.New(migrationsSource, URL(cfg))
	if err != nil {
		return errors.WithStack(err)
	}
	defer m.Close()

	if cfg.Clean.Value {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return errors.WithStack(err)
		}
	}
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return errors.WithStack(err)
		}
		log.Info().Msg("schema is up to date")
	}

	return nil
}

func GetQueryOptions(cn core.Conn, options ...core.QueryOptions) (conn core.Conn, forUpdate string) {
	conn = cn
	forUpdate = ""
	if len(options) > 0 {
		if options[0].Tx != nil {
			conn = options[0].Tx
		}

		if options[0].ForUpdate {
			forUpdate = "FOR UPDATE"
		}
	}

	return conn, forUpdate
}

func GetUpdateOptions(cn core.Conn, options ...core.UpdateOptions) (conn core.Conn) {
	conn = cn
	if len(options) > 0 && options[0].Tx != nil {
		conn = options[0].Tx
	}

	return conn
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns a search term into an ILIKE pattern matching any value that contains it.
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// BeginTransaction starts a transaction on conn.
func BeginTransaction(ctx context.Context, conn core.Conn) (core.Transaction, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}
