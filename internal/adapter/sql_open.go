package adapter

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/klpod221/kerminal-sub001/internal/config"
	"github.com/klpod221/kerminal-sub001/internal/logger"
	"github.com/klpod221/kerminal-sub001/migrations"
)

// OpenSQLRemote connects to the mirror described by cfg, applies pending
// migrations and returns the connection together with a [RemoteSource] over
// it. The caller owns the returned *sql.DB.
func OpenSQLRemote(ctx context.Context, cfg config.ClientRemote, log *logger.Logger) (*sql.DB, RemoteSource, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}

	conn, err := sql.Open(string(dialect), cfg.DSN)
	if err != nil {
		log.Err(err).Str("func", "OpenSQLRemote").Msg("error occurred during database connection")
		return nil, nil, fmt.Errorf("error occurred during database connection: %w", err)
	}

	switch {
	case dialect == DialectSQLite:
		// one writer per process; other devices contend through file locks
		conn.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err = conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		log.Err(err).Str("func", "OpenSQLRemote").Msg("error connecting database (ping)")
		return nil, nil, err
	}

	if err = migrations.Migrate(conn, string(dialect)); err != nil {
		_ = conn.Close()
		log.Err(err).Str("func", "OpenSQLRemote").Msg("error migrating remote schema")
		return nil, nil, err
	}

	log.Info().
		Str("func", "OpenSQLRemote").
		Str("driver", string(dialect)).
		Msg("connected to remote successfully")

	return conn, NewSQLRemote(conn, dialect, WithRemoteLogger(log)), nil
}
