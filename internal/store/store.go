package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vanshpatelx/Opinex/config"
	"github.com/vanshpatelx/Opinex/internal/connector"
	"github.com/vanshpatelx/Opinex/internal/metrics"
)

// Store runs positional-parameter queries against postgres. Every call checks
// out its own pooled connection and returns it on all exit paths.
type Store struct {
	conn *connector.Connector[*gorm.DB]
}

// New creates a store over a database connector.
func New(conn *connector.Connector[*gorm.DB]) *Store {
	return &Store{conn: conn}
}

// NewConnector returns a connector that opens the postgres pool described by cfg.
func NewConnector(cfg config.DatabaseConfig, m *metrics.Metrics, opts connector.Options) *connector.Connector[*gorm.DB] {
	dial := func(ctx context.Context) (*gorm.DB, error) {
		return Open(ctx, postgres.Open(cfg.DSN), cfg, m)
	}
	return connector.New("postgres", dial, closeDB, opts)
}

// Open opens a gorm handle on dialector, applies pool settings and hooks, and pings.
func Open(ctx context.Context, dialector gorm.Dialector, cfg config.DatabaseConfig, m *metrics.Metrics) (*gorm.DB, error) {
	slow := cfg.SlowThreshold
	if slow <= 0 {
		slow = time.Second
	}
	gormLogger := logger.New(&logAdapter{}, logger.Config{
		SlowThreshold:             slow,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying DB connection")
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	if m != nil {
		if err := RegisterHooks(db, m); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// FetchOne scans the first row of query into dest. It returns ErrNotFound when
// nothing matched and a *BackendError when the query could not be run.
func (s *Store) FetchOne(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return s.run(ctx, "fetch one", func(tx *gorm.DB) error {
		res := tx.Raw(query, args...).Scan(dest)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// FetchAll scans every row of query into dest, which must point to a slice.
// An empty result is not an error.
func (s *Store) FetchAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return s.run(ctx, "fetch all", func(tx *gorm.DB) error {
		return tx.Raw(query, args...).Scan(dest).Error
	})
}

// Ping checks that the pool can reach postgres.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.conn.Acquire(ctx)
	if err != nil {
		return classify("acquire", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return classify("ping", err)
	}
	return classify("ping", sqlDB.PingContext(ctx))
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) run(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	db, err := s.conn.Acquire(ctx)
	if err != nil {
		return classify("acquire", err)
	}

	err = db.WithContext(ctx).Connection(fn)
	if err != nil && !errors.Is(err, ErrNotFound) {
		log.Error().Err(err).Str("op", op).Msg("Query failed")
	}
	return classify(op, err)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// logAdapter forwards gorm's logger to zerolog.
type logAdapter struct{}

func (l *logAdapter) Printf(format string, args ...interface{}) {
	log.Warn().Str("component", "gorm").Msgf(format, args...)
}
