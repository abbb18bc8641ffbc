package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/TEENet-io/xbridge-agents/agreement"
	logger "github.com/sirupsen/logrus"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxIdleTime = 5 * time.Minute
)

// Database is the set of operations the cartographer pollers need from storage.
type Database interface {
	SaveTransfers(ctx context.Context, transfers []*agreement.XTransfer) error
	GetLatestNonce(ctx context.Context, domain string) (uint64, error)
	GetTransfersByStatus(
		ctx context.Context,
		status agreement.XTransferStatus,
		limit int,
		offset int,
		orderDirection agreement.OrderDirection,
	) ([]*agreement.XTransfer, error)
	SaveRouterBalances(ctx context.Context, balances []*agreement.RouterBalance) error
	GetLatestExecuteTimestamp(ctx context.Context, domain string) (uint64, error)
	GetLatestReconcileTimestamp(ctx context.Context, domain string) (uint64, error)
}

// Client implements Database over a database/sql pool.
type Client struct {
	db        *sql.DB
	dialect   dialect
	stmtCache *StmtCache
	log       *logger.Entry
}

var _ Database = (*Client)(nil)

// NewDatabase builds the connection pool for url, checks connectivity once and
// creates the schema. Any failure to reach the database yields ErrDatabaseConnection.
func NewDatabase(ctx context.Context, url string, log *logger.Entry) (*Client, error) {
	d, dsn, err := parseURL(url)
	if err != nil {
		log.WithError(err).Error("Database connection error")
		return nil, ErrDatabaseConnection
	}

	db, err := sql.Open(string(d), dsn)
	if err != nil {
		log.WithError(err).Error("Database connection error")
		return nil, ErrDatabaseConnection
	}

	return newClient(ctx, db, d, log)
}

func newClient(ctx context.Context, db *sql.DB, d dialect, log *logger.Entry) (*Client, error) {
	if d == dialectSQLite {
		// one writer, and every pooled ":memory:" connection would be its own database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
		db.SetConnMaxIdleTime(connMaxIdleTime)
	}

	var now interface{}
	if err := db.QueryRowContext(ctx, d.livenessQuery()).Scan(&now); err != nil {
		log.WithError(err).Error("Database connection error")
		_ = db.Close()
		return nil, ErrDatabaseConnection
	}

	if _, err := db.ExecContext(ctx, transfersTable+routersTable+assetBalancesTable); err != nil {
		log.WithError(err).Error("failed to create schema")
		_ = db.Close()
		return nil, ErrMigrateSchema
	}

	log.WithFields(logger.Fields{
		"driver": string(d),
	}).Info("Database connected")

	return &Client{
		db:        db,
		dialect:   d,
		stmtCache: NewStmtCache(db),
		log:       log,
	}, nil
}

func (c *Client) Close() error {
	c.stmtCache.Clear()
	return c.db.Close()
}

func (c *Client) prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	return c.stmtCache.Prepare(ctx, c.dialect.rebind(query))
}

// queryLatest runs a single-value aggregate query returning 0 when no row matches.
func (c *Client) queryLatest(ctx context.Context, query string, domain string) (uint64, error) {
	stmt, err := c.prepare(ctx, query)
	if err != nil {
		return 0, err
	}

	var v int64
	if err := stmt.QueryRowContext(ctx, domain).Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	if v < 0 {
		return 0, nil
	}
	return uint64(v), nil
}
