/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package backend

import (
	"context"
	"database/sql"
	"net/url"

	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/monitor"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"github.com/xelabs/go-mysqlstack/sqlparser/depends/sqltypes"
	"github.com/xelabs/go-mysqlstack/xlog"

	// sqlite driver.
	_ "modernc.org/sqlite"
)

const (
	// DriverMySQL uses go-sql-driver/mysql.
	DriverMySQL = "mysql"
	// DriverPostgreSQL uses the pgx stdlib driver.
	DriverPostgreSQL = "pgx"
	// DriverSQLite uses modernc.org/sqlite.
	DriverSQLite = "sqlite"
)

// Pool tuple.
type Pool struct {
	log  *xlog.Log
	conf *config.DataSourceConfig
	db   *sql.DB
}

func mysqlDB(conf *config.DataSourceConfig) (*sql.DB, error) {
	var cfg *mysql.Config
	if conf.DSN != "" {
		var err error
		if cfg, err = mysql.ParseDSN(conf.DSN); err != nil {
			return nil, errors.Wrapf(err, "backend.data-source[%s].dsn", conf.Name)
		}
	} else {
		cfg = mysql.NewConfig()
		cfg.User = conf.User
		cfg.Passwd = conf.Password
		cfg.Net = "tcp"
		cfg.Addr = conf.Address
		cfg.DBName = conf.DBName
		if conf.Charset != "" {
			cfg.Params = map[string]string{"charset": conf.Charset}
		}
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "backend.data-source[%s].connector", conf.Name)
	}
	return sql.OpenDB(connector), nil
}

func postgresDB(conf *config.DataSourceConfig) (*sql.DB, error) {
	dsn := conf.DSN
	if dsn == "" {
		u := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(conf.User, conf.Password),
			Host:   conf.Address,
			Path:   "/" + conf.DBName,
		}
		dsn = u.String()
	}
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "backend.data-source[%s].dsn", conf.Name)
	}
	return stdlib.OpenDB(*cfg), nil
}

func sqliteDB(conf *config.DataSourceConfig) (*sql.DB, error) {
	dsn := conf.DSN
	if dsn == "" {
		dsn = conf.DBName
	}
	if dsn == "" {
		return nil, errors.Errorf("backend.data-source[%s].sqlite.dsn.can.not.be.empty", conf.Name)
	}
	db, err := sql.Open(DriverSQLite, dsn)
	return db, errors.WithStack(err)
}

// NewPool opens the data source lazily, no connection is made until the first query.
func NewPool(log *xlog.Log, conf *config.DataSourceConfig) (*Pool, error) {
	var db *sql.DB
	var err error
	switch conf.Driver {
	case DriverMySQL:
		db, err = mysqlDB(conf)
	case DriverPostgreSQL, "postgresql":
		db, err = postgresDB(conf)
	case DriverSQLite:
		db, err = sqliteDB(conf)
	default:
		return nil, errors.Errorf("backend.data-source[%s].driver[%s].unsupported", conf.Name, conf.Driver)
	}
	if err != nil {
		return nil, err
	}
	if conf.MaxConnections > 0 {
		db.SetMaxOpenConns(conf.MaxConnections)
		db.SetMaxIdleConns(conf.MaxConnections)
	}
	monitor.DataSourceInc(conf.Driver)
	log.Info("pool[%s].driver[%s].opened", conf.Name, conf.Driver)
	return &Pool{log: log, conf: conf, db: db}, nil
}

// Name returns the data source name.
func (p *Pool) Name() string {
	return p.conf.Name
}

// Ping checks the data source is reachable.
func (p *Pool) Ping(ctx context.Context) error {
	return errors.WithStack(p.db.PingContext(ctx))
}

// Query runs a query and returns its rows, the caller closes them.
func (p *Pool) Query(ctx context.Context, query string, args []interface{}) (*Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return newRows(rows, func(err error) {
		if err != nil {
			p.log.Error("pool[%s].rows.close.error:%v", p.conf.Name, err)
		}
	})
}

// Exec runs a statement without rows.
func (p *Pool) Exec(ctx context.Context, query string, args []interface{}) (*sqltypes.Result, error) {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	qr := &sqltypes.Result{}
	if n, err := res.RowsAffected(); err == nil {
		qr.RowsAffected = uint64(n)
	}
	// PostgreSQL has no last insert id.
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		qr.InsertID = uint64(id)
	}
	return qr, nil
}

// Close closes the underlying connections.
func (p *Pool) Close() error {
	monitor.DataSourceDec(p.conf.Driver)
	p.log.Info("pool[%s].close", p.conf.Name)
	return errors.WithStack(p.db.Close())
}
