package main

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jmoiron/sqlx"
)

const (
	ConnectionTimeout = 10 * time.Second
	// connectAttempts bounds the pings issued while opening a connection.
	connectAttempts = 3
	DefaultMaxRows  = 10000
)

//go:generate mockgen -destination=mock_backend_test.go -package=main . Backend,Conn

// Backend is one database technology: it knows how to validate its own
// connection parameters and how to open connections.
type Backend interface {
	Type() string
	ParseParams(raw map[string]any) (ConnParams, error)
	Open(ctx context.Context, p ConnParams) (Conn, error)
}

// Conn is an open, pool-backed connection to one database. Implementations
// must be safe for concurrent use.
type Conn interface {
	Introspect(ctx context.Context) (*Schema, error)
	Execute(ctx context.Context, stmt string) (*ResultSet, error)
	QuoteIdentifier(name string) string
	Close() error
}

// ResultSet is what a backend returns for one statement. Rows hold driver
// values with []byte already converted to string; nil is SQL NULL.
type ResultSet struct {
	Columns   []string
	Rows      [][]any
	Truncated bool
}

// BackendOptions apply to every connection opened by an sqlBackend.
type BackendOptions struct {
	MaxRows      int
	QueryTimeout time.Duration
	Logger       *slog.Logger
}

// BackendSet resolves configured type names, including aliases, to backends.
type BackendSet map[string]Backend

// NewBackendSet wraps every compiled in adapter as a Backend.
func NewBackendSet(opts BackendOptions) BackendSet {
	set := BackendSet{}
	for _, a := range defaultAdapters() {
		b := &sqlBackend{adapter: a, opts: opts}
		set[a.Type()] = b
		for _, alias := range a.Aliases() {
			set[alias] = b
		}
	}
	return set
}

// Lookup finds the backend for a configured type, case-insensitively.
func (s BackendSet) Lookup(typ string) (Backend, bool) {
	b, ok := s[strings.ToLower(strings.TrimSpace(typ))]
	return b, ok
}

// Types returns the canonical type names, without aliases.
func (s BackendSet) Types() []string {
	var types []string
	for name, b := range s {
		if name == b.Type() {
			types = append(types, name)
		}
	}
	return types
}

// sqlBackend turns a DBAdapter into a Backend on top of database/sql.
type sqlBackend struct {
	adapter DBAdapter
	opts    BackendOptions
}

func (b *sqlBackend) Type() string { return b.adapter.Type() }

func (b *sqlBackend) ParseParams(raw map[string]any) (ConnParams, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	p := b.adapter.NewParams()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("decode parameters: %w", err)
	}
	if err := validateStruct(p); err != nil {
		return nil, err
	}
	// Surface DSN problems at startup rather than on first use.
	if _, err := b.adapter.BuildDSN(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *sqlBackend) Open(ctx context.Context, p ConnParams) (Conn, error) {
	dsn, err := b.adapter.BuildDSN(p)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(b.adapter.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	b.adapter.ConfigurePool(db.DB, p)

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		pingCtx, cancel := context.WithTimeout(ctx, ConnectionTimeout)
		defer cancel()
		return struct{}{}, db.PingContext(pingCtx)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(connectAttempts))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if b.opts.Logger != nil {
		b.opts.Logger.Debug("backend: connected", "type", b.adapter.Type(), "target", p.Target())
	}

	maxRows := b.opts.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &sqlConn{
		db:           db,
		adapter:      b.adapter,
		maxRows:      maxRows,
		queryTimeout: b.opts.QueryTimeout,
	}, nil
}

type sqlConn struct {
	db           *sqlx.DB
	adapter      DBAdapter
	maxRows      int
	queryTimeout time.Duration
}

func (c *sqlConn) Introspect(ctx context.Context) (*Schema, error) {
	rows, err := c.db.QueryContext(ctx, c.adapter.ReadSchemaQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	defer rows.Close()

	schema := &Schema{Tables: []Table{}}
	for rows.Next() {
		name, col, err := c.adapter.ScanSchemaRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schema row: %w", err)
		}
		// Rows arrive grouped by table.
		n := len(schema.Tables)
		if n == 0 || schema.Tables[n-1].Name != name {
			schema.Tables = append(schema.Tables, Table{Name: name})
			n++
		}
		schema.Tables[n-1].Columns = append(schema.Tables[n-1].Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading schema: %w", err)
	}
	return schema, nil
}

func (c *sqlConn) Execute(ctx context.Context, stmt string) (*ResultSet, error) {
	if c.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	rows, err := c.db.QueryxContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		if len(rs.Rows) >= c.maxRows {
			rs.Truncated = true
			break
		}
		values, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (c *sqlConn) QuoteIdentifier(name string) string {
	return c.adapter.QuoteIdentifier(name)
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}

// isConnectionLost reports whether err means the connection can no longer
// be used and must be reopened.
func isConnectionLost(err error) bool {
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone)
}
