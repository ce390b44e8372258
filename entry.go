package main

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ConnState is the connection state of a database entry.
type ConnState int

const (
	StateUnconnected ConnState = iota
	StateConnected
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// DatabaseEntry is one registered database. The connection is opened on
// first use and the schema is discovered on first request and cached.
//
// connMu is only held while the connection is being opened or torn down.
// Statements run on the pooled Conn outside of it.
type DatabaseEntry struct {
	ID      string
	Config  DatabaseConfig
	backend Backend
	params  ConnParams
	log     *slog.Logger

	connMu sync.Mutex
	state  ConnState
	conn   Conn
	cause  error // last connect failure, set in StateFailed

	schemaMu   sync.RWMutex
	schema     *Schema
	generation uint64
	group      singleflight.Group
}

func newDatabaseEntry(id string, cfg DatabaseConfig, backend Backend, params ConnParams, log *slog.Logger) *DatabaseEntry {
	return &DatabaseEntry{
		ID:      id,
		Config:  cfg,
		backend: backend,
		params:  params,
		log:     log.With("database_id", id),
	}
}

// Type returns the canonical backend type of the entry.
func (e *DatabaseEntry) Type() string { return e.backend.Type() }

// Description returns the configured description.
func (e *DatabaseEntry) Description() string { return e.Config.Description }

// State returns the connection state and, for StateFailed, the last error.
func (e *DatabaseEntry) State() (ConnState, error) {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	return e.state, e.cause
}

// connection returns the open connection, opening it if needed. A failed
// open leaves the entry in StateFailed; the next call tries again.
func (e *DatabaseEntry) connection(ctx context.Context) (Conn, error) {
	e.connMu.Lock()
	defer e.connMu.Unlock()

	if e.state == StateConnected {
		return e.conn, nil
	}

	conn, err := e.backend.Open(ctx, e.params)
	ConnectsTotal.WithLabelValues(e.ID, statusLabel(err)).Inc()
	if err != nil {
		e.state, e.conn, e.cause = StateFailed, nil, err
		e.log.Warn("entry: connect failed", "target", e.params.Target(), "error", err)
		return nil, &ConnectError{DatabaseID: e.ID, Cause: err}
	}
	e.state, e.conn, e.cause = StateConnected, conn, nil
	e.log.Info("entry: connected", "type", e.Type(), "target", e.params.Target())
	return conn, nil
}

// release drops conn if it is still the entry's current connection, so the
// next call reconnects.
func (e *DatabaseEntry) release(conn Conn) {
	e.connMu.Lock()
	defer e.connMu.Unlock()

	if e.state != StateConnected || e.conn != conn {
		return
	}
	if err := conn.Close(); err != nil {
		e.log.Debug("entry: close after connection loss", "error", err)
	}
	e.state, e.conn = StateUnconnected, nil
	e.log.Warn("entry: connection lost")
}

// execute runs stmt on the entry's connection. Connect failures are
// returned as *ConnectError; anything else comes from the backend as is.
func (e *DatabaseEntry) execute(ctx context.Context, stmt string) (*ResultSet, error) {
	conn, err := e.connection(ctx)
	if err != nil {
		return nil, err
	}
	rs, err := conn.Execute(ctx, stmt)
	if err != nil && isConnectionLost(err) {
		e.release(conn)
	}
	return rs, err
}

// QuoteIdentifier quotes a table name in the entry's SQL dialect.
func (e *DatabaseEntry) QuoteIdentifier(ctx context.Context, name string) (string, error) {
	conn, err := e.connection(ctx)
	if err != nil {
		return "", err
	}
	return conn.QuoteIdentifier(name), nil
}

// CachedSchema returns the cached schema without triggering discovery.
func (e *DatabaseEntry) CachedSchema() (*Schema, bool) {
	e.schemaMu.RLock()
	defer e.schemaMu.RUnlock()
	return e.schema, e.schema != nil
}

// Schema returns the cached schema, discovering it if needed. Concurrent
// callers share a single in-flight introspection.
func (e *DatabaseEntry) Schema(ctx context.Context) (*Schema, error) {
	e.schemaMu.RLock()
	if e.schema != nil {
		s := e.schema
		e.schemaMu.RUnlock()
		return s, nil
	}
	gen := e.generation
	e.schemaMu.RUnlock()

	// Keyed by generation: callers arriving after Invalidate never join a
	// discovery started before it.
	v, err, _ := e.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		e.schemaMu.RLock()
		if e.schema != nil && e.generation == gen {
			s := e.schema
			e.schemaMu.RUnlock()
			return s, nil
		}
		e.schemaMu.RUnlock()

		s, err := e.discover(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		e.schemaMu.Lock()
		if e.generation == gen {
			e.schema = s
		}
		e.schemaMu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Schema), nil
}

func (e *DatabaseEntry) discover(ctx context.Context) (*Schema, error) {
	conn, err := e.connection(ctx)
	if err != nil {
		return nil, err
	}
	s, err := conn.Introspect(ctx)
	SchemaDiscoveriesTotal.WithLabelValues(e.ID, statusLabel(err)).Inc()
	if err != nil {
		if isConnectionLost(err) {
			e.release(conn)
		}
		return nil, err
	}
	e.log.Debug("entry: schema discovered", "tables", len(s.Tables))
	return s, nil
}

// Invalidate drops the cached schema. A discovery already in flight will
// not repopulate the cache.
func (e *DatabaseEntry) Invalidate() {
	e.schemaMu.Lock()
	defer e.schemaMu.Unlock()
	e.schema = nil
	e.generation++
}

// DescribeTable returns the table with exactly the given name.
func (e *DatabaseEntry) DescribeTable(ctx context.Context, name string) (*Table, error) {
	s, err := e.Schema(ctx)
	if err != nil {
		return nil, err
	}
	t, ok := s.Table(name)
	if !ok {
		return nil, &LookupError{Kind: ErrTableNotFound, DatabaseID: e.ID, Table: name}
	}
	return t, nil
}

// Close closes the connection if one is open.
func (e *DatabaseEntry) Close() error {
	e.connMu.Lock()
	defer e.connMu.Unlock()

	if e.state != StateConnected {
		return nil
	}
	err := e.conn.Close()
	e.state, e.conn = StateUnconnected, nil
	return err
}
