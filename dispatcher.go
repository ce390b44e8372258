package main

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Dispatcher runs statements against registered databases and records each
// one in the history.
type Dispatcher struct {
	registry *Registry
	history  *History
	log      *slog.Logger
}

func NewDispatcher(registry *Registry, history *History, log *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, history: history, log: log}
}

// Execute submits stmt unchanged to the database identified by databaseID.
// Every call that resolves a database appends exactly one history entry
// before returning; an unknown id appends none.
func (d *Dispatcher) Execute(ctx context.Context, databaseID, stmt string) (*QueryResult, error) {
	e, err := d.registry.Get(databaseID)
	if err != nil {
		return nil, &DispatchError{Kind: ErrUnknownDatabase, DatabaseID: databaseID}
	}

	start := time.Now()
	rs, err := e.execute(ctx, stmt)
	QueryDuration.WithLabelValues(e.ID).Observe(time.Since(start).Seconds())
	QueriesTotal.WithLabelValues(e.ID, statusLabel(err)).Inc()

	if err != nil {
		derr := &DispatchError{Kind: ErrExecutionFailed, DatabaseID: e.ID, Cause: err}
		var ce *ConnectError
		if errors.As(err, &ce) {
			derr.Kind, derr.Cause = ErrConnectionFailed, ce.Cause
		}
		d.history.Append(e.ID, stmt, Outcome{Error: derr.Message()})
		d.log.Debug("dispatcher: statement failed", "database_id", e.ID, "kind", derr.Kind, "error", derr.Cause)
		return nil, derr
	}

	d.history.Append(e.ID, stmt, Outcome{Success: true, RowCount: len(rs.Rows)})
	d.log.Debug("dispatcher: statement executed", "database_id", e.ID, "rows", len(rs.Rows), "truncated", rs.Truncated, "duration", time.Since(start))
	return &QueryResult{
		DatabaseID: e.ID,
		Columns:    rs.Columns,
		Rows:       rs.Rows,
		Truncated:  rs.Truncated,
	}, nil
}

// History returns the dispatcher's history.
func (d *Dispatcher) History() *History { return d.history }
