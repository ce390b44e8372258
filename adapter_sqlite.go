package main

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"
)

const sqliteMemory = ":memory:"

// SQLiteParams are the connection parameters of an embedded SQLite file.
type SQLiteParams struct {
	Path     string `json:"path" validate:"required"`
	ReadOnly bool   `json:"read_only"`
}

func (p *SQLiteParams) Target() string { return "sqlite://" + p.Path }

// SQLiteAdapter implements DBAdapter for SQLite databases.
type SQLiteAdapter struct{}

func (a *SQLiteAdapter) Type() string          { return "sqlite" }
func (a *SQLiteAdapter) Aliases() []string     { return []string{"sqlite3"} }
func (a *SQLiteAdapter) DriverName() string    { return "sqlite" }
func (a *SQLiteAdapter) NewParams() ConnParams { return &SQLiteParams{} }

func (a *SQLiteAdapter) BuildDSN(cp ConnParams) (string, error) {
	p, ok := cp.(*SQLiteParams)
	if !ok {
		return "", fmt.Errorf("sqlite: unexpected parameters %T", cp)
	}
	if p.Path == sqliteMemory {
		return sqliteMemory, nil
	}

	// Query parameters other than _pragma are only honoured for file: URIs.
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	if p.ReadOnly {
		q.Set("mode", "ro")
		q.Add("_pragma", "query_only(1)")
	}
	return "file:" + p.Path + "?" + q.Encode(), nil
}

func (a *SQLiteAdapter) ConfigurePool(db *sql.DB, cp ConnParams) {
	// Every connection to :memory: is a separate database.
	if p, ok := cp.(*SQLiteParams); ok && p.Path == sqliteMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return
	}
	db.SetMaxIdleConns(MaxConnectionsIdle)
	db.SetMaxOpenConns(MaxConnectionsOpen)
}

func (a *SQLiteAdapter) ReadSchemaQuery() string {
	// SQLite has no information_schema; join sqlite_master with the
	// table_info pragma function instead.
	return `SELECT m.name, p.name, p.type
		FROM sqlite_master m
		JOIN pragma_table_info(m.name) p
		WHERE m.type IN ('table', 'view') AND m.name NOT LIKE 'sqlite_%'
		ORDER BY m.name, p.cid`
}

func (a *SQLiteAdapter) ScanSchemaRow(rows *sql.Rows) (string, Column, error) {
	var table, colName string
	var colType sql.NullString
	if err := rows.Scan(&table, &colName, &colType); err != nil {
		return "", Column{}, err
	}
	return table, Column{Name: colName, Type: colType.String}, nil
}

func (a *SQLiteAdapter) QuoteIdentifier(name string) string {
	// Dots are legal in SQLite table names and attached schemas are not
	// introspected, so the name is quoted whole.
	return quoteName(name, `"`)
}
