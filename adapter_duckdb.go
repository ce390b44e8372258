package main

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/duckdb/duckdb-go/v2"
)

// DuckDBParams are the connection parameters of an embedded DuckDB file.
// An empty path or ":memory:" opens an in-memory database.
type DuckDBParams struct {
	Path     string `json:"path"`
	ReadOnly bool   `json:"read_only"`
}

func (p *DuckDBParams) Target() string {
	if p.inMemory() {
		return "duckdb://" + sqliteMemory
	}
	return "duckdb://" + p.Path
}

func (p *DuckDBParams) inMemory() bool {
	return p.Path == "" || p.Path == sqliteMemory
}

// DuckDBAdapter implements DBAdapter for DuckDB.
type DuckDBAdapter struct{}

func (a *DuckDBAdapter) Type() string          { return "duckdb" }
func (a *DuckDBAdapter) Aliases() []string     { return nil }
func (a *DuckDBAdapter) DriverName() string    { return "duckdb" }
func (a *DuckDBAdapter) NewParams() ConnParams { return &DuckDBParams{} }

func (a *DuckDBAdapter) BuildDSN(cp ConnParams) (string, error) {
	p, ok := cp.(*DuckDBParams)
	if !ok {
		return "", fmt.Errorf("duckdb: unexpected parameters %T", cp)
	}
	if p.inMemory() {
		return "", nil
	}
	if !p.ReadOnly {
		return p.Path, nil
	}
	q := url.Values{}
	q.Set("access_mode", "READ_ONLY")
	return p.Path + "?" + q.Encode(), nil
}

func (a *DuckDBAdapter) ConfigurePool(db *sql.DB, _ ConnParams) {
	db.SetMaxIdleConns(MaxConnectionsIdle)
	db.SetMaxOpenConns(MaxConnectionsOpen)
}

func (a *DuckDBAdapter) ReadSchemaQuery() string {
	return `SELECT table_schema, table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema NOT IN ('information_schema', 'pg_catalog')
		ORDER BY table_schema, table_name, ordinal_position`
}

func (a *DuckDBAdapter) ScanSchemaRow(rows *sql.Rows) (string, Column, error) {
	var schema, table, colName, dataType string
	if err := rows.Scan(&schema, &table, &colName, &dataType); err != nil {
		return "", Column{}, err
	}
	return qualifiedName(schema, table, "main"), Column{Name: colName, Type: dataType}, nil
}

func (a *DuckDBAdapter) QuoteIdentifier(name string) string {
	return quoteParts(name, `"`)
}
