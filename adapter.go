package main

import (
	"database/sql"
	"strings"
)

// DBAdapter defines the contract for database-specific behavior.
// Each supported database family (PostgreSQL, MySQL, SQLite, ClickHouse,
// DuckDB) implements this interface; sqlBackend turns an adapter into a
// Backend.
type DBAdapter interface {
	// Type returns the canonical backend type name used in configuration
	// (e.g. "pg", "mysql", "sqlite").
	Type() string

	// Aliases returns alternative names accepted for Type in configuration.
	Aliases() []string

	// DriverName returns the database/sql driver name (e.g., "mysql", "postgres", "sqlite").
	DriverName() string

	// NewParams returns a pointer to an empty connection parameter struct
	// that configuration is decoded into.
	NewParams() ConnParams

	// BuildDSN constructs a DSN from validated connection parameters.
	BuildDSN(p ConnParams) (string, error)

	// ConfigurePool tunes the connection pool for the given parameters.
	ConfigurePool(db *sql.DB, p ConnParams)

	// ReadSchemaQuery returns the SQL query listing every column of every
	// user table, ordered by table and column position.
	ReadSchemaQuery() string

	// ScanSchemaRow scans a single row of the schema query into the table
	// name and column it describes.
	ScanSchemaRow(rows *sql.Rows) (string, Column, error)

	// QuoteIdentifier quotes a (possibly schema-qualified) table name.
	QuoteIdentifier(name string) string
}

// ConnParams is a decoded, validated set of backend-specific connection
// parameters.
type ConnParams interface {
	// Target returns a credential-free description of what the parameters
	// point at, for logs.
	Target() string
}

// Connection pool defaults shared by network backends.
const (
	MaxConnectionsIdle = 5
	MaxConnectionsOpen = 10
)

// quoteName quotes name as a single identifier with q, doubling any
// embedded quote characters.
func quoteName(name string, q string) string {
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// quoteParts quotes each dot separated part of name with q. Only for
// backends whose introspection reports tables as schema.table.
func quoteParts(name string, q string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quoteName(p, q)
	}
	return strings.Join(parts, ".")
}

// qualifiedName prefixes table with schema unless schema is the backend's
// default one.
func qualifiedName(schema, table, defaultSchema string) string {
	if schema == "" || schema == defaultSchema {
		return table
	}
	return schema + "." + table
}

// defaultAdapters returns every adapter compiled into the binary.
func defaultAdapters() []DBAdapter {
	return []DBAdapter{
		&PostgresAdapter{},
		&MySQLAdapter{},
		&SQLiteAdapter{},
		&ClickHouseAdapter{},
		&DuckDBAdapter{},
	}
}
