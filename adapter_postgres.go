package main

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/lib/pq"
)

// PostgresParams are the connection parameters of a PostgreSQL-wire backend.
type PostgresParams struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"omitempty,min=1,max=65535"`
	User     string `json:"user" validate:"required"`
	Password string `json:"password"`
	DBName   string `json:"dbname" validate:"required"`
	SSLMode  string `json:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	ReadOnly bool   `json:"read_only"`
}

func (p *PostgresParams) Target() string {
	return fmt.Sprintf("postgres://%s/%s", p.hostPort(), p.DBName)
}

func (p *PostgresParams) hostPort() string {
	port := p.Port
	if port == 0 {
		port = 5432
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(port))
}

// PostgresAdapter implements DBAdapter for PostgreSQL databases.
type PostgresAdapter struct{}

func (a *PostgresAdapter) Type() string          { return "pg" }
func (a *PostgresAdapter) Aliases() []string     { return []string{"postgres", "postgresql", "redshift"} }
func (a *PostgresAdapter) DriverName() string    { return "postgres" }
func (a *PostgresAdapter) NewParams() ConnParams { return &PostgresParams{} }

func (a *PostgresAdapter) BuildDSN(cp ConnParams) (string, error) {
	p, ok := cp.(*PostgresParams)
	if !ok {
		return "", fmt.Errorf("postgres: unexpected parameters %T", cp)
	}
	sslmode := p.SSLMode
	if sslmode == "" {
		sslmode = "prefer"
	}

	q := url.Values{}
	q.Set("sslmode", sslmode)
	q.Set("connect_timeout", strconv.Itoa(int(ConnectionTimeout/time.Second)))
	if p.ReadOnly {
		// Sent as a startup parameter, so it applies to every pooled session.
		q.Set("default_transaction_read_only", "on")
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.hostPort(),
		Path:     "/" + p.DBName,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

func (a *PostgresAdapter) ConfigurePool(db *sql.DB, _ ConnParams) {
	db.SetMaxIdleConns(MaxConnectionsIdle)
	db.SetMaxOpenConns(MaxConnectionsOpen)
	db.SetConnMaxLifetime(time.Hour)
}

func (a *PostgresAdapter) ReadSchemaQuery() string {
	return `SELECT c.table_schema, c.table_name, c.column_name, c.data_type
		FROM information_schema.columns c
		JOIN information_schema.tables t
			ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE c.table_schema NOT IN ('pg_catalog', 'information_schema')
			AND t.table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY c.table_schema, c.table_name, c.ordinal_position`
}

func (a *PostgresAdapter) ScanSchemaRow(rows *sql.Rows) (string, Column, error) {
	var schema, table, colName, dataType string
	if err := rows.Scan(&schema, &table, &colName, &dataType); err != nil {
		return "", Column{}, err
	}
	return qualifiedName(schema, table, "public"), Column{Name: colName, Type: dataType}, nil
}

func (a *PostgresAdapter) QuoteIdentifier(name string) string {
	return quoteParts(name, `"`)
}
