package main

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseParams are the connection parameters of a ClickHouse server
// reached over the native protocol.
type ClickHouseParams struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"omitempty,min=1,max=65535"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	Secure   bool   `json:"secure"`
	ReadOnly bool   `json:"read_only"`
}

func (p *ClickHouseParams) Target() string {
	return fmt.Sprintf("clickhouse://%s/%s", p.addr(), p.Database)
}

func (p *ClickHouseParams) addr() string {
	port := p.Port
	if port == 0 {
		port = 9000
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(port))
}

// ClickHouseAdapter implements DBAdapter for ClickHouse.
type ClickHouseAdapter struct{}

func (a *ClickHouseAdapter) Type() string          { return "clickhouse" }
func (a *ClickHouseAdapter) Aliases() []string     { return nil }
func (a *ClickHouseAdapter) DriverName() string    { return "clickhouse" }
func (a *ClickHouseAdapter) NewParams() ConnParams { return &ClickHouseParams{} }

func (a *ClickHouseAdapter) BuildDSN(cp ConnParams) (string, error) {
	p, ok := cp.(*ClickHouseParams)
	if !ok {
		return "", fmt.Errorf("clickhouse: unexpected parameters %T", cp)
	}

	q := url.Values{}
	q.Set("dial_timeout", ConnectionTimeout.String())
	if p.Secure {
		q.Set("secure", "true")
	}
	if p.ReadOnly {
		// readonly=2 still lets the driver send per-query settings.
		q.Set("readonly", "2")
	}

	u := url.URL{
		Scheme:   "clickhouse",
		Host:     p.addr(),
		Path:     "/" + p.Database,
		RawQuery: q.Encode(),
	}
	if p.User != "" {
		u.User = url.UserPassword(p.User, p.Password)
	}
	return u.String(), nil
}

func (a *ClickHouseAdapter) ConfigurePool(db *sql.DB, _ ConnParams) {
	db.SetMaxIdleConns(MaxConnectionsIdle)
	db.SetMaxOpenConns(MaxConnectionsOpen)
	db.SetConnMaxLifetime(time.Hour)
}

func (a *ClickHouseAdapter) ReadSchemaQuery() string {
	return `SELECT table, name, type
		FROM system.columns
		WHERE database = currentDatabase()
		ORDER BY table, position`
}

func (a *ClickHouseAdapter) ScanSchemaRow(rows *sql.Rows) (string, Column, error) {
	var table, colName, dataType string
	if err := rows.Scan(&table, &colName, &dataType); err != nil {
		return "", Column{}, err
	}
	return table, Column{Name: colName, Type: dataType}, nil
}

func (a *ClickHouseAdapter) QuoteIdentifier(name string) string {
	return quoteName(name, "`")
}
