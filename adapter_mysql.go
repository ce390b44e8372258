package main

import (
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLParams are the connection parameters of a MySQL-wire backend.
type MySQLParams struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"omitempty,min=1,max=65535"`
	User     string `json:"user" validate:"required"`
	Password string `json:"password"`
	DB       string `json:"db" validate:"required"`
	TLS      string `json:"tls" validate:"omitempty,oneof=true false skip-verify preferred"`
	ReadOnly bool   `json:"read_only"`
}

func (p *MySQLParams) Target() string {
	return fmt.Sprintf("mysql://%s/%s", p.addr(), p.DB)
}

func (p *MySQLParams) addr() string {
	port := p.Port
	if port == 0 {
		port = 3306
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(port))
}

// MySQLAdapter implements DBAdapter for MySQL and MariaDB databases.
type MySQLAdapter struct{}

func (a *MySQLAdapter) Type() string          { return "mysql" }
func (a *MySQLAdapter) Aliases() []string     { return []string{"mariadb"} }
func (a *MySQLAdapter) DriverName() string    { return "mysql" }
func (a *MySQLAdapter) NewParams() ConnParams { return &MySQLParams{} }

func (a *MySQLAdapter) BuildDSN(cp ConnParams) (string, error) {
	p, ok := cp.(*MySQLParams)
	if !ok {
		return "", fmt.Errorf("mysql: unexpected parameters %T", cp)
	}

	cfg := mysql.NewConfig()
	cfg.User = p.User
	cfg.Passwd = p.Password
	cfg.Net = "tcp"
	cfg.Addr = p.addr()
	cfg.DBName = p.DB
	cfg.Timeout = ConnectionTimeout
	if p.TLS != "" {
		cfg.TLSConfig = p.TLS
	}
	if p.ReadOnly {
		// The driver issues SET for unknown params on every new connection.
		cfg.Params = map[string]string{"transaction_read_only": "1"}
	}
	return cfg.FormatDSN(), nil
}

func (a *MySQLAdapter) ConfigurePool(db *sql.DB, _ ConnParams) {
	db.SetMaxIdleConns(MaxConnectionsIdle)
	db.SetMaxOpenConns(MaxConnectionsOpen)
	db.SetConnMaxLifetime(time.Hour)
}

func (a *MySQLAdapter) ReadSchemaQuery() string {
	return `SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		ORDER BY table_name, ordinal_position`
}

func (a *MySQLAdapter) ScanSchemaRow(rows *sql.Rows) (string, Column, error) {
	var table, colName, dataType string
	if err := rows.Scan(&table, &colName, &dataType); err != nil {
		return "", Column{}, err
	}
	return table, Column{Name: colName, Type: dataType}, nil
}

func (a *MySQLAdapter) QuoteIdentifier(name string) string {
	return quoteName(name, "`")
}
