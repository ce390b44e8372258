package main

import (
	"net/url"
	"testing"
)

func TestClickHouseBuildDSN(t *testing.T) {
	adapter := &ClickHouseAdapter{}
	tests := []struct {
		name     string
		params   ClickHouseParams
		wantHost string
		wantPath string
		wantUser string
		want     map[string]string
	}{
		{
			name:     "defaults",
			params:   ClickHouseParams{Host: "ch.local", Database: "events"},
			wantHost: "ch.local:9000",
			wantPath: "/events",
			want:     map[string]string{"dial_timeout": "10s", "readonly": "", "secure": ""},
		},
		{
			name:     "credentials, tls and read only",
			params:   ClickHouseParams{Host: "ch.local", Port: 9440, User: "reader", Password: "pw", Database: "events", Secure: true, ReadOnly: true},
			wantHost: "ch.local:9440",
			wantPath: "/events",
			wantUser: "reader",
			want:     map[string]string{"readonly": "2", "secure": "true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := adapter.BuildDSN(&tt.params)
			if err != nil {
				t.Fatalf("BuildDSN() error = %v", err)
			}
			u, err := url.Parse(dsn)
			if err != nil {
				t.Fatalf("BuildDSN() produced unparsable DSN %q: %v", dsn, err)
			}
			if u.Scheme != "clickhouse" {
				t.Errorf("scheme = %q, want clickhouse", u.Scheme)
			}
			if u.Host != tt.wantHost {
				t.Errorf("host = %q, want %q", u.Host, tt.wantHost)
			}
			if u.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", u.Path, tt.wantPath)
			}
			if got := u.User.Username(); got != tt.wantUser {
				t.Errorf("user = %q, want %q", got, tt.wantUser)
			}
			for k, v := range tt.want {
				if got := u.Query().Get(k); got != v {
					t.Errorf("query param %s = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestClickHouseQuoteIdentifier(t *testing.T) {
	adapter := &ClickHouseAdapter{}
	tests := []struct {
		name string
		want string
	}{
		{"hits", "`hits`"},
		{"a.b", "`a.b`"},
		{"back`tick", "`back``tick`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.QuoteIdentifier(tt.name); got != tt.want {
				t.Errorf("QuoteIdentifier(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}
