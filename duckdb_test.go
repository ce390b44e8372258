package main

import "testing"

func TestDuckDBBuildDSN(t *testing.T) {
	adapter := &DuckDBAdapter{}
	tests := []struct {
		name   string
		params DuckDBParams
		want   string
	}{
		{"in memory", DuckDBParams{}, ""},
		{"explicit memory", DuckDBParams{Path: ":memory:", ReadOnly: true}, ""},
		{"file", DuckDBParams{Path: "/data/warehouse.duckdb"}, "/data/warehouse.duckdb"},
		{"read only file", DuckDBParams{Path: "/data/warehouse.duckdb", ReadOnly: true}, "/data/warehouse.duckdb?access_mode=READ_ONLY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := adapter.BuildDSN(&tt.params)
			if err != nil {
				t.Fatalf("BuildDSN() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("BuildDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDuckDBTarget(t *testing.T) {
	if got := (&DuckDBParams{}).Target(); got != "duckdb://:memory:" {
		t.Errorf("Target() = %q, want duckdb://:memory:", got)
	}
}
