package postgres

import "testing"

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default valid", mutate: func(c *Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.URL = "" }, wantErr: true},
		{name: "zero ping timeout", mutate: func(c *Config) { c.PingTimeout = 0 }, wantErr: true},
		{name: "idle above open", mutate: func(c *Config) { c.MaxIdleConns = 5 }, wantErr: true},
	}
	for _, tc := range tests {
		cfg := DefaultConfig("postgres://td:td@localhost:5432/td?sslmode=disable")
		tc.mutate(&cfg)
		err := cfg.Validate()
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}
}
