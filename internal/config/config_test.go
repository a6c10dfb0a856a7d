package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		GeneralParams: GeneralParams{Env: "dev", SecretKey: "s"},
		HTTPServerParams: HTTPServerParams{
			Address:       "0.0.0.0",
			Port:          "8080",
			AllowedOrigin: "http://localhost:5173",
		},
		MainDBParams: MainDBParams{
			Username: "u", Password: "p", Name: "db", Port: 5432, Host: "localhost", Timeout: 5,
		},
		S3Params: S3Params{
			Endpoint: "localhost:9000", AccessKeyID: "k", SecretAccessKey: "s", BucketName: "b",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing secret", func(c *Config) { c.GeneralParams.SecretKey = "" }, true},
		{"bad env", func(c *Config) { c.GeneralParams.Env = "staging" }, true},
		{"missing port", func(c *Config) { c.HTTPServerParams.Port = "" }, true},
		{"missing origin", func(c *Config) { c.HTTPServerParams.AllowedOrigin = "" }, true},
		{"missing db host", func(c *Config) { c.MainDBParams.Host = "" }, true},
		{"missing db port", func(c *Config) { c.MainDBParams.Port = 0 }, true},
		{"missing s3 bucket", func(c *Config) { c.S3Params.BucketName = "" }, true},
		{"negative hub limit", func(c *Config) { c.HubParams.SendQueueDepth = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetDSN(t *testing.T) {
	db := &MainDBParams{
		Username: "u", Password: "p", Host: "localhost", Port: 5432, Name: "db", Timeout: 5,
	}
	want := "postgres://u:p@localhost:5432/db?connect_timeout=5&sslmode=disable"
	if got := db.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
general_params:
  env: "test"
  secret_key: "secret"
http_server_params:
  http_server_address: "127.0.0.1"
  http_server_port: "9999"
  allowed_origin: "http://example.com"
main_db_params:
  db_username: "u"
  db_password: "p"
  db_name: "db"
  db_port: 5432
  db_host: "localhost"
  db_timeout: 5
s3_params:
  endpoint: "localhost:9000"
  access_key_id: "k"
  secret_access_key: "s"
  use_ssl: false
  bucket_name: "b"
hub_params:
  send_queue_depth: 128
  max_signal_bytes: 32768
  pending_ttl: 5m
  dedup_window: 5s
  sweep_interval: 1m
  host_grace: 90s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cm, err := NewConfigManager(path)
	if err != nil {
		t.Fatalf("NewConfigManager() error = %v", err)
	}
	c := cm.GetConfig()

	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if c.HTTPServerParams.GetAddress() != "127.0.0.1:9999" {
		t.Errorf("GetAddress() = %q", c.HTTPServerParams.GetAddress())
	}
	if c.HubParams.SendQueueDepth != 128 {
		t.Errorf("SendQueueDepth = %d, want 128", c.HubParams.SendQueueDepth)
	}
	if c.HubParams.HostGrace != 90*time.Second {
		t.Errorf("HostGrace = %v, want 90s", c.HubParams.HostGrace)
	}
	if c.HubParams.PendingTTL != 5*time.Minute {
		t.Errorf("PendingTTL = %v, want 5m", c.HubParams.PendingTTL)
	}
}
