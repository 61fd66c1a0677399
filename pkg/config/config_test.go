package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/sentichart/pkg/cache"
	"github.com/matzehuels/sentichart/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	vp := cfg.Viewport()
	if vp.Width != 1000 || vp.Height != 360 || vp.Margins.Left != 60 {
		t.Errorf("Viewport() = %+v", vp)
	}
	if cfg.Cache.Backend != cache.BackendFile {
		t.Errorf("cache backend = %q", cfg.Cache.Backend)
	}
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"toml", "cfg.toml", `
[server]
addr = ":9090"
read_timeout = "5s"

[backend]
base_url = "http://sim:8000"
timeout = "2m"

[cache]
backend = "redis"
redis_addr = "redis:6379"

[chart]
width = 800
height = 400
style = "light"

[chart.margins]
top = 10
right = 10
bottom = 40
left = 50
`},
		{"yaml", "cfg.yaml", `
server:
  addr: ":9090"
  read_timeout: 5s
backend:
  base_url: http://sim:8000
  timeout: 2m
cache:
  backend: redis
  redis_addr: redis:6379
chart:
  width: 800
  height: 400
  style: light
  margins: {top: 10, right: 10, bottom: 40, left: 50}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Server.Addr != ":9090" || cfg.Server.ReadTimeout.Std() != 5*time.Second {
				t.Errorf("server = %+v", cfg.Server)
			}
			if cfg.Server.WriteTimeout.Std() != 60*time.Second {
				t.Errorf("unset write_timeout should keep its default, got %v", cfg.Server.WriteTimeout.Std())
			}
			if cfg.Backend.BaseURL != "http://sim:8000" || cfg.Backend.Timeout.Std() != 2*time.Minute {
				t.Errorf("backend = %+v", cfg.Backend)
			}
			opts := cfg.CacheOptions()
			if opts.Backend != cache.BackendRedis || opts.Redis.Addr != "redis:6379" {
				t.Errorf("CacheOptions() = %+v", opts)
			}
			vp := cfg.Viewport()
			if vp.Width != 800 || vp.Margins.Bottom != 40 || cfg.Chart.Style != "light" {
				t.Errorf("chart = %+v", cfg.Chart)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		code errors.Code
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.toml"), errors.ErrCodeFileNotFound},
		{"unknown extension", writeFile(t, "cfg.ini", "x=1"), errors.ErrCodeInvalidFormat},
		{"bad toml", writeFile(t, "cfg.toml", "[server\naddr="), errors.ErrCodeInvalidInput},
		{"bad url", writeFile(t, "cfg.toml", "[backend]\nbase_url = \"ftp://x\""), errors.ErrCodeInvalidInput},
		{"redis without addr", writeFile(t, "cfg.yml", "cache:\n  backend: redis\n"), errors.ErrCodeInvalidInput},
		{"bad viewport", writeFile(t, "cfg.toml", "[chart]\nwidth = 50"), errors.ErrCodeInvalidViewport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.path); !errors.Is(err, tt.code) {
				t.Errorf("Load() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoadWithoutFile(t *testing.T) {
	if wd, err := os.Getwd(); err != nil {
		t.Fatal(err)
	} else if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	} else {
		t.Cleanup(func() { _ = os.Chdir(wd) })
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") without a default file should succeed: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SENTICHART_BACKEND_URL":     "https://sim.example.com",
		"SENTICHART_BACKEND_TIMEOUT": "90s",
		"SENTICHART_REDIS_DB":        "2",
		"SENTICHART_WIDTH":           "1200",
		"SENTICHART_MONGO_URI":       "mongodb://db:27017",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg := Default()
	if err := applyEnv(cfg, lookup); err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}
	if cfg.Backend.BaseURL != "https://sim.example.com" || cfg.Backend.Timeout.Std() != 90*time.Second {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.Cache.RedisDB != 2 || cfg.Chart.Width != 1200 {
		t.Errorf("redis db = %d, width = %g", cfg.Cache.RedisDB, cfg.Chart.Width)
	}
	if got := cfg.MongoOptions(); got.URI != "mongodb://db:27017" || got.Database != "sentichart" {
		t.Errorf("MongoOptions() = %+v", got)
	}

	env["SENTICHART_REDIS_DB"] = "two"
	if err := applyEnv(Default(), lookup); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("non-numeric REDIS_DB should fail, got %v", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("SENTICHART_STYLE", "light")
	cfg, err := Load(writeFile(t, "cfg.toml", "[chart]\nstyle = \"dark\""))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chart.Style != "light" {
		t.Errorf("env should override file, got %q", cfg.Chart.Style)
	}
}
