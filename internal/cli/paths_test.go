package cli

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/matzehuels/engrave/pkg/config"
)

func TestCacheDir(t *testing.T) {
	home := t.TempDir()

	tests := []struct {
		name string
		xdg  string
		want string
	}{
		{"home default", "", filepath.Join(home, ".cache", appName)},
		{"xdg override", "/tmp/custom-cache", filepath.Join("/tmp/custom-cache", appName)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", home)
			t.Setenv("XDG_CACHE_HOME", tt.xdg)

			got, err := cacheDir()
			if err != nil {
				t.Fatalf("cacheDir() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("cacheDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheDirFor(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	c := New(io.Discard, log.InfoLevel)

	cfg := config.Default()
	got, err := c.cacheDirFor(cfg)
	if err != nil {
		t.Fatalf("cacheDirFor() error: %v", err)
	}
	if want := filepath.Join("/tmp/xdg", appName); got != want {
		t.Errorf("cacheDirFor() = %q, want %q", got, want)
	}

	cfg.Cache.Dir = "/var/cache/scores"
	got, err = c.cacheDirFor(cfg)
	if err != nil {
		t.Fatalf("cacheDirFor() error: %v", err)
	}
	if got != cfg.Cache.Dir {
		t.Errorf("cacheDirFor() = %q, want %q", got, cfg.Cache.Dir)
	}
}
