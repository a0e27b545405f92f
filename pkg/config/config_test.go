package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/glyph"
	"github.com/matzehuels/engrave/pkg/notation"
)

func TestDefaultMatchesEnv(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error: %v", err)
	}
	env, err := cfg.Env()
	if err != nil {
		t.Fatal(err)
	}
	want := notation.DefaultEnv()
	if env.Point != want.Point || env.SoftmaxFactor != want.SoftmaxFactor || env.MaxIterations != want.MaxIterations {
		t.Errorf("Env() = %+v, want defaults", env)
	}
	if env.Beam != want.Beam || env.Tuplet != want.Tuplet {
		t.Errorf("Env() beam/tuplet = %+v %+v, want %+v %+v", env.Beam, env.Tuplet, want.Beam, want.Tuplet)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, c *Config)
	}{
		{
			name: "empty keeps defaults",
			text: "",
			check: func(t *testing.T, c *Config) {
				if c.Font.Point != notation.DefaultPoint {
					t.Errorf("Point = %g, want %d", c.Font.Point, notation.DefaultPoint)
				}
			},
		},
		{
			name: "partial override",
			text: "[formatter]\nsoftmax_factor = 20\ntune_passes = 3\n[beam]\nmax_slope = 0.5\n",
			check: func(t *testing.T, c *Config) {
				if c.Formatter.SoftmaxFactor != 20 || c.Formatter.TunePasses != 3 {
					t.Errorf("Formatter = %+v", c.Formatter)
				}
				if c.Beam.MaxSlope != 0.5 || c.Beam.MinSlope != -0.25 {
					t.Errorf("Beam = %+v", c.Beam)
				}
			},
		},
		{
			name: "cache ttl",
			text: "[cache]\nbackend = \"redis\"\nttl = \"90m\"\n",
			check: func(t *testing.T, c *Config) {
				if c.Cache.Backend != CacheRedis || c.Cache.TTL.Duration != 90*time.Minute {
					t.Errorf("Cache = %+v", c.Cache)
				}
			},
		},
		{
			name: "static text metrics",
			text: "[font]\ntext_font = \"static\"\n",
			check: func(t *testing.T, c *Config) {
				env, err := c.Env()
				if err != nil {
					t.Fatal(err)
				}
				if _, ok := env.Glyphs.(glyph.Static); !ok {
					t.Errorf("Glyphs = %T, want glyph.Static", env.Glyphs)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			tt.check(t, c)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"syntax", "[font\npoint = 1"},
		{"unknown key", "[font]\npiont = 30\n"},
		{"bad backend", "[cache]\nbackend = \"memcached\"\n"},
		{"bad ttl", "[cache]\nttl = \"soon\"\n"},
		{"softmax", "[formatter]\nsoftmax_factor = 1\n"},
		{"end padding", "[stave]\nend_padding_min = 20\n"},
		{"alpha", "[formatter]\ntune_alpha = 2\n"},
		{"missing font", "[font]\ntext_font = \"/nonexistent/font.ttf\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Parse() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("[font]\npoint = 30\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if c.Font.Point != 30 {
		t.Errorf("Point = %g, want 30", c.Font.Point)
	}

	c, err = LoadOptional(filepath.Join(dir, "missing.toml"))
	if err != nil || c.Font.Point != notation.DefaultPoint {
		t.Errorf("LoadOptional(missing) = %+v, %v; want defaults", c, err)
	}
	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("Load(missing) succeeded")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	var sb strings.Builder
	if err := Default().Encode(&sb); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), "[formatter]") || !strings.Contains(sb.String(), `ttl = "24h0m0s"`) {
		t.Errorf("Encode() = %s", sb.String())
	}
	c, err := Parse(sb.String())
	if err != nil {
		t.Fatalf("Parse(Encode()) error: %v", err)
	}
	if c.Cache.TTL.Duration != DefaultCacheTTL {
		t.Errorf("TTL = %v, want %v", c.Cache.TTL, DefaultCacheTTL)
	}
}
