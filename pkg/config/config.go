// Package config loads engine settings from an engrave.toml file.
//
// A file only needs the keys it changes; everything else keeps the value
// from [Default]:
//
//	[font]
//	point = 40
//
//	[formatter]
//	softmax_factor = 10
//	tune_passes = 3
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "24h"
//
// [Config.Env] turns the settings into the [notation.Env] a formatting
// pass runs with.
package config

import (
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/glyph"
	"github.com/matzehuels/engrave/pkg/notation"
)

// FileName is the config file looked up in the working directory.
const FileName = "engrave.toml"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Default tuning and cache settings.
const (
	DefaultTuneAlpha  = 0.5
	DefaultTunePasses = 0
	DefaultCacheTTL   = 24 * time.Hour
	DefaultRedisAddr  = "localhost:6379"
)

// Config is the full engine configuration.
type Config struct {
	Font      Font                    `toml:"font"`
	Stave     Stave                   `toml:"stave"`
	Formatter Formatter               `toml:"formatter"`
	Beam      notation.BeamSettings   `toml:"beam"`
	Tuplet    notation.TupletSettings `toml:"tuplet"`
	Cache     Cache                   `toml:"cache"`
}

// Font selects glyph metrics.
type Font struct {
	Point    float64 `toml:"point"`
	TextSize float64 `toml:"text_size"`
	// TextFont is a TrueType file used to measure annotations. Empty uses
	// the embedded Go Regular face; "static" uses fixed-advance estimates.
	TextFont string `toml:"text_font"`
}

// Stave holds stave spacing.
type Stave struct {
	Padding              float64 `toml:"padding"`
	EndPaddingMin        float64 `toml:"end_padding_min"`
	EndPaddingMax        float64 `toml:"end_padding_max"`
	UnalignedNotePadding float64 `toml:"unaligned_note_padding"`
	LineSpacing          float64 `toml:"line_spacing"`
	NoteHeadPadding      float64 `toml:"note_head_padding"`
}

// Formatter holds justification and tuning settings.
type Formatter struct {
	SoftmaxFactor  float64 `toml:"softmax_factor"`
	MaxIterations  int     `toml:"max_iterations"`
	ContextPadding float64 `toml:"context_padding"`
	TuneAlpha      float64 `toml:"tune_alpha"`
	TunePasses     int     `toml:"tune_passes"`
	AlignRests     bool    `toml:"align_rests"`
}

// Cache selects where computed layouts are kept.
type Cache struct {
	Backend   string   `toml:"backend"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
}

// Duration is a time.Duration written as a string such as "90m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in settings.
func Default() *Config {
	env := notation.DefaultEnv()
	return &Config{
		Font: Font{
			Point:    env.Point,
			TextSize: env.TextSize,
		},
		Stave: Stave{
			Padding:              env.StavePadding,
			EndPaddingMin:        env.EndPaddingMin,
			EndPaddingMax:        env.EndPaddingMax,
			UnalignedNotePadding: env.UnalignedNotePadding,
			LineSpacing:          env.LineSpacing,
			NoteHeadPadding:      env.NoteHeadPadding,
		},
		Formatter: Formatter{
			SoftmaxFactor:  env.SoftmaxFactor,
			MaxIterations:  env.MaxIterations,
			ContextPadding: env.ContextPadding,
			TuneAlpha:      DefaultTuneAlpha,
			TunePasses:     DefaultTunePasses,
		},
		Beam:   env.Beam,
		Tuplet: env.Tuplet,
		Cache: Cache{
			Backend:   CacheFile,
			RedisAddr: DefaultRedisAddr,
			TTL:       Duration{DefaultCacheTTL},
		},
	}
}

// Load reads path over the defaults. Unknown keys are rejected so typos
// do not pass silently.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load %s", path)
	}
	return cfg, nil
}

// LoadOptional loads path if it exists and returns the defaults otherwise.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes TOML text over the defaults and validates the result.
func Parse(text string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that the environment does not cover.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheFile, CacheRedis, CacheNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache ttl must not be negative")
	}
	if c.Formatter.TuneAlpha <= 0 || c.Formatter.TuneAlpha > 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "tune alpha must be in (0, 1], got %g", c.Formatter.TuneAlpha)
	}
	if c.Formatter.TunePasses < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "tune passes must not be negative, got %d", c.Formatter.TunePasses)
	}
	env, err := c.Env()
	if err != nil {
		return err
	}
	return env.Validate()
}

// Env builds a fresh layout environment from the settings.
func (c *Config) Env() (*notation.Env, error) {
	provider, err := c.provider()
	if err != nil {
		return nil, err
	}
	env := notation.DefaultEnv()
	env.Glyphs = provider
	env.Point = c.Font.Point
	env.TextSize = c.Font.TextSize
	env.StavePadding = c.Stave.Padding
	env.EndPaddingMin = c.Stave.EndPaddingMin
	env.EndPaddingMax = c.Stave.EndPaddingMax
	env.UnalignedNotePadding = c.Stave.UnalignedNotePadding
	env.LineSpacing = c.Stave.LineSpacing
	env.NoteHeadPadding = c.Stave.NoteHeadPadding
	env.SoftmaxFactor = c.Formatter.SoftmaxFactor
	env.MaxIterations = c.Formatter.MaxIterations
	env.ContextPadding = c.Formatter.ContextPadding
	env.Beam = c.Beam
	env.Tuplet = c.Tuplet
	return env, nil
}

func (c *Config) provider() (glyph.Provider, error) {
	switch c.Font.TextFont {
	case "":
		return glyph.Default(), nil
	case "static":
		return glyph.Static{}, nil
	}
	ttf, err := os.ReadFile(c.Font.TextFont)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read text font")
	}
	tt, err := glyph.NewTrueType(ttf)
	if err != nil {
		return nil, err
	}
	return glyph.Chain{tt, glyph.Static{}}, nil
}

// Encode writes the settings as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
