package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Keyer derives cache keys.
type Keyer interface {
	// LayoutKey identifies a formatted layout of a score.
	LayoutKey(scoreHash string, opts LayoutKeyOpts) string
	// ArtifactKey identifies a rendering of a layout.
	ArtifactKey(layoutKey string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the settings that change a layout.
type LayoutKeyOpts struct {
	ConfigHash string  `json:"config"`
	Width      float64 `json:"width"`
	TunePasses int     `json:"tune_passes"`
	AlignRests bool    `json:"align_rests"`
}

// ArtifactKeyOpts are the settings that change a rendering.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Scale  float64 `json:"scale,omitempty"`
	Guides bool    `json:"guides,omitempty"`
	Title  bool    `json:"title,omitempty"`
}

// DefaultKeyer hashes key parts into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey implements Keyer.
func (DefaultKeyer) LayoutKey(scoreHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", scoreHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(layoutKey string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutKey, opts)
}

// Hash returns the hex SHA-256 of data. Score documents are hashed in their
// canonical YAML encoding so that formatting differences do not split keys.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey builds "prefix:sha256(json(parts))".
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}
