package glyph

import (
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/matzehuels/engrave/pkg/errors"
)

// TrueType measures text with a parsed TrueType font. Faces are created
// lazily per size and reused; a TrueType value is safe for concurrent use.
type TrueType struct {
	font *truetype.Font

	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewTrueType parses ttf, or the embedded Go Regular face when ttf is nil.
func NewTrueType(ttf []byte) (*TrueType, error) {
	if ttf == nil {
		ttf = goregular.TTF
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse truetype font")
	}
	return &TrueType{font: f, faces: make(map[float64]font.Face)}, nil
}

// Glyph implements Provider. Notation symbols are not part of a text face.
func (t *TrueType) Glyph(code string, point float64) (Metrics, error) {
	return Metrics{}, NotFound(code)
}

// Text implements Provider.
func (t *TrueType) Text(s string, size float64) (Metrics, error) {
	if size <= 0 {
		return Metrics{}, errors.New(errors.ErrCodeInvalidInput, "text size must be positive, got %g", size)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	face := t.face(size)
	adv := font.MeasureString(face, s)
	m := face.Metrics()
	return Metrics{
		Width:  fixedToFloat(int(adv)),
		Height: fixedToFloat(int(m.Ascent + m.Descent)),
	}, nil
}

// Face returns the face for size, for drawing backends that render text
// with the same metrics the layout measured.
func (t *TrueType) Face(size float64) font.Face {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.face(size)
}

func (t *TrueType) face(size float64) font.Face {
	if f, ok := t.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(t.font, &truetype.Options{Size: size})
	t.faces[size] = f
	return f
}

// fixedToFloat converts a 26.6 fixed point value.
func fixedToFloat(v int) float64 {
	return float64(v) / 64
}
