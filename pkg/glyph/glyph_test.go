package glyph

import (
	"testing"

	"github.com/matzehuels/engrave/pkg/errors"
)

func TestStaticGlyph(t *testing.T) {
	tests := []struct {
		code  string
		point float64
		want  float64
	}{
		{"noteheadBlack", 40, 11.8},
		{"noteheadWhole", 40, 16.88},
		{"augmentationDot", 40, 4},
		{"accidentalSharp", 20, 4.98},
		{"tuplet3", 40, 9},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			m, err := Static{}.Glyph(tt.code, tt.point)
			if err != nil {
				t.Fatalf("Glyph: %v", err)
			}
			if diff := m.Width - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("width = %g, want %g", m.Width, tt.want)
			}
		})
	}
}

func TestStaticGlyphNotFound(t *testing.T) {
	_, err := Static{}.Glyph("gClef", 40)
	if !errors.Is(err, errors.ErrCodeGlyphNotFound) {
		t.Errorf("expected GLYPH_NOT_FOUND, got %v", err)
	}
}

func TestTrueTypeText(t *testing.T) {
	tt, err := NewTrueType(nil)
	if err != nil {
		t.Fatalf("NewTrueType: %v", err)
	}

	short, err := tt.Text("p", 12)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	long, err := tt.Text("pizzicato", 12)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if short.Width <= 0 || long.Width <= short.Width {
		t.Errorf("widths not increasing with length: %g, %g", short.Width, long.Width)
	}
	if short.Height <= 0 {
		t.Errorf("height = %g, want > 0", short.Height)
	}

	big, _ := tt.Text("pizzicato", 24)
	if big.Width <= long.Width {
		t.Errorf("larger size should be wider: %g <= %g", big.Width, long.Width)
	}

	if _, err := tt.Text("x", 0); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for zero size, got %v", err)
	}
}

func TestChain(t *testing.T) {
	p := Default()

	if _, err := p.Glyph("noteheadBlack", 40); err != nil {
		t.Errorf("Glyph via chain: %v", err)
	}
	if _, err := p.Glyph("unknownGlyph", 40); !errors.Is(err, errors.ErrCodeGlyphNotFound) {
		t.Errorf("expected GLYPH_NOT_FOUND, got %v", err)
	}

	m, err := p.Text("cresc.", 10)
	if err != nil {
		t.Fatalf("Text via chain: %v", err)
	}
	if m.Width <= 0 {
		t.Errorf("text width = %g, want > 0", m.Width)
	}
}
