// Package score reads YAML score documents and builds the notation objects
// they describe.
//
// A document lists staves top to bottom; each stave holds one or more
// voices sharing the document's time signature:
//
//	time: 4/4
//	width: 400
//	staves:
//	  - voices:
//	      - notes:
//	          - {duration: "8", lines: [3]}
//	          - {duration: "8", lines: [4], accidentals: [{type: "#"}]}
//	          - {duration: "4", lines: [5]}
//	          - {duration: "2", rest: true}
//	        auto_beam: {}
//
// Lines count half steps up from the bottom staff line (1); 3 is the
// middle line. Beams and tuplets refer to notes by index within their
// voice.
package score

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/engrave/pkg/errors"
)

// DefaultWidth is the stave width used when a document sets none.
const DefaultWidth = 500

// Document is the YAML form of a score.
type Document struct {
	Title  string  `yaml:"title,omitempty"`
	Time   string  `yaml:"time"`
	Width  float64 `yaml:"width,omitempty"`
	Staves []Stave `yaml:"staves"`
}

// Stave is one stave line of the document.
type Stave struct {
	// StartWidth and EndWidth reserve room for clefs, signatures and bar
	// lines that are drawn outside the engine.
	StartWidth float64 `yaml:"start_width,omitempty"`
	EndWidth   float64 `yaml:"end_width,omitempty"`
	Voices     []Voice `yaml:"voices"`
}

// Voice is a sequence of notes on a stave.
type Voice struct {
	Mode     string    `yaml:"mode,omitempty"`
	Notes    []Note    `yaml:"notes"`
	Beams    [][]int   `yaml:"beams,flow,omitempty"`
	AutoBeam *AutoBeam `yaml:"auto_beam,omitempty"`
	Tuplets  []Tuplet  `yaml:"tuplets,omitempty"`
}

// Note is a note, rest, ghost note or bar line.
type Note struct {
	Duration    string       `yaml:"duration,omitempty"`
	Dots        int          `yaml:"dots,omitempty"`
	Lines       []float64    `yaml:"lines,flow,omitempty"`
	Rest        bool         `yaml:"rest,omitempty"`
	Ghost       bool         `yaml:"ghost,omitempty"`
	Bar         bool         `yaml:"bar,omitempty"`
	Stem        string       `yaml:"stem,omitempty"`
	Accidentals []Accidental `yaml:"accidentals,omitempty"`
	Annotations []Annotation `yaml:"annotations,omitempty"`
}

// Accidental marks the head at Index.
type Accidental struct {
	Index int    `yaml:"index,omitempty"`
	Type  string `yaml:"type"`
}

// Annotation is text above or below a note.
type Annotation struct {
	Text     string `yaml:"text"`
	Position string `yaml:"position,omitempty"`
	Justify  string `yaml:"justify,omitempty"`
}

// AutoBeam turns on automatic beaming for a voice.
type AutoBeam struct {
	Groups          []string `yaml:"groups,flow,omitempty"`
	Stem            string   `yaml:"stem,omitempty"`
	MaintainStems   bool     `yaml:"maintain_stems,omitempty"`
	BeamRests       bool     `yaml:"beam_rests,omitempty"`
	BeamMiddleOnly  bool     `yaml:"beam_middle_only,omitempty"`
	ShowStemlets    bool     `yaml:"show_stemlets,omitempty"`
	SecondaryBreaks string   `yaml:"secondary_breaks,omitempty"`
	Flat            bool     `yaml:"flat,omitempty"`
	FlatOffset      float64  `yaml:"flat_offset,omitempty"`
}

// Tuplet groups notes by index.
type Tuplet struct {
	Notes     []int   `yaml:"notes,flow"`
	Num       int     `yaml:"num,omitempty"`
	Occupied  int     `yaml:"occupied,omitempty"`
	Location  string  `yaml:"location,omitempty"`
	Bracketed *bool   `yaml:"bracketed,omitempty"`
	Ratioed   *bool   `yaml:"ratioed,omitempty"`
	YOffset   float64 `yaml:"y_offset,omitempty"`
}

// Decode reads a document from r and validates it.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "empty score document")
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode score")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Parse decodes a document from YAML bytes.
func Parse(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data))
}

// Load reads a document from a file.
func Load(path string) (*Document, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open score")
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes the document as YAML.
func (d *Document) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}

// Bytes returns the canonical YAML encoding, used for cache keys.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate checks structure that can be judged without building notes.
func (d *Document) Validate() error {
	if err := errors.ValidateTimeSignature(d.Time); err != nil {
		return err
	}
	if d.Width < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "width must not be negative")
	}
	if len(d.Staves) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "score has no staves")
	}
	for si, s := range d.Staves {
		if len(s.Voices) == 0 {
			return errors.New(errors.ErrCodeInvalidInput, "stave %d has no voices", si)
		}
		for vi, v := range s.Voices {
			if len(v.Notes) == 0 {
				return errors.New(errors.ErrCodeInvalidInput, "stave %d voice %d has no notes", si, vi)
			}
			check := func(kind string, idx []int) error {
				for _, i := range idx {
					if i < 0 || i >= len(v.Notes) {
						return errors.New(errors.ErrCodeInvalidInput, "stave %d voice %d: %s index %d out of range", si, vi, kind, i)
					}
				}
				return nil
			}
			for _, b := range v.Beams {
				if err := check("beam", b); err != nil {
					return err
				}
			}
			for _, t := range v.Tuplets {
				if err := check("tuplet", t.Notes); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// StaveWidth returns the width of every stave.
func (d *Document) StaveWidth() float64 {
	if d.Width > 0 {
		return d.Width
	}
	return DefaultWidth
}
